package main

import (
	"os"

	"github.com/lawrencejones/convsink/cmd/convsink/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		os.Exit(1)
	}
}
