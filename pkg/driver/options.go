package driver

import (
	"fmt"
	"time"

	"github.com/alecthomas/kingpin"
)

type Options struct {
	ChunkSize int
	Budget    time.Duration

	// Now is the clock used to measure step bursts. Defaults to time.Now.
	Now func() time.Time
}

func (opt *Options) Bind(cmd *kingpin.CmdClause, prefix string) *Options {
	cmd.Flag(fmt.Sprintf("%schunk-size", prefix), "Bytes of input handed to the converter per slice").Default("65536").IntVar(&opt.ChunkSize)
	cmd.Flag(fmt.Sprintf("%sbudget", prefix), "Processing time a task may spend before yielding").Default("10ms").DurationVar(&opt.Budget)

	return opt
}

func (opt Options) withDefaults() Options {
	if opt.ChunkSize < 1 {
		opt.ChunkSize = 1
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}

	return opt
}
