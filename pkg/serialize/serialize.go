package serialize

import (
	"fmt"
)

// DefaultSerializer is used when no format is named
var DefaultSerializer Serializer = &JSON{}

// Serializer renders values produced by a conversion as self-contained documents. The
// output of Marshal never contains a trailing newline, leaving framing to the caller.
type Serializer interface {
	Marshal(value interface{}) ([]byte, error)
}

// Formats lists the names accepted by ForName.
var Formats = []string{"json", "json-pretty", "yaml"}

// ForName returns the serializer registered under the given format name, or the
// DefaultSerializer if name is empty.
func ForName(name string) (Serializer, error) {
	switch name {
	case "":
		return DefaultSerializer, nil
	case "json":
		return &JSON{}, nil
	case "json-pretty":
		return &JSON{Pretty: true}, nil
	case "yaml":
		return &YAML{}, nil
	}

	return nil, fmt.Errorf("unsupported output format: %s", name)
}
