package convert

import (
	"fmt"
)

// FormatError is reported when input is malformed, or incomplete at the end of input.
// Offset counts bytes from the start of the logical input, across all chunks, so the
// same input fails with the same error however it was split.
type FormatError struct {
	Format string // name of the format being converted, e.g. json
	Msg    string
	Offset int64
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s at offset %d", e.Format, e.Msg, e.Offset)
}

// SliceBoundsError is returned when AddSlice is given offsets that don't address the
// chunk. This is a usage error, returned to the caller rather than reported downstream.
type SliceBoundsError struct {
	Start, End, Len int
}

func (e *SliceBoundsError) Error() string {
	return fmt.Sprintf("invalid slice [%d:%d] of chunk with length %d", e.Start, e.End, e.Len)
}
