// Decodes text in legacy character sets into UTF-8 strings, using the encodings provided
// by golang.org/x/text.
package charset

import (
	"strings"

	"github.com/lawrencejones/convsink/pkg/convert"
	"github.com/lawrencejones/convsink/pkg/sink"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Decoder converts bytes in the given encoding into UTF-8 text. Unless AllowMalformed is
// set, bytes the encoding cannot decode fail the conversion with a FormatError instead of
// being replaced by U+FFFD.
type Decoder struct {
	Name           string
	Encoding       encoding.Encoding
	AllowMalformed bool
}

var _ convert.Converter[[]byte, string] = Decoder{}

// Lookup finds a decoder by any of the encoding names recognised by the WHATWG Encoding
// standard, such as "latin1", "windows-1252" or "shift_jis".
func Lookup(name string) (Decoder, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return Decoder{}, errors.Wrapf(err, "unrecognised charset %q", name)
	}

	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = name
	}

	return Decoder{Name: canonical, Encoding: enc}, nil
}

func (d Decoder) Convert(input []byte) (string, error) {
	texts, err := convert.Collect[[]byte, string](d, input)
	if err != nil {
		return "", err
	}

	return strings.Join(texts, ""), nil
}

func (d Decoder) StartChunkedConversion(downstream sink.Sink[string]) convert.ChunkedConversionSink[[]byte] {
	return convert.NewSliceSink[[]byte, string](downstream, &decoder{
		name:           d.Name,
		allowMalformed: d.AllowMalformed,
		downstream:     downstream,
		transformer:    d.Encoding.NewDecoder(),
		dst:            make([]byte, 4096),
	})
}
