package serialize

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var _ Serializer = &YAML{}

// YAML renders each value as its own YAML document, prefixed with a document separator
// so a stream of values remains parseable as a multi-document file.
type YAML struct {
	Indent int // defaults to 2
}

func (s *YAML) Marshal(value interface{}) ([]byte, error) {
	indent := s.Indent
	if indent < 1 {
		indent = 2
	}

	var buffer bytes.Buffer
	buffer.WriteString("---\n")

	enc := yaml.NewEncoder(&buffer)
	enc.SetIndent(indent)
	if err := enc.Encode(plain(value)); err != nil {
		return nil, errors.Wrap(err, "failed to encode yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode yaml")
	}

	return bytes.TrimRight(buffer.Bytes(), "\n"), nil
}

// plain rewrites decoded JSON numbers into numeric types, which yaml would otherwise
// render as quoted strings.
func plain(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []interface{}:
		out := make([]interface{}, len(v))
		for idx, elem := range v {
			out[idx] = plain(elem)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, elem := range v {
			out[key] = plain(elem)
		}
		return out
	}

	return value
}
