package serialize

import (
	"encoding/json"
)

var _ Serializer = &JSON{}

type JSON struct {
	Pretty bool // whether to pretty-print the output
}

func (s *JSON) Marshal(value interface{}) ([]byte, error) {
	if s.Pretty {
		return json.MarshalIndent(value, "", "  ")
	}

	return json.Marshal(value)
}
