package envelope

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Body is the JSON body exchanged with the collection endpoint in both directions.
type Body struct {
	Envelope string `json:"envelope"`
}

// HasVersionTag reports whether s starts with the envelope version tag.
func HasVersionTag(s string) bool {
	return strings.HasPrefix(s, VersionTag)
}

// FromBody extracts the envelope string from a response body.
// Extra fields are ignored; a missing, empty or non-string field is an error.
func FromBody(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", ErrMissingEnvelope
	}
	field := gjson.GetBytes(body, "envelope")
	if field.Type != gjson.String || field.Str == "" {
		return "", ErrMissingEnvelope
	}
	return field.Str, nil
}

// OpenBody extracts and opens the envelope of a response body.
func (c *Codec) OpenBody(body []byte) (any, error) {
	env, err := FromBody(body)
	if err != nil {
		return nil, err
	}
	return c.Open(env)
}

// StringField returns a top-level string field of an opened JSON object,
// or "" when v is not an object or the field is not a string.
func StringField(v any, name string) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj[name].(string)
	return s
}
