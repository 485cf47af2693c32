// Package infobox implements the storage codec for the structured
// "sidebar info" panel attached to wiki pages.
//
// The stored JSON has two legal shapes: a bare section object (the legacy
// single-section form) or an array of section objects. Within a section the
// fields may be stored as an ordered array of {key,value} pairs or, in
// legacy payloads, as a plain JSON object whose insertion order is
// meaningful. The decoder accepts all of these; the encoder always emits
// the ordered-array fields form, keeps the bare-object shape for exactly
// one section, and emits null when there is nothing to store.
package infobox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotStructured is returned when a sidebar payload is not valid JSON in
// one of the supported shapes. Callers fall back to treating the value as
// opaque raw markup.
var ErrNotStructured = errors.New("infobox: payload is not structured data")

// Field is a single key/value row within a section. Keys must be non-empty
// to survive encoding; values may be empty strings.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Section is one titled, optionally imaged group of ordered fields. The
// JSON tags match both the storage shape and the editor's builder widget,
// which reads and writes the same lowercase keys.
type Section struct {
	Title  string  `json:"title,omitempty"`
	Image  string  `json:"image,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

// Empty reports whether the section carries no content at all.
func (s Section) Empty() bool {
	if s.Title != "" || s.Image != "" {
		return false
	}
	for _, f := range s.Fields {
		if f.Key != "" {
			return false
		}
	}
	return true
}

type sectionJSON struct {
	Title  string  `json:"title,omitempty"`
	Image  string  `json:"image,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

type rawSection struct {
	Title  string          `json:"title"`
	Image  string          `json:"image"`
	Fields json.RawMessage `json:"fields"`
}

// Decode parses a stored sidebar payload into the normalized in-memory
// sequence form. Empty or null payloads decode to a nil slice. A payload
// that is not valid structured data yields ErrNotStructured.
func Decode(raw []byte) ([]Section, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, ErrNotStructured
		}
		sections := make([]Section, 0, len(elems))
		for _, elem := range elems {
			sec, err := decodeSection(elem)
			if err != nil {
				return nil, err
			}
			sections = append(sections, sec)
		}
		return sections, nil
	case '{':
		sec, err := decodeSection(trimmed)
		if err != nil {
			return nil, err
		}
		return []Section{sec}, nil
	default:
		return nil, ErrNotStructured
	}
}

// DecodeString is a convenience wrapper over Decode.
func DecodeString(raw string) ([]Section, error) {
	return Decode([]byte(raw))
}

// Encode serializes builder sections into the storage value. Field-level
// filtering drops entries with empty keys; sections themselves are never
// dropped individually, but a payload with no content at all encodes to
// null ("no infobox"). Exactly one section encodes as a bare object for
// compatibility with the legacy single-section shape.
func Encode(sections []Section) (json.RawMessage, error) {
	out := make([]sectionJSON, 0, len(sections))
	allEmpty := true
	for _, sec := range sections {
		enc := sectionJSON{Title: sec.Title, Image: sec.Image}
		for _, f := range sec.Fields {
			if f.Key == "" {
				continue
			}
			enc.Fields = append(enc.Fields, f)
		}
		if enc.Title != "" || enc.Image != "" || len(enc.Fields) > 0 {
			allEmpty = false
		}
		out = append(out, enc)
	}

	if len(out) == 0 || allEmpty {
		return json.RawMessage("null"), nil
	}
	if len(out) == 1 {
		data, err := json.Marshal(out[0])
		if err != nil {
			return nil, fmt.Errorf("failed to encode infobox section: %w", err)
		}
		return data, nil
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode infobox sections: %w", err)
	}
	return data, nil
}

func decodeSection(raw json.RawMessage) (Section, error) {
	var rs rawSection
	if err := json.Unmarshal(raw, &rs); err != nil {
		return Section{}, ErrNotStructured
	}
	fields, err := decodeFields(rs.Fields)
	if err != nil {
		return Section{}, err
	}
	return Section{Title: rs.Title, Image: rs.Image, Fields: fields}, nil
}

func decodeFields(raw json.RawMessage) ([]Field, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var pairs []struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return nil, ErrNotStructured
		}
		fields := make([]Field, 0, len(pairs))
		for _, p := range pairs {
			fields = append(fields, Field{Key: p.Key, Value: stringify(p.Value)})
		}
		return fields, nil
	case '{':
		return decodeFieldMap(trimmed)
	default:
		return nil, ErrNotStructured
	}
}

// decodeFieldMap decodes the legacy object-shaped fields payload. A plain
// json.Unmarshal into a map would lose the key order, so the object is
// walked token by token to preserve the stored insertion order.
func decodeFieldMap(raw []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, ErrNotStructured
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotStructured
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, ErrNotStructured
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, ErrNotStructured
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, ErrNotStructured
		}
		fields = append(fields, Field{Key: key, Value: stringify(value)})
	}
	return fields, nil
}

// stringify renders a scalar JSON value as display text. Strings are
// unquoted, null becomes the empty string, and anything else keeps its
// compact JSON text.
func stringify(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(trimmed))
}
