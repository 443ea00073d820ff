package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownField is returned when a field key is not part of the catalog
var ErrUnknownField = errors.New("unknown profile field")

// Profile is the user's biodata record: a flat set of named text fields plus
// an optional embedded photo. Every catalog key is always present.
type Profile struct {
	fields map[string]string
	photo  string // embeddable image data, empty when absent
}

// NewProfile returns a record with every field set to the empty string
func NewProfile() Profile {
	p := Profile{fields: make(map[string]string, len(Fields))}
	for _, f := range Fields {
		p.fields[f.Key] = ""
	}
	return p
}

// ProfileFromMap builds a record from loosely typed values. Unknown keys are
// dropped and non-string values become empty strings. A photo that is not
// inline image data is dropped.
func ProfileFromMap(values map[string]any) Profile {
	p := NewProfile()
	for key, raw := range values {
		if key == FieldProfileImage {
			if s, ok := raw.(string); ok && IsInlineImage(s) {
				p.photo = s
			}
			continue
		}
		if _, ok := fieldIndex[key]; !ok {
			continue
		}
		if s, ok := raw.(string); ok {
			p.fields[key] = s
		}
	}
	return p
}

// IsInlineImage reports whether src is a base64 image data URL
func IsInlineImage(src string) bool {
	return strings.HasPrefix(src, "data:image/") && strings.Contains(src, ";base64,")
}

// Get returns the value of a text field. Unknown keys yield "".
func (p Profile) Get(key string) string {
	if p.fields == nil {
		return ""
	}
	return p.fields[key]
}

// Set updates a text field
func (p *Profile) Set(key, value string) error {
	if _, ok := fieldIndex[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	p.Normalize()
	p.fields[key] = value
	return nil
}

// Photo returns the embedded image data and whether one is present
func (p Profile) Photo() (string, bool) {
	return p.photo, p.photo != ""
}

// SetPhoto replaces the embedded image; an empty string removes it
func (p *Profile) SetPhoto(data string) {
	p.photo = data
}

// Name returns the name field
func (p Profile) Name() string {
	return p.Get(FieldName)
}

// Normalize fills in any missing catalog keys
func (p *Profile) Normalize() {
	if p.fields == nil {
		p.fields = make(map[string]string, len(Fields))
	}
	for _, f := range Fields {
		if _, ok := p.fields[f.Key]; !ok {
			p.fields[f.Key] = ""
		}
	}
}

// Clone returns an independent copy of the record
func (p Profile) Clone() Profile {
	c := NewProfile()
	for k, v := range p.fields {
		c.fields[k] = v
	}
	c.photo = p.photo
	return c
}

// IsEmpty reports whether no field and no photo is set
func (p Profile) IsEmpty() bool {
	if p.photo != "" {
		return false
	}
	for _, v := range p.fields {
		if v != "" {
			return false
		}
	}
	return true
}

// Map returns the record as a flat map including the profileImage key,
// which is nil when no photo is set.
func (p Profile) Map() map[string]any {
	out := make(map[string]any, len(Fields)+1)
	for _, f := range Fields {
		out[f.Key] = p.Get(f.Key)
	}
	if p.photo == "" {
		out[FieldProfileImage] = nil
	} else {
		out[FieldProfileImage] = p.photo
	}
	return out
}

// MarshalJSON encodes the record as the flat object used for drafts
func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Map())
}

// UnmarshalJSON decodes a flat draft object. Missing keys come back empty.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ProfileFromMap(raw)
	return nil
}
