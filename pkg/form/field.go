// Package form turns the <input> elements of an upstream HTML fragment into
// typed field records indexed by name.
package form

import (
	"maps"
	"strings"
)

const (
	AutocompleteOn  = "on"
	AutocompleteOff = "off"

	// DeceasedKey names the synthetic field injected by Parse.
	DeceasedKey = "deceased"
)

// Field is one extracted element with its defaults applied. It is built once
// and never changes afterwards.
type Field struct {
	name         string
	value        string
	kind         string
	size         int
	maxLength    int
	placeholder  *string
	class        *string
	autocomplete string
	disabled     bool
	id           string

	synthetic bool
	deceased  bool

	attributes map[string]string
}

// NewField builds a Field from the raw attributes of one element.
//
// A mapping whose only key is "deceased" is not a real element: it builds
// the synthetic deceased record and skips every other default.
func NewField(attrs map[string]string) Field {
	if flag, ok := attrs[DeceasedKey]; ok && len(attrs) == 1 {
		return newDeceased(flag != "" && truthy(flag), attrs)
	}

	f := Field{attributes: maps.Clone(attrs)}
	if f.attributes == nil {
		f.attributes = map[string]string{}
	}

	f.name = attrs["name"]
	f.value = attrs["value"]
	f.kind = "text"
	if v, ok := attrs["type"]; ok {
		f.kind = v
	}
	f.size = leadingInt(attrs["size"])
	f.maxLength = leadingInt(attrs["maxlength"])
	if v, ok := attrs["placeholder"]; ok {
		f.placeholder = &v
	}
	if v, ok := attrs["class"]; ok {
		f.class = &v
	}
	f.autocomplete = AutocompleteOn
	if strings.EqualFold(attrs["autocomplete"], AutocompleteOff) {
		f.autocomplete = AutocompleteOff
	}
	if v, ok := attrs["disabled"]; ok {
		f.disabled = truthy(v)
	}
	f.id = f.name
	if v, ok := attrs["id"]; ok {
		f.id = v
	}

	return f
}

// NewDeceased builds the synthetic deceased record.
func NewDeceased(deceased bool) Field {
	flag := "false"
	if deceased {
		flag = "true"
	}
	return newDeceased(deceased, map[string]string{DeceasedKey: flag})
}

func newDeceased(deceased bool, attrs map[string]string) Field {
	return Field{
		name:       DeceasedKey,
		synthetic:  true,
		deceased:   deceased,
		attributes: maps.Clone(attrs),
	}
}

func (f Field) Name() string         { return f.name }
func (f Field) Value() string        { return f.value }
func (f Field) Type() string         { return f.kind }
func (f Field) Size() int            { return f.size }
func (f Field) MaxLength() int       { return f.maxLength }
func (f Field) Autocomplete() string { return f.autocomplete }
func (f Field) Disabled() bool       { return f.disabled }
func (f Field) ID() string           { return f.id }

// Placeholder returns the placeholder attribute and whether it was present.
func (f Field) Placeholder() (string, bool) {
	if f.placeholder == nil {
		return "", false
	}
	return *f.placeholder, true
}

// Class returns the class attribute and whether it was present.
func (f Field) Class() (string, bool) {
	if f.class == nil {
		return "", false
	}
	return *f.class, true
}

// Deceased returns the deceased flag. ok is false for ordinary fields, which
// carry no such flag.
func (f Field) Deceased() (deceased bool, ok bool) {
	return f.deceased, f.synthetic
}

// Synthetic reports whether the record was injected rather than extracted.
func (f Field) Synthetic() bool {
	return f.synthetic
}

// Attributes returns a copy of the raw attributes the field was built from.
func (f Field) Attributes() map[string]string {
	return maps.Clone(f.attributes)
}

// Attribute returns one raw attribute.
func (f Field) Attribute(key string) (string, bool) {
	v, ok := f.attributes[strings.TrimSpace(key)]
	return v, ok
}

// truthy treats anything but "false", "0" and "no" as set. An empty value,
// as written by a bare disabled="", still counts as set.
func truthy(v string) bool {
	switch v {
	case "false", "0", "no":
		return false
	}
	return true
}

// leadingInt reads the optional sign and digits at the start of s after
// leading whitespace. "12px" is 12, "abc" is 0.
func leadingInt(s string) int {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s) && '0' <= s[i] && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > 1<<31 {
			break
		}
	}
	if neg {
		return -n
	}
	return n
}
