package form

import (
	"slices"

	"github.com/iziplay/saime-api/pkg/markup"
)

// DeceasedMarker is searched for, case-insensitively and as a plain
// substring, anywhere in the document.
const DeceasedMarker = "fallecido"

// Index maps field names to the fields found in one document. It holds only
// what was found: lookups for missing names report absence instead of
// returning defaults.
type Index struct {
	fields map[string]Field
}

// Parse extracts every <input> element of content into an Index. Elements
// sharing a name overwrite earlier ones. The synthetic "deceased" entry is
// always present.
func Parse(content string) Index {
	spans := markup.ScanInputs(content)
	fields := make(map[string]Field, len(spans)+1)

	for _, span := range spans {
		f := NewField(markup.ParseAttributes(span))
		fields[f.Name()] = f
	}

	fields[DeceasedKey] = NewDeceased(markup.ContainsFold(content, DeceasedMarker))

	return Index{fields: fields}
}

// Lookup returns the field stored under name.
func (idx Index) Lookup(name string) (Field, bool) {
	f, ok := idx.fields[name]
	return f, ok
}

// Value returns the value attribute of the named field.
func (idx Index) Value(name string) (string, bool) {
	f, ok := idx.fields[name]
	if !ok {
		return "", false
	}
	return f.Value(), true
}

// Deceased returns the flag of the synthetic deceased entry.
func (idx Index) Deceased() (bool, bool) {
	f, ok := idx.fields[DeceasedKey]
	if !ok {
		return false, false
	}
	return f.Deceased()
}

// Len returns the number of entries, the synthetic one included.
func (idx Index) Len() int {
	return len(idx.fields)
}

// Names returns the indexed names in sorted order.
func (idx Index) Names() []string {
	names := make([]string, 0, len(idx.fields))
	for name := range idx.fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
