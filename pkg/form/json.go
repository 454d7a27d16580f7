package form

import "encoding/json"

type fieldJSON struct {
	Name         string            `json:"name"`
	Value        string            `json:"value"`
	Type         string            `json:"type"`
	Size         int               `json:"size"`
	MaxLength    int               `json:"maxlength"`
	Placeholder  *string           `json:"placeholder"`
	Class        *string           `json:"class"`
	Autocomplete string            `json:"autocomplete"`
	Disabled     bool              `json:"disabled"`
	ID           string            `json:"id"`
	Attributes   map[string]string `json:"attributes"`
}

type deceasedJSON struct {
	Deceased   bool              `json:"deceased"`
	Attributes map[string]string `json:"attributes"`
}

// MarshalJSON renders the field the way it was extracted, for diagnostics.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.synthetic {
		return json.Marshal(deceasedJSON{Deceased: f.deceased, Attributes: f.attributes})
	}
	return json.Marshal(fieldJSON{
		Name:         f.name,
		Value:        f.value,
		Type:         f.kind,
		Size:         f.size,
		MaxLength:    f.maxLength,
		Placeholder:  f.placeholder,
		Class:        f.class,
		Autocomplete: f.autocomplete,
		Disabled:     f.disabled,
		ID:           f.id,
		Attributes:   f.attributes,
	})
}

// MarshalJSON renders the index as an object keyed by field name.
func (idx Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(idx.fields)
}
