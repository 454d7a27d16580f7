package identity

import (
	"fmt"
	"strings"

	"github.com/iziplay/saime-api/pkg/form"
)

// Upstream form field names.
const (
	FieldLetter        = "Dregistro[letra]"
	FieldDocument      = "Dregistro[num_cedula]"
	FieldFirstName     = "Dregistro[primernombre]"
	FieldMiddleName    = "Dregistro[segundonombre]"
	FieldFirstSurname  = "Dregistro[primerapellido]"
	FieldSecondSurname = "Dregistro[segundoapellido]"
	FieldBirthDate     = "Dregistro[fecha_nac]"
	FieldGender        = "Dregistro[sexo]"
)

var months = map[string]string{
	"01": "enero",
	"02": "febrero",
	"03": "marzo",
	"04": "abril",
	"05": "mayo",
	"06": "junio",
	"07": "julio",
	"08": "agosto",
	"09": "septiembre",
	"10": "octubre",
	"11": "noviembre",
	"12": "diciembre",
}

var genders = map[string]string{
	"M": "Hombre",
	"F": "Mujer",
}

// Normalize builds the canonical record from a parsed form. It only reads
// the index, so normalizing the same index twice yields the same record.
func Normalize(idx form.Index) Record {
	value := func(name string) string {
		v, ok := idx.Value(name)
		if !ok || v == "" {
			return Placeholder
		}
		return v
	}

	deceased, _ := idx.Deceased()

	return Record{
		Nationality:   value(FieldLetter),
		Document:      value(FieldDocument),
		FirstName:     value(FieldFirstName),
		MiddleName:    value(FieldMiddleName),
		FirstSurname:  value(FieldFirstSurname),
		SecondSurname: value(FieldSecondSurname),
		BirthDate:     BirthDate(value(FieldBirthDate)),
		Gender:        Gender(value(FieldGender)),
		Deceased:      deceased,
	}
}

// Gender maps the one-letter sex code to its label.
func Gender(code string) string {
	if label, ok := genders[strings.ToUpper(code)]; ok {
		return label
	}
	return Placeholder
}

// BirthDate renders a day-month-year date as "15 de marzo de 1990". Parts
// may be separated by any run of '-' or '/'. Fewer than three parts yield
// the placeholder. The date is formatted, not validated: an unknown month
// falls back to "enero" and impossible days are kept as they are.
func BirthDate(raw string) string {
	parts := splitDate(raw)
	if len(parts) < 3 {
		return Placeholder
	}

	day, month, year := parts[0], parts[1], parts[2]
	if len(month) == 1 {
		month = "0" + month
	}

	name, ok := months[month]
	if !ok {
		name = months["01"]
	}

	return fmt.Sprintf("%s de %s de %s", day, name, year)
}

// splitDate splits on runs of '-' and '/', keeping empty leading and
// trailing parts.
func splitDate(raw string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(raw); {
		if raw[i] != '-' && raw[i] != '/' {
			i++
			continue
		}
		parts = append(parts, raw[start:i])
		for i < len(raw) && (raw[i] == '-' || raw[i] == '/') {
			i++
		}
		start = i
	}
	return append(parts, raw[start:])
}
