// Package identity maps the fields of a registry form into the canonical
// identity record returned to callers.
package identity

// Placeholder stands in for any value the upstream document did not carry.
const Placeholder = "-"

// Record is the canonical identity of one registry lookup.
type Record struct {
	Nationality   string `json:"nationality" doc:"Registry letter (V, E)"`
	Document      string `json:"document" doc:"Document number"`
	FirstName     string `json:"firstname" doc:"First given name"`
	MiddleName    string `json:"middlename" doc:"Second given name"`
	FirstSurname  string `json:"first_surname" doc:"First surname"`
	SecondSurname string `json:"second_surname" doc:"Second surname"`
	BirthDate     string `json:"birthdate" doc:"Birth date in Spanish long form" example:"15 de marzo de 1990"`
	Gender        string `json:"gender" doc:"Hombre, Mujer or -" enum:"Hombre,Mujer,-"`
	Deceased      bool   `json:"deceased" doc:"Whether the registry flags the person as deceased"`
}

// Empty returns a record with every field at its default.
func Empty() Record {
	return Record{
		Nationality:   Placeholder,
		Document:      Placeholder,
		FirstName:     Placeholder,
		MiddleName:    Placeholder,
		FirstSurname:  Placeholder,
		SecondSurname: Placeholder,
		BirthDate:     Placeholder,
		Gender:        Placeholder,
	}
}
