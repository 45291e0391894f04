package person

import "strings"

type Name struct {
	Vorname      string `json:"vorname"`
	Familienname string `json:"familienname"`
}

// Person is the subject of Zuordnungen and bulk operations.
type Person struct {
	ID             string `json:"id"`
	Name           Name   `json:"name"`
	Benutzername   string `json:"referrer,omitempty"`
	Personalnummer string `json:"personalnummer,omitempty"`
	Revision       string `json:"revision,omitempty"`
}

// DisplayName is "Vorname Familienname".
func (p Person) DisplayName() string {
	return strings.TrimSpace(p.Name.Vorname + " " + p.Name.Familienname)
}

// Fallback returns a Person identified only by `id`; used when the person could not be loaded.
func Fallback(id string) Person {
	return Person{ID: id}
}
