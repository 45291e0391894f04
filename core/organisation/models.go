package organisation

import (
	"sort"
	"strings"
)

// Typ is the kind of an Organisation.
type Typ string

const (
	TypRoot         Typ = "ROOT"
	TypLand         Typ = "LAND"
	TypTraeger      Typ = "TRAEGER"
	TypSchule       Typ = "SCHULE"
	TypKlasse       Typ = "KLASSE"
	TypAnbieter     Typ = "ANBIETER"
	TypSonstige     Typ = "SONSTIGE ORGANISATION / EINRICHTUNG"
	TypUnbestaetigt Typ = "UNBESTAETIGT"
)

// Organisation is a school, a class or any administrative unit.
// Klassen are Organisations of TypKlasse administered by a Schule.
type Organisation struct {
	ID               string `json:"id"`
	Kennung          string `json:"kennung,omitempty"`
	Name             string `json:"name"`
	Typ              Typ    `json:"typ"`
	AdministriertVon string `json:"administriertVon,omitempty"`
	ZugehoerigZu     string `json:"zugehoerigZu,omitempty"`
	Version          int    `json:"version,omitempty"`
}

func (o Organisation) IsKlasse() bool { return o.Typ == TypKlasse }
func (o Organisation) IsSchule() bool { return o.Typ == TypSchule }

// Title is the label shown for the organisation in selection lists, eg. "1234567 (Carl-Orff-Schule)".
func (o Organisation) Title() string {
	if o.Kennung == "" {
		return o.Name
	}
	return o.Kennung + " (" + strings.TrimSpace(o.Name) + ")"
}

// QueryFilter narrows down an organisation lookup. Zero values are ignored.
type QueryFilter struct {
	SearchString     string
	Typ              Typ
	AdministriertVon []string
	Limit            int
}

// SortByTitle sorts organisations by their Title, case insensitively.
func SortByTitle(orgs []Organisation) {
	sort.SliceStable(orgs, func(i, j int) bool {
		return strings.ToLower(orgs[i].Title()) < strings.ToLower(orgs[j].Title())
	})
}

// FindByID returns the organisation with `id`, if present.
func FindByID(orgs []Organisation, id string) (Organisation, bool) {
	for _, o := range orgs {
		if o.ID == id {
			return o, true
		}
	}
	return Organisation{}, false
}
