package zuordnung

import (
	"github.com/trezcool/schulportal/core/organisation"
	"github.com/trezcool/schulportal/core/rolle"
)

// Zuordnung links a Person to an Organisation via a Rolle, as persisted by the backend.
type Zuordnung struct {
	SSKID            string           `json:"sskId"` // organisation
	RolleID          string           `json:"rolleId"`
	SSKName          string           `json:"sskName"`
	SSKDstNr         string           `json:"sskDstNr"`
	Rolle            string           `json:"rolle"`
	RollenArt        rolle.RollenArt  `json:"rollenArt"`
	AdministriertVon string           `json:"administriertVon"`
	Typ              organisation.Typ `json:"typ"`
	Editable         bool             `json:"editable"`
	Merkmale         []rolle.Merkmal  `json:"merkmale"`
	Befristung       string           `json:"befristung,omitempty"` // ISO date
}

func (z Zuordnung) IsKlasse() bool { return z.Typ == organisation.TypKlasse }

// Matches reports whether `z` links the given organisation and rolle.
func (z Zuordnung) Matches(organisationID, rolleID string) bool {
	return z.SSKID == organisationID && z.RolleID == rolleID
}

// InternalZuordnung is the working shape used while building an update.
type InternalZuordnung struct {
	OrganisationID   string
	RolleID          string
	AdministriertVon string
	Befristung       string
}

// PersonenkontextUpdate is one entry of an update payload.
type PersonenkontextUpdate struct {
	OrganisationID string `json:"organisationId"`
	RolleID        string `json:"rolleId"`
	Befristung     string `json:"befristung,omitempty"`
}

// UpdateRequest replaces all Zuordnungen of a person.
// LastModified and Count must match the backend's view, or the update is rejected.
type UpdateRequest struct {
	LastModified     string                  `json:"lastModified,omitempty"`
	Count            int                     `json:"count"`
	Personenkontexte []PersonenkontextUpdate `json:"personenkontexte"`
}

// Uebersicht is a person's Zuordnungen overview.
type Uebersicht struct {
	PersonID                string      `json:"personId"`
	Vorname                 string      `json:"vorname"`
	Nachname                string      `json:"nachname"`
	Benutzername            string      `json:"benutzername"`
	LastModifiedZuordnungen string      `json:"lastModifiedZuordnungen,omitempty"`
	Zuordnungen             []Zuordnung `json:"zuordnungen"`
}

// NewUpdateRequest builds the payload replacing the Zuordnungen of `ue` with `zuordnungen`.
func NewUpdateRequest(ue Uebersicht, zuordnungen []InternalZuordnung) UpdateRequest {
	return UpdateRequest{
		LastModified:     ue.LastModifiedZuordnungen,
		Count:            len(ue.Zuordnungen),
		Personenkontexte: ToUpdates(zuordnungen),
	}
}
