package rolle

// RollenArt is the kind of a Rolle.
type RollenArt string

const (
	ArtLern     RollenArt = "LERN"
	ArtLehr     RollenArt = "LEHR"
	ArtExtern   RollenArt = "EXTERN"
	ArtOrgadmin RollenArt = "ORGADMIN"
	ArtLeit     RollenArt = "LEIT"
	ArtSysadmin RollenArt = "SYSADMIN"
)

// Merkmal flags a business rule attached to a Rolle.
type Merkmal string

const (
	MerkmalBefristungPflicht Merkmal = "BEFRISTUNG_PFLICHT"
	MerkmalKopersPflicht     Merkmal = "KOPERS_PFLICHT"
)

// Systemrecht is a permission granted by a Rolle.
type Systemrecht string

const (
	RechtRollenVerwalten                     Systemrecht = "ROLLEN_VERWALTEN"
	RechtPersonenSofortLoeschen              Systemrecht = "PERSONEN_SOFORT_LOESCHEN"
	RechtPersonenVerwalten                   Systemrecht = "PERSONEN_VERWALTEN"
	RechtSchulenVerwalten                    Systemrecht = "SCHULEN_VERWALTEN"
	RechtKlassenVerwalten                    Systemrecht = "KLASSEN_VERWALTEN"
	RechtSchultraegerVerwalten               Systemrecht = "SCHULTRAEGER_VERWALTEN"
	RechtPersonenAnlegen                     Systemrecht = "PERSONEN_ANLEGEN"
	RechtImportDurchfuehren                  Systemrecht = "IMPORT_DURCHFUEHREN"
	RechtPersonenLesen                       Systemrecht = "PERSONEN_LESEN"
	RechtBefristungBearbeiten                Systemrecht = "BEFRISTUNG_BEARBEITEN"
	RechtEingeschraenktNeueBenutzerErstellen Systemrecht = "EINGESCHRAENKT_NEUE_BENUTZER_ERSTELLEN"
)

// Rolle is a role assignable to a person within an organisation context.
type Rolle struct {
	ID                                string        `json:"id"`
	Name                              string        `json:"name"`
	RollenArt                         RollenArt     `json:"rollenart"`
	Merkmale                          []Merkmal     `json:"merkmale"`
	Systemrechte                      []Systemrecht `json:"systemrechte"`
	AdministeredBySchulstrukturknoten string        `json:"administeredBySchulstrukturknoten"`
	Version                           int           `json:"version,omitempty"`
}

func (r Rolle) Title() string { return r.Name }

func (r Rolle) IsLern() bool { return r.RollenArt == ArtLern }

func (r Rolle) HasMerkmal(m Merkmal) bool {
	for _, mm := range r.Merkmale {
		if mm == m {
			return true
		}
	}
	return false
}

func (r Rolle) HasSystemrecht(s Systemrecht) bool {
	for _, ss := range r.Systemrechte {
		if ss == s {
			return true
		}
	}
	return false
}

// RequiresBefristung reports whether every Zuordnung with this Rolle needs an expiry date.
func (r Rolle) RequiresBefristung() bool { return r.HasMerkmal(MerkmalBefristungPflicht) }

// FindByID returns the rolle with `id`, if present.
func FindByID(rollen []Rolle, id string) (Rolle, bool) {
	for _, r := range rollen {
		if r.ID == id {
			return r, true
		}
	}
	return Rolle{}, false
}
