package zuordnung

import (
	"time"

	"github.com/trezcool/schulportal/core"
)

// BuildKlassenZuordnungen computes the Klasse Zuordnungen to send along with a Rolle assignment at `organisationID`.
//
// With a selected Klasse, a single record for it is returned. Otherwise, when the person already holds the Rolle
// in Klassen of the organisation, those Klassen are returned with the new befristung. Otherwise one record per
// distinct Klasse the person belongs to under the organisation is returned; the backend rejects it if the
// person belongs to more than one.
func BuildKlassenZuordnungen(
	selectedKlasseID, selectedRolleID string,
	current []Zuordnung,
	organisationID, befristung string,
) []InternalZuordnung {
	if selectedKlasseID != "" {
		return []InternalZuordnung{{
			OrganisationID:   selectedKlasseID,
			RolleID:          selectedRolleID,
			AdministriertVon: organisationID,
			Befristung:       befristung,
		}}
	}

	klassen := make([]Zuordnung, 0)
	for _, z := range current {
		if z.IsKlasse() && z.AdministriertVon == organisationID {
			klassen = append(klassen, z)
		}
	}

	withRolle := make([]Zuordnung, 0, len(klassen))
	for _, z := range klassen {
		if z.RolleID == selectedRolleID {
			withRolle = append(withRolle, z)
		}
	}
	if len(withRolle) > 0 {
		klassen = withRolle
	}

	seen := make(map[string]struct{}, len(klassen))
	result := make([]InternalZuordnung, 0, len(klassen))
	for _, z := range klassen {
		if _, ok := seen[z.SSKID]; ok {
			continue
		}
		seen[z.SSKID] = struct{}{}
		result = append(result, InternalZuordnung{
			OrganisationID:   z.SSKID,
			RolleID:          selectedRolleID,
			AdministriertVon: organisationID,
			Befristung:       befristung,
		})
	}
	return result
}

// MapToInternalZuordnungen converts persisted Zuordnungen to the working shape.
func MapToInternalZuordnungen(zuordnungen []Zuordnung) []InternalZuordnung {
	result := make([]InternalZuordnung, 0, len(zuordnungen))
	for _, z := range zuordnungen {
		result = append(result, InternalZuordnung{
			OrganisationID:   z.SSKID,
			RolleID:          z.RolleID,
			AdministriertVon: z.AdministriertVon,
			Befristung:       z.Befristung,
		})
	}
	return result
}

// CombineZuordnungen merges `proposed` into `existing`: an existing record with the same organisation and rolle
// as a proposed one is replaced, every other existing record is kept.
func CombineZuordnungen(existing, proposed []InternalZuordnung) []InternalZuordnung {
	type key struct{ org, rolle string }
	replaced := make(map[key]struct{}, len(proposed))
	for _, p := range proposed {
		replaced[key{p.OrganisationID, p.RolleID}] = struct{}{}
	}

	result := make([]InternalZuordnung, 0, len(existing)+len(proposed))
	for _, e := range existing {
		if _, ok := replaced[key{e.OrganisationID, e.RolleID}]; ok {
			continue
		}
		result = append(result, e)
	}
	return append(result, proposed...)
}

// RemoveZuordnungen returns `existing` without the records for which `shouldRemove` is true.
func RemoveZuordnungen(existing []InternalZuordnung, shouldRemove func(InternalZuordnung) bool) []InternalZuordnung {
	result := make([]InternalZuordnung, 0, len(existing))
	for _, e := range existing {
		if !shouldRemove(e) {
			result = append(result, e)
		}
	}
	return result
}

// ToUpdates converts working records to the update payload shape.
func ToUpdates(zuordnungen []InternalZuordnung) []PersonenkontextUpdate {
	result := make([]PersonenkontextUpdate, 0, len(zuordnungen))
	for _, z := range zuordnungen {
		result = append(result, PersonenkontextUpdate{
			OrganisationID: z.OrganisationID,
			RolleID:        z.RolleID,
			Befristung:     z.Befristung,
		})
	}
	return result
}

// CalculateEarliestBefristung returns the chronologically earliest befristung among `newBefristung` and the
// existing Zuordnungen at `organisationID`. Empty (unlimited) and unparsable values never win.
func CalculateEarliestBefristung(newBefristung string, current []Zuordnung, organisationID string) string {
	var (
		earliest     string
		earliestTime time.Time
	)
	consider := func(value string) {
		t, ok := ParseBefristung(value)
		if !ok {
			return
		}
		if earliest == "" || t.Before(earliestTime) {
			earliest, earliestTime = value, t
		}
	}

	consider(newBefristung)
	for _, z := range current {
		if z.SSKID == organisationID {
			consider(z.Befristung)
		}
	}
	return earliest
}

// HasEditableZuordnungsLeft reports whether an editable Zuordnung remains once the ones matching `shouldRemove`
// are gone.
func HasEditableZuordnungsLeft(zuordnungen []Zuordnung, shouldRemove func(Zuordnung) bool) bool {
	for _, z := range zuordnungen {
		if z.Editable && !shouldRemove(z) {
			return true
		}
	}
	return false
}

// ParseBefristung parses an ISO date or timestamp.
func ParseBefristung(value string) (time.Time, bool) {
	value = core.CleanString(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(core.DateLayout, value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
