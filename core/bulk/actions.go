package bulk

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
	"github.com/trezcool/schulportal/core/person"
	"github.com/trezcool/schulportal/core/rolle"
	"github.com/trezcool/schulportal/core/zuordnung"
)

// Backend is the part of the backend API bulk actions rely on.
type Backend interface {
	GetPerson(ctx context.Context, personID string) (*person.Person, error)
	DeletePerson(ctx context.Context, personID string) error
	ResetPassword(ctx context.Context, personID string) (string, error)
	GetRolle(ctx context.Context, rolleID string) (*rolle.Rolle, error)
	PersonenUebersicht(ctx context.Context, personID string) (*zuordnung.Uebersicht, error)
	UpdateZuordnungen(ctx context.Context, personID string, req zuordnung.UpdateRequest) error
}

// Params are the action specific parameters of an operation.
type Params struct {
	OrganisationID string `json:"organisationId"`
	RolleID        string `json:"rolleId"`
	KlasseID       string `json:"klasseId"`
	Befristung     string `json:"befristung" validate:"isodate,befristung"`
}

// NewAction returns the Action implementing `typ`, checking the parameters it needs.
func NewAction(ctx context.Context, backend Backend, typ Type, params Params) (Action, error) {
	required := func(name, value string) error {
		if core.CleanString(value) == "" {
			return core.NewValidationError(
				errors.Errorf("%s is required for %s", name, typ),
				core.FieldError{Field: name, Error: "this field is required"},
			)
		}
		return nil
	}

	switch typ {
	case TypeDeletePerson:
		return DeletePerson(backend), nil
	case TypeResetPassword:
		return ResetPassword(backend), nil
	case TypeChangeKlasse:
		if err := required("organisationId", params.OrganisationID); err != nil {
			return nil, err
		}
		if err := required("klasseId", params.KlasseID); err != nil {
			return nil, err
		}
		return ChangeKlasse(backend, params.OrganisationID, params.KlasseID), nil
	case TypeModifyRolle:
		if err := required("organisationId", params.OrganisationID); err != nil {
			return nil, err
		}
		if err := required("rolleId", params.RolleID); err != nil {
			return nil, err
		}
		rl, err := backend.GetRolle(ctx, params.RolleID)
		if err != nil {
			return nil, errors.Wrap(err, "bulk.NewAction.GetRolle")
		}
		return ModifyRolle(backend, params.OrganisationID, *rl, params.KlasseID, params.Befristung), nil
	case TypeOrgUnassign:
		if err := required("organisationId", params.OrganisationID); err != nil {
			return nil, err
		}
		return OrgUnassign(backend, params.OrganisationID), nil
	case TypeRolleUnassign:
		if err := required("organisationId", params.OrganisationID); err != nil {
			return nil, err
		}
		if err := required("rolleId", params.RolleID); err != nil {
			return nil, err
		}
		return RolleUnassign(backend, params.OrganisationID, params.RolleID), nil
	}
	return nil, errors.Errorf("unknown bulk operation type: %q", typ)
}

func DeletePerson(backend Backend) Action {
	return func(ctx context.Context, personID string) (string, error) {
		return "", backend.DeletePerson(ctx, personID)
	}
}

// ResetPassword results in the new password of the person.
func ResetPassword(backend Backend) Action {
	return func(ctx context.Context, personID string) (string, error) {
		return backend.ResetPassword(ctx, personID)
	}
}

// ChangeKlasse moves a learner of `schuleID` into `klasseID`, keeping their Rolle and befristung.
func ChangeKlasse(backend Backend, schuleID, klasseID string) Action {
	return func(ctx context.Context, personID string) (string, error) {
		ue, err := backend.PersonenUebersicht(ctx, personID)
		if err != nil {
			return "", err
		}

		var lern *zuordnung.Zuordnung
		for i, z := range ue.Zuordnungen {
			if z.SSKID == schuleID && z.RollenArt == rolle.ArtLern {
				lern = &ue.Zuordnungen[i]
				break
			}
		}
		if lern == nil {
			return "", errcode.New(errcode.LernNotAtSchuleAndKlasse)
		}

		remaining := zuordnung.RemoveZuordnungen(
			zuordnung.MapToInternalZuordnungen(ue.Zuordnungen),
			func(z zuordnung.InternalZuordnung) bool {
				return z.AdministriertVon == schuleID && z.RolleID == lern.RolleID
			},
		)
		klasse := zuordnung.BuildKlassenZuordnungen(klasseID, lern.RolleID, ue.Zuordnungen, schuleID, lern.Befristung)
		combined := zuordnung.CombineZuordnungen(remaining, klasse)
		return "", backend.UpdateZuordnungen(ctx, personID, zuordnung.NewUpdateRequest(*ue, combined))
	}
}

// ModifyRolle assigns `rl` at `organisationID` (and a Klasse for learners).
// The resulting befristung is the earliest of `befristung` and the person's existing ones there.
func ModifyRolle(backend Backend, organisationID string, rl rolle.Rolle, klasseID, befristung string) Action {
	return func(ctx context.Context, personID string) (string, error) {
		ue, err := backend.PersonenUebersicht(ctx, personID)
		if err != nil {
			return "", err
		}

		bef := zuordnung.CalculateEarliestBefristung(befristung, ue.Zuordnungen, organisationID)
		if rl.RequiresBefristung() && bef == "" {
			return "", errcode.New(errcode.BefristungRequired)
		}

		proposed := []zuordnung.InternalZuordnung{{OrganisationID: organisationID, RolleID: rl.ID, Befristung: bef}}
		if rl.IsLern() {
			klassen := zuordnung.BuildKlassenZuordnungen(klasseID, rl.ID, ue.Zuordnungen, organisationID, bef)
			if len(klassen) == 0 {
				return "", errcode.New(errcode.LernNotAtSchuleAndKlasse)
			}
			proposed = append(proposed, klassen...)
		}

		combined := zuordnung.CombineZuordnungen(zuordnung.MapToInternalZuordnungen(ue.Zuordnungen), proposed)
		return "", backend.UpdateZuordnungen(ctx, personID, zuordnung.NewUpdateRequest(*ue, combined))
	}
}

// OrgUnassign removes every Zuordnung of the person at `organisationID` and its Klassen.
func OrgUnassign(backend Backend, organisationID string) Action {
	return unassign(backend, func(z zuordnung.Zuordnung) bool {
		return z.SSKID == organisationID || (z.IsKlasse() && z.AdministriertVon == organisationID)
	})
}

// RolleUnassign removes `rolleID` from the person at `organisationID` and its Klassen.
func RolleUnassign(backend Backend, organisationID, rolleID string) Action {
	return unassign(backend, func(z zuordnung.Zuordnung) bool {
		if z.RolleID != rolleID {
			return false
		}
		return z.SSKID == organisationID || (z.IsKlasse() && z.AdministriertVon == organisationID)
	})
}

func unassign(backend Backend, shouldRemove func(zuordnung.Zuordnung) bool) Action {
	return func(ctx context.Context, personID string) (string, error) {
		ue, err := backend.PersonenUebersicht(ctx, personID)
		if err != nil {
			return "", err
		}
		if !zuordnung.HasEditableZuordnungsLeft(ue.Zuordnungen, shouldRemove) {
			return "", errcode.New(errcode.NoEditableZuordnungLeft)
		}

		kept := make([]zuordnung.Zuordnung, 0, len(ue.Zuordnungen))
		for _, z := range ue.Zuordnungen {
			if !shouldRemove(z) {
				kept = append(kept, z)
			}
		}
		remaining := zuordnung.MapToInternalZuordnungen(kept)
		return "", backend.UpdateZuordnungen(ctx, personID, zuordnung.NewUpdateRequest(*ue, remaining))
	}
}
