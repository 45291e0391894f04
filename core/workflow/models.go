package workflow

import (
	"context"

	"github.com/trezcool/schulportal/core/organisation"
	"github.com/trezcool/schulportal/core/rolle"
)

type (
	// StepQuery asks the backend for the valid options of a partial selection.
	StepQuery struct {
		OrganisationID   string
		RolleID          string
		OrganisationName string
		RolleName        string
		Limit            int
	}

	// Step is the server computed answer to a StepQuery.
	Step struct {
		Organisations        []organisation.Organisation `json:"organisations"`
		Rollen               []rolle.Rolle               `json:"rollen"`
		SelectedOrganisation *organisation.Organisation  `json:"selectedOrganisation"`
		SelectedRolle        *rolle.Rolle                `json:"selectedRolle"`
		CanCommit            bool                        `json:"canCommit"`
	}

	// Backend is the part of the backend API the workflow relies on.
	Backend interface {
		WorkflowStep(ctx context.Context, query StepQuery) (*Step, error)
		QueryOrganisationen(ctx context.Context, filter organisation.QueryFilter) ([]organisation.Organisation, error)
		GetOrganisation(ctx context.Context, id string) (*organisation.Organisation, error)
	}

	// State is a snapshot of a workflow.
	State struct {
		SelectedOrganisation string                      `json:"selectedOrganisation"`
		SelectedRolle        string                      `json:"selectedRolle"`
		SelectedKlasse       string                      `json:"selectedKlasse"`
		Organisationen       []organisation.Organisation `json:"organisationen"`
		Rollen               []rolle.Rolle               `json:"rollen"`
		Klassen              []organisation.Organisation `json:"klassen"`
		CanCommit            bool                        `json:"canCommit"`
		ErrorCode            string                      `json:"errorCode,omitempty"`
	}
)

// OrganisationTitle returns the title of the selected Organisation, if it is among the options.
func (s State) OrganisationTitle() string {
	if o, ok := organisation.FindByID(s.Organisationen, s.SelectedOrganisation); ok {
		return o.Title()
	}
	return ""
}

func (s State) RolleTitle() string {
	if r, ok := rolle.FindByID(s.Rollen, s.SelectedRolle); ok {
		return r.Title()
	}
	return ""
}

func (s State) KlasseTitle() string {
	if k, ok := organisation.FindByID(s.Klassen, s.SelectedKlasse); ok {
		return k.Name
	}
	return ""
}

func (s State) clone() State {
	c := s
	c.Organisationen = append([]organisation.Organisation(nil), s.Organisationen...)
	c.Rollen = append([]rolle.Rolle(nil), s.Rollen...)
	c.Klassen = append([]organisation.Organisation(nil), s.Klassen...)
	return c
}
