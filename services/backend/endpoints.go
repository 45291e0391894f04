package backendsvc

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/sendgrid/rest"

	"github.com/trezcool/schulportal/core/bulk"
	"github.com/trezcool/schulportal/core/organisation"
	"github.com/trezcool/schulportal/core/person"
	"github.com/trezcool/schulportal/core/rolle"
	"github.com/trezcool/schulportal/core/workflow"
	"github.com/trezcool/schulportal/core/zuordnung"
)

var (
	_ workflow.Backend = (*Client)(nil)
	_ bulk.Backend     = (*Client)(nil)
)

func (c *Client) QueryOrganisationen(ctx context.Context, filter organisation.QueryFilter) ([]organisation.Organisation, error) {
	q := make(map[string][]string)
	if filter.SearchString != "" {
		q["searchString"] = []string{filter.SearchString}
	}
	if filter.Typ != "" {
		q["typ"] = []string{string(filter.Typ)}
	}
	if len(filter.AdministriertVon) > 0 {
		q["administriertVon"] = filter.AdministriertVon
	}
	if filter.Limit > 0 {
		q["limit"] = []string{strconv.Itoa(filter.Limit)}
	}

	orgs := make([]organisation.Organisation, 0)
	if err := c.do(ctx, rest.Get, "/api/organisationen", q, nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (c *Client) GetOrganisation(ctx context.Context, id string) (*organisation.Organisation, error) {
	org := new(organisation.Organisation)
	if err := c.do(ctx, rest.Get, "/api/organisationen/"+escape(id), nil, nil, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (c *Client) QueryRollen(ctx context.Context, searchStr string, limit int) ([]rolle.Rolle, error) {
	q := make(map[string][]string)
	if searchStr != "" {
		q["searchStr"] = []string{searchStr}
	}
	if limit > 0 {
		q["limit"] = []string{strconv.Itoa(limit)}
	}

	rollen := make([]rolle.Rolle, 0)
	if err := c.do(ctx, rest.Get, "/api/rolle", q, nil, &rollen); err != nil {
		return nil, err
	}
	return rollen, nil
}

func (c *Client) GetRolle(ctx context.Context, id string) (*rolle.Rolle, error) {
	rl := new(rolle.Rolle)
	if err := c.do(ctx, rest.Get, "/api/rolle/"+escape(id), nil, nil, rl); err != nil {
		return nil, err
	}
	return rl, nil
}

func (c *Client) WorkflowStep(ctx context.Context, query workflow.StepQuery) (*workflow.Step, error) {
	q := make(map[string][]string)
	set := func(key, value string) {
		if value != "" {
			q[key] = []string{value}
		}
	}
	set("organisationId", query.OrganisationID)
	set("rolleId", query.RolleID)
	set("organisationName", query.OrganisationName)
	set("rolleName", query.RolleName)
	if query.Limit > 0 {
		set("limit", strconv.Itoa(query.Limit))
	}

	step := new(workflow.Step)
	if err := c.do(ctx, rest.Get, "/api/personenkontext-workflow/step", q, nil, step); err != nil {
		return nil, err
	}
	return step, nil
}

func (c *Client) PersonenUebersicht(ctx context.Context, personID string) (*zuordnung.Uebersicht, error) {
	ue := new(zuordnung.Uebersicht)
	if err := c.do(ctx, rest.Get, "/api/dbiam/personenuebersicht/"+escape(personID), nil, nil, ue); err != nil {
		return nil, err
	}
	return ue, nil
}

func (c *Client) UpdateZuordnungen(ctx context.Context, personID string, req zuordnung.UpdateRequest) error {
	return c.do(ctx, rest.Put, "/api/personenkontext-workflow/"+escape(personID), nil, req, nil)
}

func (c *Client) GetPerson(ctx context.Context, personID string) (*person.Person, error) {
	var res struct {
		Person person.Person `json:"person"`
	}
	if err := c.do(ctx, rest.Get, "/api/personen/"+escape(personID), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res.Person, nil
}

func (c *Client) DeletePerson(ctx context.Context, personID string) error {
	return c.do(ctx, rest.Delete, "/api/personen/"+escape(personID), nil, nil, nil)
}

// ResetPassword returns the generated password.
func (c *Client) ResetPassword(ctx context.Context, personID string) (string, error) {
	var raw json.RawMessage
	if err := c.do(ctx, rest.Patch, "/api/personen/"+escape(personID)+"/password", nil, nil, &raw); err != nil {
		return "", err
	}
	var pwd string
	if err := json.Unmarshal(raw, &pwd); err != nil {
		return string(raw), nil
	}
	return pwd, nil
}
