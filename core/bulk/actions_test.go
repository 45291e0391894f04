package bulk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
	"github.com/trezcool/schulportal/core/organisation"
	"github.com/trezcool/schulportal/core/person"
	"github.com/trezcool/schulportal/core/rolle"
	"github.com/trezcool/schulportal/core/zuordnung"
)

const (
	schuleID = "schule-1"
	lernID   = "rolle-lern"
	lehrID   = "rolle-lehr"
)

var (
	lernRolle = rolle.Rolle{ID: lernID, Name: "SuS", RollenArt: rolle.ArtLern}
	lehrRolle = rolle.Rolle{ID: lehrID, Name: "Lehrkraft", RollenArt: rolle.ArtLehr, Merkmale: []rolle.Merkmal{rolle.MerkmalBefristungPflicht}}
)

type fakeBackend struct {
	persons    map[string]person.Person
	rollen     map[string]rolle.Rolle
	uebersicht map[string]zuordnung.Uebersicht
	updates    map[string]zuordnung.UpdateRequest
	deleted    []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		persons:    map[string]person.Person{},
		rollen:     map[string]rolle.Rolle{lernID: lernRolle, lehrID: lehrRolle},
		uebersicht: map[string]zuordnung.Uebersicht{},
		updates:    map[string]zuordnung.UpdateRequest{},
	}
}

func (b *fakeBackend) GetPerson(_ context.Context, id string) (*person.Person, error) {
	p, ok := b.persons[id]
	if !ok {
		return nil, errcode.New(errcode.PersonNotFound)
	}
	return &p, nil
}

func (b *fakeBackend) DeletePerson(_ context.Context, id string) error {
	if _, ok := b.persons[id]; !ok {
		return errcode.New(errcode.PersonNotFound)
	}
	b.deleted = append(b.deleted, id)
	return nil
}

func (b *fakeBackend) ResetPassword(_ context.Context, id string) (string, error) {
	if _, ok := b.persons[id]; !ok {
		return "", errcode.New(errcode.PersonNotFound)
	}
	return "pwd-" + id, nil
}

func (b *fakeBackend) GetRolle(_ context.Context, id string) (*rolle.Rolle, error) {
	r, ok := b.rollen[id]
	if !ok {
		return nil, errcode.New(errcode.EntityNotFound)
	}
	return &r, nil
}

func (b *fakeBackend) PersonenUebersicht(_ context.Context, id string) (*zuordnung.Uebersicht, error) {
	ue, ok := b.uebersicht[id]
	if !ok {
		return nil, errcode.New(errcode.PersonNotFound)
	}
	return &ue, nil
}

func (b *fakeBackend) UpdateZuordnungen(_ context.Context, id string, req zuordnung.UpdateRequest) error {
	b.updates[id] = req
	return nil
}

func schuleZuordnung(rolleID string, art rolle.RollenArt, befristung string) zuordnung.Zuordnung {
	return zuordnung.Zuordnung{
		SSKID: schuleID, RolleID: rolleID, RollenArt: art, Typ: organisation.TypSchule,
		AdministriertVon: "traeger-1", Editable: true, Befristung: befristung,
	}
}

func klassenZuordnung(klasseID, rolleID string) zuordnung.Zuordnung {
	return zuordnung.Zuordnung{
		SSKID: klasseID, RolleID: rolleID, RollenArt: rolle.ArtLern, Typ: organisation.TypKlasse,
		AdministriertVon: schuleID, Editable: true,
	}
}

func TestNewAction_Params(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()

	tests := []struct {
		name    string
		typ     Type
		params  Params
		wantErr bool
	}{
		{name: "delete", typ: TypeDeletePerson},
		{name: "reset password", typ: TypeResetPassword},
		{name: "change klasse", typ: TypeChangeKlasse, params: Params{OrganisationID: schuleID, KlasseID: "k-1"}},
		{name: "change klasse without klasse", typ: TypeChangeKlasse, params: Params{OrganisationID: schuleID}, wantErr: true},
		{name: "modify rolle", typ: TypeModifyRolle, params: Params{OrganisationID: schuleID, RolleID: lernID}},
		{name: "modify unknown rolle", typ: TypeModifyRolle, params: Params{OrganisationID: schuleID, RolleID: "nope"}, wantErr: true},
		{name: "org unassign without org", typ: TypeOrgUnassign, wantErr: true},
		{name: "rolle unassign", typ: TypeRolleUnassign, params: Params{OrganisationID: schuleID, RolleID: lehrID}},
		{name: "unknown", typ: Type("LOL"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := NewAction(ctx, backend, tt.typ, tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, action)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, action)
			}
		})
	}

	_, err := NewAction(ctx, backend, TypeOrgUnassign, Params{})
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok, "missing parameters are validation errors")
}

func TestResetPassword(t *testing.T) {
	backend := newFakeBackend()
	backend.persons["p-1"] = person.Person{ID: "p-1"}

	pwd, err := ResetPassword(backend)(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "pwd-p-1", pwd)
}

func TestChangeKlasse(t *testing.T) {
	backend := newFakeBackend()
	backend.uebersicht["p-1"] = zuordnung.Uebersicht{
		PersonID:                "p-1",
		LastModifiedZuordnungen: "2024-01-01T00:00:00Z",
		Zuordnungen: []zuordnung.Zuordnung{
			schuleZuordnung(lernID, rolle.ArtLern, "2030-07-31"),
			klassenZuordnung("k-1", lernID),
		},
	}
	backend.uebersicht["p-2"] = zuordnung.Uebersicht{
		Zuordnungen: []zuordnung.Zuordnung{schuleZuordnung(lehrID, rolle.ArtLehr, "")},
	}

	action := ChangeKlasse(backend, schuleID, "k-2")
	_, err := action(context.Background(), "p-1")
	require.NoError(t, err)

	req := backend.updates["p-1"]
	assert.Equal(t, "2024-01-01T00:00:00Z", req.LastModified)
	assert.Equal(t, 2, req.Count)
	assert.Equal(t, []zuordnung.PersonenkontextUpdate{
		{OrganisationID: schuleID, RolleID: lernID, Befristung: "2030-07-31"},
		{OrganisationID: "k-2", RolleID: lernID, Befristung: "2030-07-31"},
	}, req.Personenkontexte)

	_, err = action(context.Background(), "p-2")
	assert.Equal(t, errcode.LernNotAtSchuleAndKlasse, errcode.Extract(err))
}

func TestModifyRolle(t *testing.T) {
	backend := newFakeBackend()
	backend.uebersicht["p-1"] = zuordnung.Uebersicht{
		Zuordnungen: []zuordnung.Zuordnung{schuleZuordnung(lehrID, rolle.ArtLehr, "2024-06-01")},
	}
	backend.uebersicht["p-2"] = zuordnung.Uebersicht{
		Zuordnungen: []zuordnung.Zuordnung{
			schuleZuordnung(lernID, rolle.ArtLern, ""),
			klassenZuordnung("k-1", lernID),
			klassenZuordnung("k-2", lernID),
		},
	}
	backend.uebersicht["p-3"] = zuordnung.Uebersicht{}

	t.Run("earliest befristung wins", func(t *testing.T) {
		_, err := ModifyRolle(backend, schuleID, lehrRolle, "", "2025-01-01")(context.Background(), "p-1")
		require.NoError(t, err)
		assert.Equal(t, []zuordnung.PersonenkontextUpdate{
			{OrganisationID: schuleID, RolleID: lehrID, Befristung: "2024-06-01"},
		}, backend.updates["p-1"].Personenkontexte)
	})

	t.Run("learner klassen updated", func(t *testing.T) {
		_, err := ModifyRolle(backend, schuleID, lernRolle, "", "2031-07-31")(context.Background(), "p-2")
		require.NoError(t, err)
		assert.Equal(t, []zuordnung.PersonenkontextUpdate{
			{OrganisationID: schuleID, RolleID: lernID, Befristung: "2031-07-31"},
			{OrganisationID: "k-1", RolleID: lernID, Befristung: "2031-07-31"},
			{OrganisationID: "k-2", RolleID: lernID, Befristung: "2031-07-31"},
		}, backend.updates["p-2"].Personenkontexte)
	})

	t.Run("befristung required", func(t *testing.T) {
		_, err := ModifyRolle(backend, schuleID, lehrRolle, "", "")(context.Background(), "p-3")
		assert.Equal(t, errcode.BefristungRequired, errcode.Extract(err))
	})

	t.Run("learner without klasse", func(t *testing.T) {
		_, err := ModifyRolle(backend, schuleID, lernRolle, "", "")(context.Background(), "p-3")
		assert.Equal(t, errcode.LernNotAtSchuleAndKlasse, errcode.Extract(err))
	})
}

func TestUnassign(t *testing.T) {
	other := zuordnung.Zuordnung{SSKID: "schule-2", RolleID: lehrID, Typ: organisation.TypSchule, Editable: true}
	readOnly := zuordnung.Zuordnung{SSKID: "schule-2", RolleID: lehrID, Typ: organisation.TypSchule, Editable: false}

	tests := []struct {
		name     string
		action   func(Backend) Action
		current  []zuordnung.Zuordnung
		want     []zuordnung.PersonenkontextUpdate
		wantCode string
	}{
		{
			name:    "org unassign keeps other organisations",
			action:  func(b Backend) Action { return OrgUnassign(b, schuleID) },
			current: []zuordnung.Zuordnung{schuleZuordnung(lernID, rolle.ArtLern, ""), klassenZuordnung("k-1", lernID), other},
			want:    []zuordnung.PersonenkontextUpdate{{OrganisationID: "schule-2", RolleID: lehrID}},
		},
		{
			name:     "org unassign leaving nothing editable",
			action:   func(b Backend) Action { return OrgUnassign(b, schuleID) },
			current:  []zuordnung.Zuordnung{schuleZuordnung(lernID, rolle.ArtLern, ""), klassenZuordnung("k-1", lernID), readOnly},
			wantCode: errcode.NoEditableZuordnungLeft,
		},
		{
			name:    "rolle unassign",
			action:  func(b Backend) Action { return RolleUnassign(b, schuleID, lernID) },
			current: []zuordnung.Zuordnung{schuleZuordnung(lernID, rolle.ArtLern, ""), klassenZuordnung("k-1", lernID), schuleZuordnung(lehrID, rolle.ArtLehr, "")},
			want:    []zuordnung.PersonenkontextUpdate{{OrganisationID: schuleID, RolleID: lehrID}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.uebersicht["p-1"] = zuordnung.Uebersicht{Zuordnungen: tt.current}

			_, err := tt.action(backend)(context.Background(), "p-1")
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errcode.Extract(err))
				assert.Empty(t, backend.updates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, backend.updates["p-1"].Personenkontexte)
			assert.Equal(t, len(tt.current), backend.updates["p-1"].Count)
		})
	}
}
