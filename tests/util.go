package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
	"github.com/trezcool/schulportal/core/organisation"
	"github.com/trezcool/schulportal/core/person"
	"github.com/trezcool/schulportal/core/rolle"
	"github.com/trezcool/schulportal/core/workflow"
	"github.com/trezcool/schulportal/core/zuordnung"
)

// Fixtures
var (
	SchuleA  = organisation.Organisation{ID: "schule-a", Kennung: "0815", Name: "Schule A", Typ: organisation.TypSchule}
	SchuleB  = organisation.Organisation{ID: "schule-b", Kennung: "0816", Name: "Schule B", Typ: organisation.TypSchule}
	Klasse1a = organisation.Organisation{ID: "klasse-1a", Name: "1a", Typ: organisation.TypKlasse, AdministriertVon: "schule-a"}
	Klasse1b = organisation.Organisation{ID: "klasse-1b", Name: "1b", Typ: organisation.TypKlasse, AdministriertVon: "schule-a"}

	RolleLehr = rolle.Rolle{ID: "rolle-lehr", Name: "Lehrkraft", RollenArt: rolle.ArtLehr}
	RolleLern = rolle.Rolle{ID: "rolle-lern", Name: "SuS", RollenArt: rolle.ArtLern}

	MaxMuster   = person.Person{ID: "p-1", Benutzername: "mmuster", Name: person.Name{Vorname: "Max", Familienname: "Muster"}}
	ErikaMuster = person.Person{ID: "p-2", Benutzername: "emuster", Name: person.Name{Vorname: "Erika", Familienname: "Muster"}}
	LisaLernt   = person.Person{ID: "p-3", Benutzername: "llernt", Name: person.Name{Vorname: "Lisa", Familienname: "Lernt"}}
)

// Config returns a test configuration pointing at `backendURL`.
func Config(backendURL string) *core.Config {
	return &core.Config{
		Env:      "TEST",
		TestMode: true,
		AppName:  "Schulportal",
		Locale:   "de",
		Backend:  core.BackendConfig{BaseURL: backendURL, Timeout: 5 * time.Second},
		Search:   core.SearchConfig{Delay: 10 * time.Millisecond},
		Workflow: core.WorkflowConfig{Limit: 25},
		Bulk:     core.BulkConfig{Concurrency: 1},
		Session:  core.SessionConfig{IdleTTL: time.Hour, SweepInterval: time.Minute},
		Email:    core.EmailConfig{From: "noreply@schule.test"},
	}
}

// Token returns a bearer token naming `username`; signatures are not checked by the console.
func Token(t *testing.T, subject, username string) string {
	claims := jwt.MapClaims{
		"sub":                subject,
		"preferred_username": username,
		"email":              username + "@schule.test",
		"exp":                time.Now().Add(time.Hour).Unix(),
		"jti":                uuid.New().String(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	return token
}

// FakeBackend is an in-memory school-portal backend.
type FakeBackend struct {
	mu          sync.Mutex
	Persons     map[string]person.Person
	Uebersicht  map[string]zuordnung.Uebersicht
	Updates     map[string]zuordnung.UpdateRequest
	Deleted     []string
	Fail        map[string]string // personID -> i18nKey
	StepQueries []workflow.StepQuery
	Tokens      []string
	// Gate holds person deletions until it is closed.
	Gate chan struct{}
}

func NewFakeBackend() *FakeBackend {
	lehr := func(org organisation.Organisation) zuordnung.Zuordnung {
		return zuordnung.Zuordnung{
			SSKID: org.ID, SSKName: org.Name, SSKDstNr: org.Kennung, RolleID: RolleLehr.ID, Rolle: RolleLehr.Name,
			RollenArt: rolle.ArtLehr, Typ: org.Typ, AdministriertVon: org.AdministriertVon, Editable: true,
		}
	}
	lern := func(org organisation.Organisation) zuordnung.Zuordnung {
		return zuordnung.Zuordnung{
			SSKID: org.ID, SSKName: org.Name, SSKDstNr: org.Kennung, RolleID: RolleLern.ID, Rolle: RolleLern.Name,
			RollenArt: rolle.ArtLern, Typ: org.Typ, AdministriertVon: org.AdministriertVon, Editable: true,
		}
	}

	return &FakeBackend{
		Persons: map[string]person.Person{
			MaxMuster.ID:   MaxMuster,
			ErikaMuster.ID: ErikaMuster,
			LisaLernt.ID:   LisaLernt,
		},
		Uebersicht: map[string]zuordnung.Uebersicht{
			MaxMuster.ID: {
				PersonID: MaxMuster.ID, LastModifiedZuordnungen: "2024-01-01T00:00:00Z",
				Zuordnungen: []zuordnung.Zuordnung{lehr(SchuleA), lehr(SchuleB)},
			},
			ErikaMuster.ID: {
				PersonID: ErikaMuster.ID, LastModifiedZuordnungen: "2024-01-01T00:00:00Z",
				Zuordnungen: []zuordnung.Zuordnung{lehr(SchuleA)},
			},
			LisaLernt.ID: {
				PersonID: LisaLernt.ID, LastModifiedZuordnungen: "2024-01-01T00:00:00Z",
				Zuordnungen: []zuordnung.Zuordnung{lern(SchuleA), lern(Klasse1a)},
			},
		},
		Updates: map[string]zuordnung.UpdateRequest{},
		Fail:    map[string]string{},
	}
}

func (b *FakeBackend) Lock()   { b.mu.Lock() }
func (b *FakeBackend) Unlock() { b.mu.Unlock() }

// Server serves the backend REST API. It is closed when the test ends.
func (b *FakeBackend) Server(t *testing.T) *httptest.Server {
	app := echo.New()
	app.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			b.mu.Lock()
			b.Tokens = append(b.Tokens, ctx.Request().Header.Get("Authorization"))
			b.mu.Unlock()
			return next(ctx)
		}
	})

	app.GET("/api/organisationen", b.queryOrganisationen)
	app.GET("/api/organisationen/:id", b.getOrganisation)
	app.GET("/api/rolle", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, []rolle.Rolle{RolleLehr, RolleLern})
	})
	app.GET("/api/rolle/:id", b.getRolle)
	app.GET("/api/personenkontext-workflow/step", b.workflowStep)
	app.PUT("/api/personenkontext-workflow/:id", b.updateZuordnungen)
	app.GET("/api/dbiam/personenuebersicht/:id", b.personenUebersicht)
	app.GET("/api/personen/:id", b.getPerson)
	app.DELETE("/api/personen/:id", b.deletePerson)
	app.PATCH("/api/personen/:id/password", b.resetPassword)

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return srv
}

func backendError(ctx echo.Context, status int, code string) error {
	return ctx.JSON(status, echo.Map{"code": status, "i18nKey": code})
}

// failing must be called with the lock held.
func (b *FakeBackend) failing(ctx echo.Context, personID string) (bool, error) {
	if code, ok := b.Fail[personID]; ok {
		return true, backendError(ctx, http.StatusBadRequest, code)
	}
	if _, ok := b.Persons[personID]; !ok {
		return true, backendError(ctx, http.StatusNotFound, errcode.PersonNotFound)
	}
	return false, nil
}

func (b *FakeBackend) queryOrganisationen(ctx echo.Context) error {
	typ := organisation.Typ(ctx.QueryParam("typ"))
	administriertVon := ctx.QueryParams()["administriertVon"]
	orgs := make([]organisation.Organisation, 0)
	for _, o := range []organisation.Organisation{SchuleA, SchuleB, Klasse1a, Klasse1b} {
		if typ != "" && o.Typ != typ {
			continue
		}
		if len(administriertVon) > 0 && !contains(administriertVon, o.AdministriertVon) {
			continue
		}
		orgs = append(orgs, o)
	}
	return ctx.JSON(http.StatusOK, orgs)
}

func (b *FakeBackend) getOrganisation(ctx echo.Context) error {
	for _, o := range []organisation.Organisation{SchuleA, SchuleB, Klasse1a, Klasse1b} {
		if o.ID == ctx.Param("id") {
			return ctx.JSON(http.StatusOK, o)
		}
	}
	return backendError(ctx, http.StatusNotFound, errcode.EntityNotFound)
}

func (b *FakeBackend) getRolle(ctx echo.Context) error {
	for _, r := range []rolle.Rolle{RolleLehr, RolleLern} {
		if r.ID == ctx.Param("id") {
			return ctx.JSON(http.StatusOK, r)
		}
	}
	return backendError(ctx, http.StatusNotFound, errcode.EntityNotFound)
}

// workflowStep allows committing Lehrkraft at any Schule.
func (b *FakeBackend) workflowStep(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	query := workflow.StepQuery{
		OrganisationID:   ctx.QueryParam("organisationId"),
		RolleID:          ctx.QueryParam("rolleId"),
		OrganisationName: ctx.QueryParam("organisationName"),
		RolleName:        ctx.QueryParam("rolleName"),
		Limit:            limit,
	}
	b.mu.Lock()
	b.StepQueries = append(b.StepQueries, query)
	b.mu.Unlock()

	step := workflow.Step{Organisations: []organisation.Organisation{SchuleA, SchuleB}}
	if query.OrganisationID != "" {
		step.Rollen = []rolle.Rolle{RolleLehr, RolleLern}
	}
	if query.RolleID != "" {
		step.CanCommit = query.RolleID == RolleLehr.ID
	}
	return ctx.JSON(http.StatusOK, step)
}

func (b *FakeBackend) personenUebersicht(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if failed, err := b.failing(ctx, ctx.Param("id")); failed {
		return err
	}
	return ctx.JSON(http.StatusOK, b.Uebersicht[ctx.Param("id")])
}

func (b *FakeBackend) updateZuordnungen(ctx echo.Context) error {
	var req zuordnung.UpdateRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if failed, err := b.failing(ctx, ctx.Param("id")); failed {
		return err
	}
	b.Updates[ctx.Param("id")] = req
	return ctx.JSON(http.StatusOK, echo.Map{"dBiamPersonenkontextResponses": req.Personenkontexte})
}

func (b *FakeBackend) getPerson(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.Persons[ctx.Param("id")]
	if !ok {
		return backendError(ctx, http.StatusNotFound, errcode.PersonNotFound)
	}
	return ctx.JSON(http.StatusOK, echo.Map{"person": p})
}

func (b *FakeBackend) deletePerson(ctx echo.Context) error {
	b.mu.Lock()
	gate := b.Gate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if failed, err := b.failing(ctx, ctx.Param("id")); failed {
		return err
	}
	b.Deleted = append(b.Deleted, ctx.Param("id"))
	return ctx.NoContent(http.StatusNoContent)
}

func (b *FakeBackend) resetPassword(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if failed, err := b.failing(ctx, ctx.Param("id")); failed {
		return err
	}
	return ctx.JSON(http.StatusAccepted, "pwd-"+ctx.Param("id"))
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
