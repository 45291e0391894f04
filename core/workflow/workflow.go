// Package workflow implements the cascading organisation → rolle → klasse selection.
// The backend is authoritative on which options are valid and on whether the selection can be committed.
package workflow

import (
	"context"
	"sync"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
	"github.com/trezcool/schulportal/core/organisation"
	"github.com/trezcool/schulportal/core/search"
)

const DefaultLimit = 25

type (
	Option func(*Workflow)

	Workflow struct {
		backend  Backend
		limit    int
		logger   core.Logger
		srchOpts []search.Option

		orgSearch    *search.Coordinator
		rolleSearch  *search.Coordinator
		klasseSearch *search.Coordinator

		mu        sync.Mutex
		state     State
		listeners map[int]func(State)
		nextID    int
	}
)

func WithLimit(limit int) Option {
	return func(w *Workflow) {
		if limit > 0 {
			w.limit = limit
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

// WithSearchOptions configures the three search coordinators (clock, delay, context).
func WithSearchOptions(opts ...search.Option) Option {
	return func(w *Workflow) { w.srchOpts = append(w.srchOpts, opts...) }
}

func New(backend Backend, opts ...Option) *Workflow {
	w := &Workflow{
		backend:   backend,
		limit:     DefaultLimit,
		logger:    core.NopLogger{},
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(w)
	}

	srchOpts := append([]search.Option{
		search.WithLogger(w.logger),
		search.WithErrorFunc(w.setErrorCode),
	}, w.srchOpts...)
	w.orgSearch = search.NewCoordinator("organisation", w.fetchOrganisationen, srchOpts...)
	w.rolleSearch = search.NewCoordinator("rolle", w.fetchRollen, srchOpts...)
	w.klasseSearch = search.NewCoordinator("klasse", w.fetchKlassen, srchOpts...)
	return w
}

// Snapshot returns a copy of the current state.
func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// Subscribe registers `fn` to be called with a snapshot after every change.
func (w *Workflow) Subscribe(fn func(State)) (unsubscribe func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

// apply runs `fn` on the state and, when it reports a change, notifies the listeners.
func (w *Workflow) apply(fn func(s *State) bool) bool {
	w.mu.Lock()
	if !fn(&w.state) {
		w.mu.Unlock()
		return false
	}
	snapshot := w.state.clone()
	listeners := make([]func(State), 0, len(w.listeners))
	for _, l := range w.listeners {
		listeners = append(listeners, l)
	}
	w.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
	return true
}

func (w *Workflow) update(fn func(s *State)) {
	w.apply(func(s *State) bool {
		fn(s)
		return true
	})
}

func (w *Workflow) setErrorCode(code string) {
	w.update(func(s *State) { s.ErrorCode = code })
}

func (w *Workflow) fail(msg string, err error) {
	code := errcode.Extract(err)
	w.logger.Warn(msg, err, map[string]interface{}{"code": code})
	w.setErrorCode(code)
}

// Load fetches the options for the current selection.
func (w *Workflow) Load(ctx context.Context) {
	s := w.Snapshot()
	step, err := w.backend.WorkflowStep(ctx, StepQuery{
		OrganisationID: s.SelectedOrganisation,
		RolleID:        s.SelectedRolle,
		Limit:          w.limit,
	})
	if err != nil {
		w.fail("workflow.Load", err)
		return
	}
	w.update(func(s *State) {
		s.Organisationen = step.Organisations
		s.Rollen = step.Rollen
		s.CanCommit = step.CanCommit
		s.ErrorCode = ""
	})
}

// SelectOrganisation changes the selected Organisation. Selecting the current one again does nothing.
// Any change resets the dependent selections; a non-empty one refreshes the Rollen and Klassen options.
func (w *Workflow) SelectOrganisation(ctx context.Context, id string) {
	changed := w.apply(func(s *State) bool {
		if id == s.SelectedOrganisation {
			return false
		}
		s.SelectedOrganisation = id
		s.SelectedRolle = ""
		s.SelectedKlasse = ""
		s.Rollen = nil
		s.Klassen = nil
		s.CanCommit = false
		s.ErrorCode = ""
		return true
	})
	if !changed {
		return
	}
	w.rolleSearch.Cancel()
	w.klasseSearch.Cancel()
	if id == "" {
		return
	}

	step, err := w.backend.WorkflowStep(ctx, StepQuery{OrganisationID: id, Limit: w.limit})
	if err != nil {
		w.fail("workflow.SelectOrganisation", err)
		return
	}
	w.update(func(s *State) {
		if len(step.Organisations) > 0 {
			s.Organisationen = step.Organisations
		}
		s.Rollen = step.Rollen
		s.CanCommit = step.CanCommit
	})
	w.keepSelectedOrganisation(ctx, id, step.SelectedOrganisation)

	w.refreshKlassen(ctx, id, "")
}

// keepSelectedOrganisation adds the selected Organisation to the options when the step left it out,
// so that its title still resolves. Lookup failures are only logged.
func (w *Workflow) keepSelectedOrganisation(ctx context.Context, id string, org *organisation.Organisation) {
	if _, ok := organisation.FindByID(w.Snapshot().Organisationen, id); ok {
		return
	}
	if org == nil || org.ID != id {
		var err error
		if org, err = w.backend.GetOrganisation(ctx, id); err != nil {
			w.logger.Warn("workflow.GetOrganisation", err, map[string]interface{}{"id": id, "code": errcode.Extract(err)})
			return
		}
	}
	w.apply(func(s *State) bool {
		if s.SelectedOrganisation != id {
			return false
		}
		if _, ok := organisation.FindByID(s.Organisationen, id); ok {
			return false
		}
		s.Organisationen = append([]organisation.Organisation{*org}, s.Organisationen...)
		return true
	})
}

// SelectRolle changes the selected Rolle. Selecting the current one again does nothing.
// A non-empty Rolle fetches the step for the (organisation, rolle) pair, which decides CanCommit.
func (w *Workflow) SelectRolle(ctx context.Context, id string) {
	var orgID string
	changed := w.apply(func(s *State) bool {
		if id == s.SelectedRolle {
			return false
		}
		orgID = s.SelectedOrganisation
		s.SelectedRolle = id
		s.SelectedKlasse = ""
		s.CanCommit = false
		s.ErrorCode = ""
		return true
	})
	if !changed {
		return
	}
	w.klasseSearch.Cancel()
	if id == "" {
		return
	}

	step, err := w.backend.WorkflowStep(ctx, StepQuery{OrganisationID: orgID, RolleID: id, Limit: w.limit})
	if err != nil {
		w.fail("workflow.SelectRolle", err)
		return
	}
	w.update(func(s *State) {
		if len(step.Rollen) > 0 {
			s.Rollen = step.Rollen
		}
		s.CanCommit = step.CanCommit
	})
}

// SelectKlasse records the selected Klasse.
func (w *Workflow) SelectKlasse(id string) {
	w.update(func(s *State) { s.SelectedKlasse = id })
}

// SearchOrganisationen debounces a search in the Organisation options. It reports whether a fetch was scheduled.
func (w *Workflow) SearchOrganisationen(searchValue string) bool {
	s := w.Snapshot()
	return w.orgSearch.Search(searchValue, s.SelectedOrganisation, s.OrganisationTitle())
}

func (w *Workflow) SearchRollen(searchValue string) bool {
	s := w.Snapshot()
	return w.rolleSearch.Search(searchValue, s.SelectedRolle, s.RolleTitle())
}

func (w *Workflow) SearchKlassen(searchValue string) bool {
	s := w.Snapshot()
	return w.klasseSearch.Search(searchValue, s.SelectedKlasse, s.KlasseTitle())
}

// Reset clears the state and cancels pending searches. Listeners stay subscribed.
func (w *Workflow) Reset() {
	w.orgSearch.Cancel()
	w.rolleSearch.Cancel()
	w.klasseSearch.Cancel()
	w.update(func(s *State) { *s = State{} })
}

func (w *Workflow) fetchOrganisationen(ctx context.Context, searchValue string) error {
	step, err := w.backend.WorkflowStep(ctx, StepQuery{OrganisationName: searchValue, Limit: w.limit})
	if err != nil {
		return err
	}
	w.update(func(s *State) { s.Organisationen = step.Organisations })
	return nil
}

func (w *Workflow) fetchRollen(ctx context.Context, searchValue string) error {
	orgID := w.Snapshot().SelectedOrganisation
	if orgID == "" {
		return nil
	}
	step, err := w.backend.WorkflowStep(ctx, StepQuery{OrganisationID: orgID, RolleName: searchValue, Limit: w.limit})
	if err != nil {
		return err
	}
	w.update(func(s *State) { s.Rollen = step.Rollen })
	return nil
}

func (w *Workflow) fetchKlassen(ctx context.Context, searchValue string) error {
	orgID := w.Snapshot().SelectedOrganisation
	if orgID == "" {
		return nil
	}
	return w.loadKlassen(ctx, orgID, searchValue)
}

func (w *Workflow) refreshKlassen(ctx context.Context, orgID, searchValue string) {
	if err := w.loadKlassen(ctx, orgID, searchValue); err != nil {
		w.fail("workflow.refreshKlassen", err)
	}
}

func (w *Workflow) loadKlassen(ctx context.Context, orgID, searchValue string) error {
	klassen, err := w.backend.QueryOrganisationen(ctx, organisation.QueryFilter{
		SearchString:     searchValue,
		Typ:              organisation.TypKlasse,
		AdministriertVon: []string{orgID},
		Limit:            w.limit,
	})
	if err != nil {
		return err
	}
	organisation.SortByTitle(klassen)
	w.update(func(s *State) { s.Klassen = klassen })
	return nil
}
