// Package session scopes workflow and bulk state to one admin session.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/bulk"
	"github.com/trezcool/schulportal/core/workflow"
)

var ErrNotFound = errors.New("session not found")

type (
	// Backend is the backend API, acting on behalf of the session's admin.
	Backend interface {
		workflow.Backend
		bulk.Backend
	}

	// Session holds the state of one admin. It outlives token refreshes.
	Session struct {
		ID        string // admin ID
		Admin     core.Admin
		Backend   Backend
		Workflow  *workflow.Workflow
		Bulk      *bulk.Orchestrator
		CreatedAt time.Time
		// OnToken is called with every new token of the admin.
		OnToken func(token string)

		mu       sync.Mutex
		token    string
		lastSeen time.Time
	}

	Repository interface {
		Get(id string) (*Session, error)
		Save(s *Session) error
		Delete(id string) error
		// QueryIdle returns the sessions not seen since `before`.
		QueryIdle(before time.Time) ([]*Session, error)
		Count() int
	}

	// Factory builds the state of a new session.
	Factory func(token string, admin core.Admin) *Session
)

// Token returns the latest bearer token of the admin.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetToken records the admin's current token and hands it to OnToken when it changed.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	changed := s.token != token
	s.token = token
	s.mu.Unlock()

	if changed && s.OnToken != nil {
		s.OnToken(token)
	}
}

func (s *Session) Touch(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = at
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Busy reports whether a bulk operation is running.
func (s *Session) Busy() bool {
	return s.Bulk != nil && s.Bulk.Store().Snapshot().IsRunning
}

// Reset discards the workflow and bulk state.
func (s *Session) Reset() {
	if s.Workflow != nil {
		s.Workflow.Reset()
	}
	if s.Bulk != nil {
		s.Bulk.Store().Reset()
	}
}
