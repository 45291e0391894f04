package session

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schulportal/core"
)

var nowFunc = time.Now // mockable

type Service struct {
	repo    Repository
	factory Factory
	idleTTL time.Duration
	logger  core.Logger

	mu sync.Mutex // serializes Open, Close and Sweep
}

func NewService(repo Repository, factory Factory, idleTTL time.Duration, logger core.Logger) *Service {
	return &Service{repo: repo, factory: factory, idleTTL: idleTTL, logger: logger}
}

// Open returns the session of `admin`, creating it on first use.
// A refreshed `token` replaces the previous one, so running bulk operations stay visible and keep working.
func (svc *Service) Open(token string, admin core.Admin) (*Session, error) {
	if admin.ID == "" {
		return nil, core.NewArgumentError("admin ID is required")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	now := nowFunc()
	s, err := svc.repo.Get(admin.ID)
	switch {
	case err == nil:
		s.Admin = admin
	case errors.Cause(err) == ErrNotFound:
		s = svc.factory(token, admin)
		s.ID = admin.ID
		s.Admin = admin
		s.CreatedAt = now
		if err := svc.repo.Save(s); err != nil {
			return nil, errors.Wrap(err, "session.Save")
		}
		svc.logger.Debug("session opened", admin)
	default:
		return nil, errors.Wrap(err, "session.Get")
	}
	s.SetToken(token)
	s.Touch(now)
	return s, nil
}

// Close resets and forgets the session `id`. Running bulk operations are dropped.
func (svc *Service) Close(id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.closeLocked(id)
}

func (svc *Service) closeLocked(id string) error {
	s, err := svc.repo.Get(id)
	if err != nil {
		return err
	}
	s.Reset()
	return svc.repo.Delete(id)
}

// Sweep closes the sessions idle for longer than the idle TTL, unless a bulk operation is running.
// It returns how many were closed.
func (svc *Service) Sweep() (int, error) {
	if svc.idleTTL <= 0 {
		return 0, nil
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	cutoff := nowFunc().Add(-svc.idleTTL)
	idle, err := svc.repo.QueryIdle(cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "session.QueryIdle")
	}
	var closed int
	for _, s := range idle {
		if s.Busy() || !s.LastSeen().Before(cutoff) {
			continue
		}
		if err := svc.closeLocked(s.ID); err != nil && errors.Cause(err) != ErrNotFound {
			return closed, err
		}
		closed++
	}
	return closed, nil
}

// Count returns the number of open sessions.
func (svc *Service) Count() int { return svc.repo.Count() }
