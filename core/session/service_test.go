package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/bulk"
)

type mapRepository map[string]*Session

func (m mapRepository) Get(id string) (*Session, error) {
	if s, ok := m[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m mapRepository) Save(s *Session) error { m[s.ID] = s; return nil }

func (m mapRepository) Delete(id string) error {
	if _, ok := m[id]; !ok {
		return ErrNotFound
	}
	delete(m, id)
	return nil
}

func (m mapRepository) QueryIdle(before time.Time) ([]*Session, error) {
	idle := make([]*Session, 0)
	for _, s := range m {
		if s.LastSeen().Before(before) {
			idle = append(idle, s)
		}
	}
	return idle, nil
}

func (m mapRepository) Count() int { return len(m) }

// idleRepository touches the sessions it returns, as an admin request would between query and close.
type idleRepository struct {
	mapRepository
	touch func(s *Session)
}

func (r idleRepository) QueryIdle(before time.Time) ([]*Session, error) {
	idle, err := r.mapRepository.QueryIdle(before)
	for _, s := range idle {
		r.touch(s)
	}
	return idle, err
}

func newTestService(repo Repository, created *int) *Service {
	factory := func(token string, admin core.Admin) *Session {
		*created++
		return &Session{Bulk: bulk.NewOrchestrator(bulk.NewStore(), nil, nil)}
	}
	return NewService(repo, factory, 30*time.Minute, core.NopLogger{})
}

func TestService_Open(t *testing.T) {
	repo := mapRepository{}
	var created int
	svc := newTestService(repo, &created)
	admin := core.Admin{ID: "a-1", Username: "admin"}

	s1, err := svc.Open("tok", admin)
	require.NoError(t, err)
	s2, err := svc.Open("tok", admin)
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, 1, created)
	assert.Equal(t, "a-1", s1.ID)
	assert.Equal(t, "tok", s1.Token())
	assert.Equal(t, admin, s1.Admin)
	assert.False(t, s1.LastSeen().IsZero())

	_, err = svc.Open("other", core.Admin{ID: "a-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.Count())

	_, err = svc.Open("tok", core.Admin{})
	assert.IsType(t, &core.ArgumentError{}, err)
	assert.Equal(t, 2, repo.Count())
}

func TestService_OpenRefreshedToken(t *testing.T) {
	repo := mapRepository{}
	var created int
	svc := newTestService(repo, &created)
	admin := core.Admin{ID: "a-1", Username: "admin"}

	before, err := svc.Open("token-before-refresh", admin)
	require.NoError(t, err)
	var tokens []string
	before.OnToken = func(token string) { tokens = append(tokens, token) }

	release := make(chan struct{})
	defer close(release)
	job, err := before.Bulk.Prepare(bulk.TypeDeletePerson, []string{"p-1"}, func(ctx context.Context, _ string) (string, error) {
		<-release
		return "", nil
	}, "")
	require.NoError(t, err)
	go job.Run(context.Background())

	after, err := svc.Open("token-after-refresh", admin)
	require.NoError(t, err)

	assert.Same(t, before, after)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, repo.Count())
	assert.Equal(t, "token-after-refresh", after.Token())
	assert.Equal(t, []string{"token-after-refresh"}, tokens)

	op := after.Bulk.Store().Snapshot()
	assert.True(t, op.IsRunning)
	assert.Equal(t, before.Bulk.Store().Snapshot().ID, op.ID)
	assert.True(t, after.Busy())
}

func TestService_Sweep(t *testing.T) {
	repo := mapRepository{}
	var created int
	svc := newTestService(repo, &created)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now.Add(-time.Hour) }
	defer func() { nowFunc = time.Now }()

	idle, err := svc.Open("tok-1", core.Admin{ID: "idle"})
	require.NoError(t, err)
	busy, err := svc.Open("tok-2", core.Admin{ID: "busy"})
	require.NoError(t, err)
	_, err = busy.Bulk.Prepare(bulk.TypeDeletePerson, []string{"p-1"}, func(context.Context, string) (string, error) {
		return "", nil
	}, "")
	require.NoError(t, err)

	nowFunc = func() time.Time { return now }
	_, err = svc.Open("tok-3", core.Admin{ID: "active"})
	require.NoError(t, err)

	closed, err := svc.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	_, err = repo.Get("idle")
	assert.Equal(t, ErrNotFound, err)
	assert.Equal(t, 2, repo.Count())
	assert.False(t, idle.Busy())
	assert.True(t, busy.Busy())
}

func TestService_SweepSkipsTouched(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now.Add(-time.Hour) }
	defer func() { nowFunc = time.Now }()

	repo := idleRepository{
		mapRepository: mapRepository{},
		touch: func(s *Session) {
			if s.ID == "returning" {
				s.Touch(now)
			}
		},
	}
	var created int
	svc := newTestService(repo, &created)

	_, err := svc.Open("tok-1", core.Admin{ID: "idle"})
	require.NoError(t, err)
	returning, err := svc.Open("tok-2", core.Admin{ID: "returning"})
	require.NoError(t, err)

	nowFunc = func() time.Time { return now }
	closed, err := svc.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	s, err := repo.Get("returning")
	require.NoError(t, err)
	assert.Same(t, returning, s)
	_, err = repo.Get("idle")
	assert.Equal(t, ErrNotFound, err)
}

func TestService_Close(t *testing.T) {
	repo := mapRepository{}
	var created int
	svc := newTestService(repo, &created)

	s, err := svc.Open("tok", core.Admin{ID: "a-1"})
	require.NoError(t, err)
	_, err = s.Bulk.Run(context.Background(), bulk.TypeDeletePerson, []string{"p-1"}, func(context.Context, string) (string, error) {
		return "", nil
	}, "")
	require.NoError(t, err)

	require.NoError(t, svc.Close("a-1"))
	assert.Empty(t, s.Bulk.Store().Snapshot().Data, "state is reset")
	assert.Equal(t, ErrNotFound, svc.Close("a-1"))
}
