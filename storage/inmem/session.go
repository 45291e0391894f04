package inmem

import (
	"sync"
	"time"

	"github.com/trezcool/schulportal/core/session"
)

type sessionRepository struct {
	mutex sync.RWMutex
	table map[string]*session.Session
}

func NewSessionRepository() session.Repository {
	return &sessionRepository{table: make(map[string]*session.Session)}
}

func (repo *sessionRepository) Get(id string) (*session.Session, error) {
	repo.mutex.RLock()
	defer repo.mutex.RUnlock()

	if s, ok := repo.table[id]; ok {
		return s, nil
	}
	return nil, session.ErrNotFound
}

func (repo *sessionRepository) Save(s *session.Session) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	repo.table[s.ID] = s
	return nil
}

func (repo *sessionRepository) Delete(id string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	if _, ok := repo.table[id]; !ok {
		return session.ErrNotFound
	}
	delete(repo.table, id)
	return nil
}

func (repo *sessionRepository) QueryIdle(before time.Time) ([]*session.Session, error) {
	repo.mutex.RLock()
	defer repo.mutex.RUnlock()

	idle := make([]*session.Session, 0)
	for _, s := range repo.table {
		if s.LastSeen().Before(before) {
			idle = append(idle, s)
		}
	}
	return idle, nil
}

func (repo *sessionRepository) Count() int {
	repo.mutex.RLock()
	defer repo.mutex.RUnlock()
	return len(repo.table)
}
