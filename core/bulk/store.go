package bulk

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/schulportal/core/errcode"
)

// ErrOperationRunning is returned when starting an operation while another one runs.
var ErrOperationRunning = errcode.New(errcode.OperationRunning, "a bulk operation is already running")

var nowFunc = time.Now // mockable

// Store holds the one active operation of its owner.
// Every Begin and Reset starts a new generation; updates from an older generation are ignored.
type Store struct {
	mu  sync.RWMutex
	op  Operation
	gen uint64
}

func NewStore() *Store {
	return &Store{op: emptyOperation()}
}

// Snapshot returns a copy of the current operation.
func (s *Store) Snapshot() Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.op.clone()
}

// Begin starts a new operation over `targetIDs` and returns its generation.
func (s *Store) Begin(typ Type, targetIDs []string, successMessage string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.op.IsRunning {
		return 0, ErrOperationRunning
	}

	s.gen++
	s.op = emptyOperation()
	s.op.ID = uuid.New().String()
	s.op.Type = typ
	s.op.TargetIDs = append(s.op.TargetIDs, targetIDs...)
	s.op.IsRunning = true
	s.op.SuccessMessage = successMessage
	started := nowFunc()
	s.op.StartedAt = &started
	if len(targetIDs) == 0 {
		s.finishLocked()
	}
	return s.gen, nil
}

// Active reports whether `gen` is still the current generation.
func (s *Store) Active(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gen == s.gen && s.op.IsRunning
}

// RecordSuccess stores the result of a target. It reports false when `gen` is stale.
func (s *Store) RecordSuccess(gen uint64, targetID, result string) bool {
	return s.record(gen, func(op *Operation) { op.Data[targetID] = result })
}

// RecordFailure stores the error code of a target. It reports false when `gen` is stale.
func (s *Store) RecordFailure(gen uint64, targetID, code string) bool {
	return s.record(gen, func(op *Operation) { op.Errors[targetID] = code })
}

func (s *Store) record(gen uint64, fn func(op *Operation)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || !s.op.IsRunning {
		return false
	}

	fn(&s.op)
	s.op.processed++
	total := len(s.op.TargetIDs)
	s.op.Progress = s.op.processed * 100 / total
	if s.op.processed >= total {
		s.finishLocked()
	}
	return true
}

func (s *Store) finishLocked() {
	s.op.IsRunning = false
	s.op.Complete = true
	s.op.Progress = 100
	finished := nowFunc()
	s.op.FinishedAt = &finished
}

// Reset discards the operation. Targets already processed by the backend are not rolled back;
// results still arriving for it are dropped.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.op = emptyOperation()
}
