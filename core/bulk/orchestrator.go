package bulk

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
)

// Action applies an operation to one target and returns its result (eg. a generated password).
type Action func(ctx context.Context, targetID string) (string, error)

// Orchestrator runs bulk operations against a Store.
type Orchestrator struct {
	store  *Store
	runner Runner
	logger core.Logger
}

func NewOrchestrator(store *Store, runner Runner, logger core.Logger) *Orchestrator {
	if runner == nil {
		runner = SequentialRunner{}
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Orchestrator{store: store, runner: runner, logger: logger}
}

func (o *Orchestrator) Store() *Store { return o.store }

// Job is a started operation waiting to be run.
type Job struct {
	o         *Orchestrator
	gen       uint64
	typ       Type
	targetIDs []string
	action    Action
}

// Prepare starts an operation of `typ` over the distinct `targetIDs`.
// It fails with ErrOperationRunning while another operation runs.
func (o *Orchestrator) Prepare(typ Type, targetIDs []string, action Action, successMessage string) (*Job, error) {
	if action == nil {
		return nil, errors.New("bulk.Prepare: nil action")
	}
	ids := core.UniqueStrings(targetIDs)
	gen, err := o.store.Begin(typ, ids, successMessage)
	if err != nil {
		return nil, err
	}
	return &Job{o: o, gen: gen, typ: typ, targetIDs: ids, action: action}, nil
}

// Run attempts every target, unless the operation gets reset, and returns the final snapshot.
func (j *Job) Run(ctx context.Context) Operation {
	j.o.runner.Run(ctx, enqueue(j.targetIDs), j.process)
	op := j.o.store.Snapshot()
	if op.ID != "" && op.Complete {
		j.o.logger.Info("bulk operation complete", map[string]interface{}{
			"id": op.ID, "type": j.typ, "targets": len(j.targetIDs), "errors": len(op.Errors),
		})
	}
	return op
}

func (j *Job) process(ctx context.Context, targetID string) bool {
	if !j.o.store.Active(j.gen) {
		return false
	}
	result, err := j.action(ctx, targetID)
	if err != nil {
		code := errcode.Extract(err)
		j.o.logger.Warn("bulk target failed", err, map[string]interface{}{"type": j.typ, "target": targetID, "code": code})
		return j.o.store.RecordFailure(j.gen, targetID, code)
	}
	return j.o.store.RecordSuccess(j.gen, targetID, result)
}

// Run starts and runs an operation.
func (o *Orchestrator) Run(ctx context.Context, typ Type, targetIDs []string, action Action, successMessage string) (Operation, error) {
	job, err := o.Prepare(typ, targetIDs, action, successMessage)
	if err != nil {
		return Operation{}, err
	}
	return job.Run(ctx), nil
}
