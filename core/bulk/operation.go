// Package bulk applies one action to many targets, isolating failures per target.
package bulk

import (
	"time"

	"github.com/pkg/errors"
)

// Type is the kind of a bulk operation.
type Type string

const (
	TypeChangeKlasse  Type = "CHANGE_KLASSE"
	TypeDeletePerson  Type = "DELETE_PERSON"
	TypeModifyRolle   Type = "MODIFY_ROLLE"
	TypeOrgUnassign   Type = "ORG_UNASSIGN"
	TypeResetPassword Type = "RESET_PASSWORD"
	TypeRolleUnassign Type = "ROLLE_UNASSIGN"
)

var Types = []Type{
	TypeChangeKlasse,
	TypeDeletePerson,
	TypeModifyRolle,
	TypeOrgUnassign,
	TypeResetPassword,
	TypeRolleUnassign,
}

// ParseType returns the Type named `s`.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", errors.Errorf("unknown bulk operation type: %q", s)
}

// Operation is a snapshot of a bulk operation.
// Errors maps target IDs to error codes, Data maps target IDs to the action's result.
type Operation struct {
	ID             string            `json:"id,omitempty"`
	Type           Type              `json:"type,omitempty"`
	TargetIDs      []string          `json:"targetIds"`
	IsRunning      bool              `json:"isRunning"`
	Progress       int               `json:"progress"`
	Complete       bool              `json:"complete"`
	Errors         map[string]string `json:"errors"`
	Data           map[string]string `json:"data"`
	SuccessMessage string            `json:"successMessage,omitempty"`
	StartedAt      *time.Time        `json:"startedAt,omitempty"`
	FinishedAt     *time.Time        `json:"finishedAt,omitempty"`

	processed int
}

func emptyOperation() Operation {
	return Operation{
		TargetIDs: []string{},
		Errors:    map[string]string{},
		Data:      map[string]string{},
	}
}

func (op Operation) HasErrors() bool { return len(op.Errors) > 0 }

// Processed returns how many targets were attempted so far.
func (op Operation) Processed() int { return op.processed }

func (op Operation) clone() Operation {
	c := op
	c.TargetIDs = append([]string{}, op.TargetIDs...)
	c.Errors = make(map[string]string, len(op.Errors))
	for k, v := range op.Errors {
		c.Errors[k] = v
	}
	c.Data = make(map[string]string, len(op.Data))
	for k, v := range op.Data {
		c.Data[k] = v
	}
	return c
}
