// Package errcode extracts machine-readable error codes from errors and translates them into user-facing messages.
package errcode

import (
	"github.com/pkg/errors"
)

// Known codes. The backend may return others; those are translated with the generic fallback.
const (
	Unspecified                        = "UNSPECIFIED_ERROR"
	NoEditableZuordnungLeft            = "NO_EDITABLE_ZUORDNUNG_LEFT"
	NewerVersionOrganisation           = "NEWER_VERSION_ORGANISATION"
	NewerVersionOfPersonenkontexte     = "NEWER_VERSION_OF_PERSONENKONTEXTE_AVAILABLE"
	KlassennameAnSchuleEindeutig       = "KLASSENNAME_AN_SCHULE_EINDEUTIG"
	RequiredStepUpLevelNotMet          = "REQUIRED_STEP_UP_LEVEL_NOT_MET"
	BefristungRequired                 = "BEFRISTUNG_REQUIRED_FOR_PERSONENKONTEXT"
	InvalidPersonenkontextForRollenart = "INVALID_PERSONENKONTEXT_FOR_PERSON_WITH_ROLLENART_LERN"
	LernNotAtSchuleAndKlasse           = "LERN_NOT_AT_SCHULE_AND_KLASSE"
	PersonNotFound                     = "PERSON_NOT_FOUND"
	EntityNotFound                     = "ENTITY_NOT_FOUND"
	MissingPermissions                 = "MISSING_PERMISSIONS"
	Unauthorized                       = "UNAUTHORIZED"
	PersonalnummerRequired             = "PERSONALNUMMER_REQUIRED"
	OrganisationHasZuordnungen         = "ORGANISATION_HAS_ZUORDNUNGEN"
	RolleNurAnPassendeOrganisationen   = "ROLLE_NUR_AN_PASSENDE_ORGANISATIONEN"
	PersonenkontextAnlageNotAuthorized = "PERSONENKONTEXT_ANLAGE_NOT_AUTHORIZED"
	OperationRunning                   = "BULK_OPERATION_RUNNING"
)

// Coder is implemented by errors carrying a machine-readable code.
type Coder interface {
	ErrorCode() string
}

// Error is an error carrying a code, for rejections decided locally.
type Error struct {
	Code string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code
	}
	return e.Msg
}

func (e *Error) ErrorCode() string { return e.Code }

// New returns an error carrying `code`.
func New(code string, msg ...string) error {
	e := &Error{Code: code}
	if len(msg) > 0 {
		e.Msg = msg[0]
	}
	return e
}

// Extract returns the code carried by `err`, or Unspecified when there is none.
// It never fails: a nil error yields an empty code.
func Extract(err error) string {
	if err == nil {
		return ""
	}
	var coder Coder
	if errors.As(err, &coder) {
		if code := coder.ErrorCode(); code != "" {
			return code
		}
	}
	return Unspecified
}
