package bulk

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
	"github.com/trezcool/schulportal/core/person"
)

const (
	colID           = "ID"
	colBenutzername = "Benutzername"
	colVorname      = "Vorname"
	colFamilienname = "Nachname"
	colMessage      = "Fehlermeldung"
	colPasswort     = "Passwort"
)

var (
	ErrorReportHeaders    = []string{colID, colBenutzername, colVorname, colFamilienname, colMessage}
	PasswordReportHeaders = []string{colBenutzername, colVorname, colFamilienname, colPasswort}
)

// PersonLookup loads the identifying fields of a target.
type PersonLookup interface {
	GetPerson(ctx context.Context, personID string) (*person.Person, error)
}

type (
	// ErrorEntry is one failed target of an operation.
	ErrorEntry struct {
		TargetID     string `json:"targetId"`
		Benutzername string `json:"benutzername"`
		Vorname      string `json:"vorname"`
		Familienname string `json:"familienname"`
		Code         string `json:"code"`
		Message      string `json:"message"`
	}

	PasswordEntry struct {
		TargetID     string `json:"targetId"`
		Benutzername string `json:"benutzername"`
		Vorname      string `json:"vorname"`
		Familienname string `json:"familienname"`
		Passwort     string `json:"passwort"`
	}

	// Reporter builds the reports of an operation. Targets whose person cannot be loaded are reported by ID.
	Reporter struct {
		persons    PersonLookup
		translator *errcode.Translator
		locale     string
	}
)

func NewReporter(persons PersonLookup, translator *errcode.Translator, locale string) *Reporter {
	return &Reporter{persons: persons, translator: translator, locale: locale}
}

func (r *Reporter) person(ctx context.Context, id string) person.Person {
	if r.persons != nil {
		if p, err := r.persons.GetPerson(ctx, id); err == nil && p != nil {
			return *p
		}
	}
	return person.Fallback(id)
}

// Errors lists the failed targets, in target order.
func (r *Reporter) Errors(ctx context.Context, op Operation) []ErrorEntry {
	entries := make([]ErrorEntry, 0, len(op.Errors))
	for _, id := range op.TargetIDs {
		code, ok := op.Errors[id]
		if !ok {
			continue
		}
		p := r.person(ctx, id)
		entries = append(entries, ErrorEntry{
			TargetID:     id,
			Benutzername: p.Benutzername,
			Vorname:      p.Name.Vorname,
			Familienname: p.Name.Familienname,
			Code:         code,
			Message:      r.translator.Translate(code, r.locale),
		})
	}
	return entries
}

// Passwords lists the generated passwords of a RESET_PASSWORD operation, in target order.
func (r *Reporter) Passwords(ctx context.Context, op Operation) []PasswordEntry {
	if op.Type != TypeResetPassword {
		return []PasswordEntry{}
	}
	entries := make([]PasswordEntry, 0, len(op.Data))
	for _, id := range op.TargetIDs {
		pwd, ok := op.Data[id]
		if !ok {
			continue
		}
		p := r.person(ctx, id)
		entries = append(entries, PasswordEntry{
			TargetID:     id,
			Benutzername: p.Benutzername,
			Vorname:      p.Name.Vorname,
			Familienname: p.Name.Familienname,
			Passwort:     pwd,
		})
	}
	return entries
}

func (r *Reporter) ErrorsCSV(ctx context.Context, op Operation) string {
	entries := r.Errors(ctx, op)
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]string{
			colID:           e.TargetID,
			colBenutzername: e.Benutzername,
			colVorname:      e.Vorname,
			colFamilienname: e.Familienname,
			colMessage:      e.Message,
		})
	}
	return BuildCSV(ErrorReportHeaders, rows)
}

func (r *Reporter) PasswordsCSV(ctx context.Context, op Operation) string {
	entries := r.Passwords(ctx, op)
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]string{
			colBenutzername: e.Benutzername,
			colVorname:      e.Vorname,
			colFamilienname: e.Familienname,
			colPasswort:     e.Passwort,
		})
	}
	return BuildCSV(PasswordReportHeaders, rows)
}

// ReportMessage builds an email summarizing `op`, with the error report attached when targets failed.
func (r *Reporter) ReportMessage(ctx context.Context, op Operation, to ...mail.Address) (*core.EmailMessage, error) {
	if op.ID == "" {
		return nil, core.NewArgumentError("no bulk operation to report")
	}

	msg := &core.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("%s: %d/%d erfolgreich", op.Type, len(op.Data), len(op.TargetIDs)),
		BodyStr: fmt.Sprintf(
			"Massenbearbeitung %s (%s)\nZiele: %d\nErfolgreich: %d\nFehlgeschlagen: %d\nAbgeschlossen: %t\n",
			op.ID, op.Type, len(op.TargetIDs), len(op.Data), len(op.Errors), op.Complete,
		),
	}
	if op.SuccessMessage != "" {
		msg.BodyStr += "\n" + op.SuccessMessage + "\n"
	}
	if op.HasErrors() {
		csvStr := r.ErrorsCSV(ctx, op)
		if err := msg.Attach(bytes.NewBufferString(csvStr), "fehler.csv", "text/csv"); err != nil {
			return nil, err
		}
	}
	return msg, nil
}
