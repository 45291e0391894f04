package bulk

import (
	"context"
	"encoding/base64"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schulportal/core/errcode"
	"github.com/trezcool/schulportal/core/person"
)

func newTestReporter(t *testing.T) *Reporter {
	backend := newFakeBackend()
	backend.persons["p-1"] = person.Person{ID: "p-1", Benutzername: "mmuster", Name: person.Name{Vorname: "Max", Familienname: "Muster"}}
	backend.persons["p-2"] = person.Person{ID: "p-2", Benutzername: "emuster", Name: person.Name{Vorname: "Erika", Familienname: "Muster"}}

	translator, err := errcode.NewTranslator("de")
	require.NoError(t, err)
	return NewReporter(backend, translator, "de")
}

func TestReporter_ErrorsCSV(t *testing.T) {
	r := newTestReporter(t)
	op := Operation{
		ID:        "op-1",
		Type:      TypeDeletePerson,
		TargetIDs: []string{"p-1", "p-2", "p-3"},
		Errors:    map[string]string{"p-3": errcode.PersonNotFound, "p-1": "SOMETHING_NEW"},
		Data:      map[string]string{"p-2": ""},
	}

	want := "ID;Benutzername;Vorname;Nachname;Fehlermeldung\n" +
		"p-1;mmuster;Max;Muster;Es ist ein Fehler aufgetreten (SOMETHING_NEW).\n" +
		"p-3;;;;Die Person wurde nicht gefunden.\n"
	assert.Equal(t, want, r.ErrorsCSV(context.Background(), op))
}

func TestReporter_PasswordsCSV(t *testing.T) {
	r := newTestReporter(t)
	op := Operation{
		Type:      TypeResetPassword,
		TargetIDs: []string{"p-1", "p-2"},
		Errors:    map[string]string{"p-1": errcode.Unspecified},
		Data:      map[string]string{"p-2": "s3cr3t"},
	}

	want := "Benutzername;Vorname;Nachname;Passwort\nemuster;Erika;Muster;s3cr3t\n"
	assert.Equal(t, want, r.PasswordsCSV(context.Background(), op))

	op.Type = TypeDeletePerson
	assert.Empty(t, r.Passwords(context.Background(), op), "only password resets have passwords")
}

func TestReporter_ReportMessage(t *testing.T) {
	r := newTestReporter(t)
	to := mail.Address{Name: "Admin", Address: "admin@schule.test"}

	_, err := r.ReportMessage(context.Background(), Operation{}, to)
	assert.Error(t, err)

	op := Operation{
		ID:        "op-1",
		Type:      TypeDeletePerson,
		TargetIDs: []string{"p-1", "p-2"},
		Complete:  true,
		Errors:    map[string]string{"p-1": errcode.PersonNotFound},
		Data:      map[string]string{"p-2": ""},
	}
	msg, err := r.ReportMessage(context.Background(), op, to)
	require.NoError(t, err)

	assert.True(t, msg.HasRecipients())
	assert.Equal(t, "DELETE_PERSON: 1/2 erfolgreich", msg.Subject)
	assert.Contains(t, msg.BodyStr, "Fehlgeschlagen: 1")
	require.True(t, msg.HasAttachments())

	at := msg.Attachments[0]
	assert.Equal(t, "fehler.csv", at.Filename)
	assert.Equal(t, "text/csv", at.ContentType)
	content, err := base64.StdEncoding.DecodeString(at.Content.String())
	require.NoError(t, err)
	assert.Equal(t, r.ErrorsCSV(context.Background(), op), string(content))

	op.Errors = map[string]string{}
	msg, err = r.ReportMessage(context.Background(), op, to)
	require.NoError(t, err)
	assert.False(t, msg.HasAttachments())
}
