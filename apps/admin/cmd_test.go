package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
	"github.com/trezcool/schulportal/core/zuordnung"
	"github.com/trezcool/schulportal/services/backend"
	"github.com/trezcool/schulportal/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.FakeBackend, *bytes.Buffer) {
	backend := testutil.NewFakeBackend()
	srv := backend.Server(t)
	conf := testutil.Config(srv.URL)

	errCodes, err := errcode.NewTranslator(conf.Locale)
	require.NoError(t, err)
	validate, translator := core.NewValidator()
	zuordnung.RegisterValidators(validate, translator)

	token := testutil.Token(t, "admin-1", "admin")
	getenvFunc = func(string) string { return "" }
	readPasswordFunc = func(int) ([]byte, error) { return []byte(token), nil }
	t.Cleanup(func() { getenvFunc = os.Getenv })

	out := new(bytes.Buffer)
	return &commandLine{
		conf:       conf,
		client:     backendsvc.NewClient(conf, core.NopLogger{}),
		logger:     core.NopLogger{},
		errCodes:   errCodes,
		validate:   validate,
		translator: translator,
		out:        out,
	}, backend, out
}

func writeIDs(t *testing.T, ids ...string) string {
	path := filepath.Join(t.TempDir(), "ids.txt")
	content := "# personen\n" + strings.Join(ids, "\n") + "\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, _ := setup(t)
	ids := writeIDs(t, "p-1")
	past := time.Now().AddDate(0, 0, -1).Format(core.DateLayout)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "bulk: no args", args: []string{"bulk"}, wantErr: errHelp},
		{name: "bulk: no ids", args: []string{"bulk", "-type", "DELETE_PERSON"}, wantErr: errHelp},
		{name: "bulk: unknown type", args: []string{"bulk", "-type", "LOL", "-ids", ids}, wantErrStr: `unknown bulk operation type: "LOL"`},
		{name: "bulk: empty ids", args: []string{"bulk", "-type", "DELETE_PERSON", "-ids", writeIDs(t)}},
		{name: "bulk: missing org", args: []string{"bulk", "-type", "ORG_UNASSIGN", "-ids", ids}, wantErrStr: "organisationId is required for ORG_UNASSIGN"},
		{
			name:       "bulk: past befristung",
			args:       []string{"bulk", "-type", "MODIFY_ROLLE", "-ids", ids, "-org", "schule-a", "-rolle", "rolle-lehr", "-befristung", past},
			wantErrStr: "invalid parameters: map[befristung:befristung must be a date (YYYY-MM-DD) that is not in the past]",
		},
		{
			name:       "bulk: malformed befristung",
			args:       []string{"bulk", "-type", "MODIFY_ROLLE", "-ids", ids, "-org", "schule-a", "-rolle", "rolle-lehr", "-befristung", "31.07.2030"},
			wantErrStr: "invalid parameters: map[befristung:befristung must be a date formatted as YYYY-MM-DD]",
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.Error(t, err)
			}
		})
	}
}

func Test_commandLine_emptyToken(t *testing.T) {
	cli, _, _ := setup(t)
	readPasswordFunc = func(int) ([]byte, error) { return []byte("  "), nil }

	err := cli.run([]string{"admin", "rollen"})
	assert.Equal(t, errHelp, err)
}

func Test_commandLine_bulk(t *testing.T) {
	cli, backend, out := setup(t)
	outDir := t.TempDir()

	err := cli.run([]string{"admin", "bulk", "-type", "DELETE_PERSON", "-ids", writeIDs(t, "p-1", "p-x", "p-1"), "-out", outDir})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "DELETE_PERSON: 1/2 erfolgreich")

	backend.Lock()
	assert.Equal(t, []string{"p-1"}, backend.Deleted)
	backend.Unlock()

	report, err := os.ReadFile(filepath.Join(outDir, "fehler.csv"))
	require.NoError(t, err)
	assert.Equal(t, "ID;Benutzername;Vorname;Nachname;Fehlermeldung\np-x;;;;Die Person wurde nicht gefunden.\n", string(report))
	_, err = os.Stat(filepath.Join(outDir, "passwoerter.csv"))
	assert.True(t, os.IsNotExist(err))
}

func Test_commandLine_bulkResetPassword(t *testing.T) {
	cli, _, out := setup(t)
	outDir := t.TempDir()

	// the token is read from the environment when set
	token := testutil.Token(t, "admin-1", "admin")
	getenvFunc = func(key string) string {
		if key == tokenEnv {
			return token
		}
		return ""
	}
	readPasswordFunc = func(int) ([]byte, error) {
		t.Fatal("token prompted for")
		return nil, nil
	}

	args := []string{"admin", "bulk", "-type", "RESET_PASSWORD", "-ids", writeIDs(t, "p-2", "p-1"), "-out", outDir, "-concurrency", "2"}
	require.NoError(t, cli.run(args))
	assert.Contains(t, out.String(), "RESET_PASSWORD: 2/2 erfolgreich")

	report, err := os.ReadFile(filepath.Join(outDir, "passwoerter.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Benutzername;Vorname;Nachname;Passwort\nemuster;Erika;Muster;pwd-p-2\nmmuster;Max;Muster;pwd-p-1\n", string(report))
	_, err = os.Stat(filepath.Join(outDir, "fehler.csv"))
	assert.True(t, os.IsNotExist(err))
}

func Test_commandLine_step(t *testing.T) {
	cli, backend, out := setup(t)

	require.NoError(t, cli.run([]string{"admin", "step", "-org", "schule-a", "-rolle", "rolle-lehr"}))
	assert.Equal(t, strings.Join([]string{
		"Enter access token:",
		"Organisationen:",
		"  schule-a\t0815 (Schule A)",
		"  schule-b\t0816 (Schule B)",
		"Rollen:",
		"  rolle-lehr\tLehrkraft",
		"  rolle-lern\tSuS",
		"canCommit: true",
		"",
	}, "\n"), out.String())

	backend.Lock()
	defer backend.Unlock()
	require.Len(t, backend.StepQueries, 1)
	assert.Equal(t, 25, backend.StepQueries[0].Limit)
}

func Test_commandLine_rollen(t *testing.T) {
	cli, _, out := setup(t)

	require.NoError(t, cli.run([]string{"admin", "rollen", "-search", "Lehr"}))
	assert.Contains(t, out.String(), "rolle-lehr\tLehrkraft\tLEHR\n")
}
