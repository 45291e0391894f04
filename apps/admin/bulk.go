package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/bulk"
)

type bulkOptions struct {
	typ            string
	idsFile        string
	organisationID string
	rolleID        string
	klasseID       string
	befristung     string
	concurrency    int
	outDir         string
}

// readIDs reads one ID per line; blank lines and lines starting with # are skipped.
func readIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := core.CleanString(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return core.UniqueStrings(ids), nil
}

func (cli *commandLine) bulk(token string, opts bulkOptions) error {
	typ, err := bulk.ParseType(opts.typ)
	if err != nil {
		return err
	}
	ids, err := readIDs(opts.idsFile)
	if err != nil {
		return errors.Wrap(err, "reading IDs")
	}
	if len(ids) == 0 {
		return core.NewArgumentError("no IDs in " + opts.idsFile)
	}

	params := bulk.Params{
		OrganisationID: opts.organisationID,
		RolleID:        opts.rolleID,
		KlasseID:       opts.klasseID,
		Befristung:     opts.befristung,
	}
	if err = cli.validate.Struct(params); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			return fmt.Errorf("invalid parameters: %v", core.TranslateValidationErrors(vErrs, cli.translator))
		}
		return err
	}

	ctx := context.Background()
	backend := cli.client.WithToken(token)
	action, err := bulk.NewAction(ctx, backend, typ, params)
	if err != nil {
		return err
	}

	orch := bulk.NewOrchestrator(bulk.NewStore(), bulk.NewRunner(opts.concurrency), cli.logger)
	op, err := orch.Run(ctx, typ, ids, action, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s: %d/%d erfolgreich\n", op.Type, len(op.Data), len(op.TargetIDs))

	reporter := bulk.NewReporter(backend, cli.errCodes, cli.conf.Locale)
	if op.HasErrors() {
		path := filepath.Join(opts.outDir, "fehler.csv")
		if err = os.WriteFile(path, []byte(reporter.ErrorsCSV(ctx, op)), 0644); err != nil {
			return errors.Wrap(err, "writing error report")
		}
		fmt.Fprintf(cli.out, "%d Fehler: %s\n", len(op.Errors), path)
	}
	if typ == bulk.TypeResetPassword && len(op.Data) > 0 {
		path := filepath.Join(opts.outDir, "passwoerter.csv")
		if err = os.WriteFile(path, []byte(reporter.PasswordsCSV(ctx, op)), 0600); err != nil {
			return errors.Wrap(err, "writing password report")
		}
		fmt.Fprintf(cli.out, "Passwörter: %s\n", path)
	}
	return nil
}
