package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
	"github.com/trezcool/schulportal/services/backend"
)

// tokenEnv holds the admin's access token; it is prompted for when unset.
const tokenEnv = "SCHULPORTAL_TOKEN"

var (
	readPasswordFunc = term.ReadPassword // mockable
	getenvFunc       = os.Getenv         // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	client     *backendsvc.Client
	logger     core.Logger
	errCodes   *errcode.Translator
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  bulk -type TYPE -ids FILE [-org ID] [-rolle ID] [-klasse ID] [-befristung YYYY-MM-DD] [-concurrency N] [-out DIR]")
	fmt.Fprintln(cli.out, "       - run a bulk operation over the person IDs listed in FILE (one per line)")
	fmt.Fprintln(cli.out, "  step [-org ID] [-rolle ID] - list the organisations and rollen available for a selection")
	fmt.Fprintln(cli.out, "  rollen [-search NAME] - list the rollen")
}

// token returns the admin's access token, from the environment or the terminal.
func (cli *commandLine) token() (string, error) {
	if token := core.CleanString(getenvFunc(tokenEnv)); token != "" {
		return token, nil
	}
	fmt.Fprint(cli.out, "Enter access token:")
	token, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return core.CleanString(string(token)), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	bulkCmd := flag.NewFlagSet("bulk", flag.ExitOnError)
	bulkType := bulkCmd.String("type", "", "The operation: CHANGE_KLASSE, DELETE_PERSON, MODIFY_ROLLE, ORG_UNASSIGN, RESET_PASSWORD or ROLLE_UNASSIGN.")
	bulkIDs := bulkCmd.String("ids", "", "File listing the person IDs, one per line.")
	bulkOrg := bulkCmd.String("org", "", "The organisation (Schule) ID.")
	bulkRolle := bulkCmd.String("rolle", "", "The rolle ID.")
	bulkKlasse := bulkCmd.String("klasse", "", "The klasse ID.")
	bulkBefristung := bulkCmd.String("befristung", "", "The end date of new zuordnungen (YYYY-MM-DD).")
	bulkConcurrency := bulkCmd.Int("concurrency", cli.conf.Bulk.Concurrency, "How many persons are processed at once.")
	bulkOut := bulkCmd.String("out", ".", "Directory the reports are written to.")

	stepCmd := flag.NewFlagSet("step", flag.ExitOnError)
	stepOrg := stepCmd.String("org", "", "The selected organisation ID.")
	stepRolle := stepCmd.String("rolle", "", "The selected rolle ID.")

	rollenCmd := flag.NewFlagSet("rollen", flag.ExitOnError)
	rollenSearch := rollenCmd.String("search", "", "Filters the rollen by name.")

	switch args[1] {
	case "bulk":
		if err := bulkCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *bulkType == "" || *bulkIDs == "" {
			bulkCmd.Usage()
			return errHelp
		}
		token, err := cli.token()
		if err != nil {
			return err
		}
		if token == "" {
			bulkCmd.Usage()
			return errHelp
		}
		return cli.bulk(token, bulkOptions{
			typ:            *bulkType,
			idsFile:        *bulkIDs,
			organisationID: *bulkOrg,
			rolleID:        *bulkRolle,
			klasseID:       *bulkKlasse,
			befristung:     *bulkBefristung,
			concurrency:    *bulkConcurrency,
			outDir:         *bulkOut,
		})
	case "step":
		if err := stepCmd.Parse(args[2:]); err != nil {
			return err
		}
		token, err := cli.token()
		if err != nil {
			return err
		}
		if token == "" {
			stepCmd.Usage()
			return errHelp
		}
		return cli.step(token, *stepOrg, *stepRolle)
	case "rollen":
		if err := rollenCmd.Parse(args[2:]); err != nil {
			return err
		}
		token, err := cli.token()
		if err != nil {
			return err
		}
		if token == "" {
			rollenCmd.Usage()
			return errHelp
		}
		return cli.rollen(token, *rollenSearch)
	default:
		cli.printUsage()
		return errHelp
	}
}
