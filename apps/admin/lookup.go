package main

import (
	"context"
	"fmt"

	"github.com/trezcool/schulportal/core/workflow"
)

func (cli *commandLine) step(token, organisationID, rolleID string) error {
	step, err := cli.client.WithToken(token).WorkflowStep(context.Background(), workflow.StepQuery{
		OrganisationID: organisationID,
		RolleID:        rolleID,
		Limit:          cli.conf.Workflow.Limit,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cli.out, "Organisationen:")
	for _, o := range step.Organisations {
		fmt.Fprintf(cli.out, "  %s\t%s\n", o.ID, o.Title())
	}
	if organisationID != "" {
		fmt.Fprintln(cli.out, "Rollen:")
		for _, r := range step.Rollen {
			fmt.Fprintf(cli.out, "  %s\t%s\n", r.ID, r.Title())
		}
	}
	if rolleID != "" {
		fmt.Fprintf(cli.out, "canCommit: %t\n", step.CanCommit)
	}
	return nil
}

func (cli *commandLine) rollen(token, search string) error {
	rollen, err := cli.client.WithToken(token).QueryRollen(context.Background(), search, cli.conf.Workflow.Limit)
	if err != nil {
		return err
	}
	for _, r := range rollen {
		fmt.Fprintf(cli.out, "%s\t%s\t%s\n", r.ID, r.Name, r.RollenArt)
	}
	return nil
}
