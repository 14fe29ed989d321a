package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dukex/flowlink/pkg/config"
	cli "github.com/urfave/cli/v3"
)

func NewFlowsCommand() *cli.Command {
	return &cli.Command{
		Name:    "flows",
		Aliases: []string{"ls"},
		Usage:   "List stored flows (after storing the flows of --config)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON instead of a table",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			p, err := openPersistence(ctx, command)
			if err != nil {
				return err
			}
			defer closePersistence(ctx, p)

			repository := p.FlowDefinitionRepository()

			if path := command.String("config"); path != "" {
				cfg, err := config.Load(path)
				if err != nil {
					return err
				}

				err = cfg.SaveFlows(ctx, repository)
				if err != nil {
					return err
				}
			}

			flows, err := repository.All(ctx)
			if err != nil {
				return fmt.Errorf("failed to list flows: %w", err)
			}

			if command.Bool("json") {
				return printJSON(command, flows)
			}

			w := tabwriter.NewWriter(command.Root().Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSOURCE\tTARGET\tMAPPINGS\tSCHEDULE\tENABLED")

			for _, flow := range flows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%t\n",
					flow.ID, flow.Name, flow.SourceAdapterID, flow.TargetAdapterID,
					len(flow.FieldMappings), flow.Schedule, flow.Enabled)
			}

			return w.Flush()
		},
	}
}

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate the --config file without touching persistence",
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.String("config")
			if path == "" {
				return ErrConfigRequired
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(command.Root().Writer, "%s is valid: %d adapters, %d flows\n",
				path, len(cfg.Adapters), len(cfg.Flows))

			return err
		},
	}
}
