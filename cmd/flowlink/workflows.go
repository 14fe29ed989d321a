package main

import (
	"context"
	"fmt"

	"github.com/dukex/flowlink/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Print a stored workflow",
		ArgsUsage: "<workflow-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			workflowID, err := workflowIDArg(command)
			if err != nil {
				return err
			}

			p, err := openPersistence(ctx, command)
			if err != nil {
				return err
			}
			defer closePersistence(ctx, p)

			wc, err := p.WorkflowRepository().FindByID(ctx, workflowID)
			if err != nil {
				return err
			}

			return printJSON(command, wc)
		},
	}
}

func NewEventsCommand() *cli.Command {
	return &cli.Command{
		Name:      "events",
		Usage:     "Print the audit trail of a workflow",
		ArgsUsage: "<workflow-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			workflowID, err := workflowIDArg(command)
			if err != nil {
				return err
			}

			p, err := openPersistence(ctx, command)
			if err != nil {
				return err
			}
			defer closePersistence(ctx, p)

			events, err := p.WorkflowEventRepository().FindByWorkflowID(ctx, workflowID)
			if err != nil {
				return err
			}

			return printJSON(command, events)
		},
	}
}

// NewResumeCommand continues a suspended workflow in this process and waits for it to stop again.
func NewResumeCommand() *cli.Command {
	return &cli.Command{
		Name:      "resume",
		Usage:     "Resume a suspended workflow and wait for it",
		ArgsUsage: "<workflow-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			return control(ctx, command, "resume", func(ctx context.Context, flows *services.FlowExecution, workflowID string) bool {
				return flows.Resume(ctx, workflowID)
			})
		},
	}
}

func NewSuspendCommand() *cli.Command {
	return &cli.Command{
		Name:      "suspend",
		Usage:     "Suspend an in-progress workflow",
		ArgsUsage: "<workflow-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			return control(ctx, command, "suspend", func(ctx context.Context, flows *services.FlowExecution, workflowID string) bool {
				return flows.Suspend(ctx, workflowID)
			})
		},
	}
}

func NewCancelCommand() *cli.Command {
	return &cli.Command{
		Name:      "cancel",
		Usage:     "Cancel an in-progress or suspended workflow",
		ArgsUsage: "<workflow-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "user",
				Usage: "Who cancels the workflow",
				Value: "cli",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return control(ctx, command, "cancel", func(ctx context.Context, flows *services.FlowExecution, workflowID string) bool {
				return flows.Cancel(ctx, services.CancelRequest{WorkflowID: workflowID, UserID: command.String("user")})
			})
		},
	}
}

// control applies op to the workflow named by the first argument, waits for any continuation it
// scheduled and prints the workflow.
func control(ctx context.Context, command *cli.Command, name string, op func(context.Context, *services.FlowExecution, string) bool) error {
	workflowID, err := workflowIDArg(command)
	if err != nil {
		return err
	}

	engine, err := openEngine(ctx, command)
	if err != nil {
		return err
	}
	defer closeEngine(ctx, engine)

	if !op(ctx, engine.Flows, workflowID) {
		return fmt.Errorf("cannot %s workflow %s in its current state", name, workflowID)
	}

	engine.Orchestrator.Wait()

	wc, err := engine.Flows.GetStatus(ctx, workflowID)
	if err != nil {
		return err
	}

	return printJSON(command, wc)
}
