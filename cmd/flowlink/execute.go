package main

import (
	"context"
	"fmt"

	"github.com/dukex/flowlink/pkg/cmd"
	"github.com/dukex/flowlink/pkg/events"
	"github.com/dukex/flowlink/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func NewExecuteCommand() *cli.Command {
	return &cli.Command{
		Name:    "execute",
		Aliases: []string{"run"},
		Usage:   "Execute a flow and print the resulting workflow",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "flow",
				Aliases:  []string{"f"},
				Usage:    "ID of the flow to execute",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "input",
				Usage: "JSON payload (the source adapter is fetched when omitted)",
			},
			&cli.StringFlag{
				Name:  "input-file",
				Usage: "File holding the JSON payload",
			},
			&cli.StringFlag{
				Name:  "execution-id",
				Usage: "Execution ID (generated when omitted)",
			},
			&cli.StringFlag{
				Name:  "correlation-id",
				Usage: "Correlation ID passed to adapters",
			},
			&cli.StringFlag{
				Name:  "initiated-by",
				Usage: "Who requested the execution",
				Value: "cli",
			},
			&cli.BoolFlag{
				Name:  "publish",
				Usage: "Publish an execution request for workers instead of executing here",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			input, err := readInput(command)
			if err != nil {
				return err
			}

			req := services.ExecuteFlowRequest{
				FlowID:        command.String("flow"),
				ExecutionID:   command.String("execution-id"),
				Input:         input,
				CorrelationID: command.String("correlation-id"),
				InitiatedBy:   command.String("initiated-by"),
			}

			if command.Bool("publish") {
				return publishRequest(ctx, command, req)
			}

			engine, err := openEngine(ctx, command)
			if err != nil {
				return err
			}
			defer closeEngine(ctx, engine)

			wc, err := engine.Flows.Execute(ctx, req)
			if err != nil {
				return err
			}

			return printJSON(command, wc)
		},
	}
}

func publishRequest(ctx context.Context, command *cli.Command, req services.ExecuteFlowRequest) error {
	logger := newLogger(command)

	transport, err := cmd.NewTransport(command.String("event-bus"), command.String("kafka-brokers"), "flowlink-cli", logger)
	if err != nil {
		return err
	}

	bus := cmd.NewEventBus(transport, logger)
	defer func() { _ = bus.Close() }()

	event := events.FlowExecutionRequested{
		BaseEvent:     events.NewBaseEvent(events.FlowExecutionRequestedEvent, "", req.FlowID),
		ExecutionID:   req.ExecutionID,
		Input:         req.Input,
		CorrelationID: req.CorrelationID,
		InitiatedBy:   req.InitiatedBy,
	}

	err = bus.Publish(ctx, req.FlowID, event)
	if err != nil {
		return fmt.Errorf("failed to publish execution request: %w", err)
	}

	return printJSON(command, map[string]string{
		"event_id": event.ID,
		"flow_id":  req.FlowID,
	})
}
