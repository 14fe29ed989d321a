package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dukex/flowlink/pkg/cmd"
	"github.com/dukex/flowlink/pkg/log"
	"github.com/dukex/flowlink/pkg/persistence"
	cli "github.com/urfave/cli/v3"
)

var (
	ErrWorkflowIDRequired = errors.New("workflow id argument is required")
	ErrConfigRequired     = errors.New("--config is required")
	ErrConflictingInput   = errors.New("use either --input or --input-file")
)

func newLogger(command *cli.Command) *slog.Logger {
	log.Setup(command.String("log-level"))

	return log.WithModule("flowlink-cli")
}

func openEngine(ctx context.Context, command *cli.Command) (*cmd.Engine, error) {
	return cmd.NewEngine(ctx, newLogger(command), cmd.EngineOptions{
		ServiceName:  "flowlink-cli",
		DatabaseURL:  command.String("database-url"),
		EventBus:     command.String("event-bus"),
		KafkaBrokers: command.String("kafka-brokers"),
		ConfigFile:   command.String("config"),
		PluginsPath:  command.String("plugins-path"),
		MaxRetries:   int(command.Int("max-retries")),
	})
}

func openPersistence(ctx context.Context, command *cli.Command) (persistence.Persistence, error) {
	return cmd.NewPersistence(ctx, newLogger(command), command.String("database-url"))
}

func closeEngine(ctx context.Context, engine *cmd.Engine) {
	_ = engine.Close(context.WithoutCancel(ctx))
}

func closePersistence(ctx context.Context, p persistence.Persistence) {
	_ = p.Close(context.WithoutCancel(ctx))
}

func workflowIDArg(command *cli.Command) (string, error) {
	id := command.Args().First()
	if id == "" {
		return "", ErrWorkflowIDRequired
	}

	return id, nil
}

func printJSON(command *cli.Command, v any) error {
	encoder := json.NewEncoder(command.Root().Writer)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

// readInput decodes the JSON payload given inline or in a file. No payload yields nil, which makes
// the engine fetch from the flow's source adapter.
func readInput(command *cli.Command) (any, error) {
	inline := command.String("input")
	path := command.String("input-file")

	var data []byte

	switch {
	case inline != "" && path != "":
		return nil, ErrConflictingInput
	case inline != "":
		data = []byte(inline)
	case path != "":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}

		data = raw
	default:
		return nil, nil
	}

	var input any

	err := json.Unmarshal(data, &input)
	if err != nil {
		return nil, fmt.Errorf("input is not valid JSON: %w", err)
	}

	return input, nil
}
