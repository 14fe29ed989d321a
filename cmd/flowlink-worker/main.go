package main

import (
	"context"
	"os"
	"time"

	"github.com/dukex/flowlink/pkg/log"
	"github.com/dukex/flowlink/pkg/workflow"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "flowlink-worker",
		EnableShellCompletion: true,
		Usage:                 "Run the flowlink engine: execute requested and scheduled flows",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL (file path, postgres://, redis://)",
				Value:   "./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML file with adapter and flow definitions",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing adapter plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.IntFlag{
				Name:    "max-retries",
				Usage:   "Retries a failing step gets before its workflow fails",
				Value:   workflow.DefaultMaxRetries,
				Sources: cli.EnvVars("MAX_RETRIES"),
			},
			&cli.IntFlag{
				Name:    "pool-size",
				Usage:   "Workflows executed concurrently",
				Value:   workflow.DefaultPoolSize,
				Sources: cli.EnvVars("POOL_SIZE"),
			},
			&cli.BoolFlag{
				Name:    "recover",
				Usage:   "Resume workflows left IN_PROGRESS by a previous run at startup",
				Sources: cli.EnvVars("RECOVER_IN_PROGRESS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.DurationFlag{
				Name:    "shutdown-timeout",
				Usage:   "How long running workflows get to finish on shutdown",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("SHUTDOWN_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			return run(ctx, options{
				workerID:        workerID,
				databaseURL:     command.String("database-url"),
				eventBus:        command.String("event-bus"),
				kafkaBrokers:    command.String("kafka-brokers"),
				configFile:      command.String("config"),
				pluginsPath:     command.String("plugins-path"),
				maxRetries:      int(command.Int("max-retries")),
				poolSize:        int64(command.Int("pool-size")),
				recover:         command.Bool("recover"),
				tracing:         command.Bool("tracing"),
				shutdownTimeout: command.Duration("shutdown-timeout"),
			})
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
