// Package main runs the automation engine: it consumes CRM transitions,
// matches workflows and drives executions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"

	"github.com/fieldline/automation/pkg/analytics"
	"github.com/fieldline/automation/pkg/cmd"
	"github.com/fieldline/automation/pkg/engine"
	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/executors"
	"github.com/fieldline/automation/pkg/ledger"
	"github.com/fieldline/automation/pkg/log"
	"github.com/fieldline/automation/pkg/otelhelper"
	"github.com/fieldline/automation/pkg/receivers/queue"
	"github.com/fieldline/automation/pkg/scheduler"
	"github.com/fieldline/automation/pkg/services/stub"
	"github.com/fieldline/automation/pkg/workflow"
)

func main() {
	_ = godotenv.Load()

	command := &cli.Command{
		Name:                  "fieldline-engine",
		Usage:                 "Run the CRM automation workflow engine",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "engine-id",
				Aliases: []string{"id"},
				Usage:   "Custom engine ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("ENGINE_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (memory://, file://path, sqlite://path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "queue",
				Usage:   "Redis queue name to consume CRM events from (disabled when empty)",
				Value:   "",
				Sources: cli.EnvVars("CRM_QUEUE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the CRM queue receiver",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "directory-config",
				Usage:   "Path to the YAML user directory for recipient resolution",
				Value:   "",
				Sources: cli.EnvVars("DIRECTORY_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	engineID := command.String("engine-id")
	if engineID == "" {
		engineID = fmt.Sprintf("engine-%s", uuid.New().String()[:8])
	}

	logger := log.WithModule("fieldline-engine").With("engine_id", engineID)
	logger.InfoContext(ctx, "Initializing automation engine")

	tracer, err := otelhelper.NewTracer(ctx, "fieldline-engine")
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	directory := stub.NewDirectory()

	if path := command.String("directory-config"); path != "" {
		directory, err = stub.LoadDirectory(path)
		if err != nil {
			return fmt.Errorf("failed to load user directory: %w", err)
		}
	}

	collaborators := stub.NewCollaborators(stub.NewRecorder(), directory)
	registry := executors.NewDefaultRegistry(logger, collaborators)

	store := workflow.NewStore(persistence, registry)
	matcher := workflow.NewTriggerMatcher(store, logger)
	executionLedger := ledger.NewLedger(persistence.ExecutionRepository(), logger)

	lifecycleBus := cmd.NewEventBus(command.String("event-bus"), logger)
	defer func() {
		if err := lifecycleBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close lifecycle bus", "error", err)
		}
	}()

	sched := scheduler.NewScheduler(store, executionLedger, registry, lifecycleBus, logger,
		scheduler.WithTracer(tracer))

	domainBus := cmd.NewDomainEventBus(command.String("event-bus"), logger)

	e := engine.NewEngine(matcher, sched, domainBus, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := e.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	// Keep the periodic analytics snapshot warm for operational visibility.
	refresher := analytics.NewRefresher(
		analytics.NewAggregator(persistence.ExecutionRepository(), logger),
		analytics.DefaultSchedule,
		logger,
	)
	if err := refresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start analytics refresher: %w", err)
	}
	defer refresher.Stop()

	if queueName := command.String("queue"); queueName != "" {
		receiver, err := queue.NewReceiver(map[string]any{
			"queue": queueName,
			"connection": map[string]any{
				"addr": command.String("redis-addr"),
			},
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create queue receiver: %w", err)
		}

		err = receiver.Start(ctx, func(ctx context.Context, event *events.DomainEvent) error {
			return domainBus.PublishDomainEvent(ctx, event)
		})
		if err != nil {
			return fmt.Errorf("failed to start queue receiver: %w", err)
		}

		defer func() {
			if err := receiver.Stop(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to stop queue receiver", "error", err)
			}
		}()
	}

	logger.InfoContext(ctx, "Engine running",
		"event_bus", command.String("event-bus"),
		"crm_topic", events.CRMEventsTopic)

	<-ctx.Done()

	logger.Info("Shutting down")

	return e.Stop(context.Background())
}
