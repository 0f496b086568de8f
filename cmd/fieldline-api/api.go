// Package main provides the Fieldline automation API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/fieldline/automation/pkg/analytics"
	"github.com/fieldline/automation/pkg/eventbus"
	"github.com/fieldline/automation/pkg/executors"
	"github.com/fieldline/automation/pkg/ledger"
	"github.com/fieldline/automation/pkg/persistence"
	"github.com/fieldline/automation/pkg/scheduler"
	"github.com/fieldline/automation/pkg/web"
	"github.com/fieldline/automation/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *executors.Registry
	eventBus    eventbus.EventBus
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *executors.Registry,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
	}
}

func (a *API) App() *fiber.App {
	store := workflow.NewStore(a.persistence, a.registry)
	executionLedger := ledger.NewLedger(a.persistence.ExecutionRepository(), a.logger)
	sched := scheduler.NewScheduler(store, executionLedger, a.registry, a.eventBus, a.logger)
	aggregator := analytics.NewAggregator(a.persistence.ExecutionRepository(), a.logger)

	handlers := web.NewAPIHandlers(store, executionLedger, sched, aggregator, a.registry, a.persistence)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Fieldline Automation API")
	})

	web.RegisterRoutes(app, handlers)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
