package web

import "github.com/gofiber/fiber/v3"

// RegisterRoutes attaches every API endpoint to the app.
func RegisterRoutes(app *fiber.App, handlers *APIHandlers) {
	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Put("/:id/status", handlers.SetWorkflowStatus)

	e := app.Group("/executions")
	e.Get("/", handlers.GetExecutions)
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/resume", handlers.ResumeExecution)

	app.Get("/analytics", handlers.GetAnalytics)
	app.Get("/action-types", handlers.GetActionTypes)
	app.Get("/health", handlers.HealthCheck)
}
