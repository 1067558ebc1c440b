package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Complaints     *handlers.ComplaintsHandler
	Staff          *handlers.StaffComplaintsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	authed := app.Group("", cfg.AuthMiddleware.Handle)
	authed.Get("/categories", cfg.Complaints.ListCategories)

	student := authed.Group("/complaints", auth.RequireStudent())
	student.Post("", cfg.Complaints.CreateComplaint)
	student.Get("", cfg.Complaints.ListComplaints)
	student.Get("/dashboard", cfg.Complaints.Dashboard)
	student.Get("/:id", cfg.Complaints.GetComplaint)
	student.Post("/:id/comments", cfg.Complaints.AddComment)

	staff := authed.Group("/staff", auth.RequireStaff())
	staff.Get("/dashboard", cfg.Staff.Dashboard)
	staff.Get("/complaints", cfg.Staff.ListAssigned)
	staff.Get("/complaints/unassigned", cfg.Staff.ListUnassigned)
	staff.Get("/complaints/:id", cfg.Staff.GetComplaint)
	staff.Post("/complaints/:id/claim", cfg.Staff.Claim)
	staff.Patch("/complaints/:id/status", cfg.Staff.UpdateStatus)
	staff.Post("/complaints/:id/escalate", cfg.Staff.Escalate)
	staff.Get("/complaints/:id/escalations", cfg.Staff.ListEscalations)
	staff.Post("/complaints/:id/comments", cfg.Staff.AddComment)

	admin := authed.Group("/admin", auth.RequireAdmin())
	admin.Get("/dashboard", cfg.Admin.Dashboard)
	admin.Get("/complaints", cfg.Admin.ListComplaints)

	admin.Post("/jobs/breach-scan", cfg.Admin.RunBreachScan)
	admin.Post("/jobs/auto-escalate", cfg.Admin.RunAutoEscalate)
	admin.Post("/jobs/assign", cfg.Admin.RunAssignment)
	admin.Post("/jobs/daily-stats", cfg.Admin.RunDailyStats)

	admin.Get("/escalations", cfg.Admin.ListEscalations)
	admin.Post("/escalations/:id/resolve", cfg.Admin.ResolveEscalation)

	admin.Get("/sla-policies", cfg.Admin.ListPolicies)
	admin.Post("/sla-policies", cfg.Admin.CreatePolicy)
	admin.Put("/sla-policies/:id", cfg.Admin.UpdatePolicy)

	admin.Get("/categories", cfg.Admin.ListCategories)
	admin.Post("/categories", cfg.Admin.CreateCategory)
	admin.Put("/categories/:id", cfg.Admin.UpdateCategory)

	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Post("/users", cfg.Admin.CreateStaff)
	admin.Patch("/users/:id/active", cfg.Admin.SetUserActive)
}
