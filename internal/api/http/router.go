package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workflow-service/internal/api/http/handlers"
	"github.com/spec-kit/workflow-service/internal/auth"
	"github.com/spec-kit/workflow-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Audit          *handlers.AuditHandler
	Roles          *handlers.RolesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Kind-specific create and transition
// capabilities are enforced inside the workflow engine; route guards cover
// only the capabilities that are fixed per endpoint.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/stats", cfg.Health.Stats)

	app.Post("/auth/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/transition", cfg.Tickets.Transition)
	tickets.Post("/:id/assign", auth.RequireCapability(domain.CapTicketAssign), cfg.Tickets.Assign)
	tickets.Post("/:id/notes", auth.RequireCapability(domain.CapTicketNote), cfg.Tickets.AddNote)
	tickets.Post("/:id/actions", auth.RequireCapability(domain.CapTicketNote), cfg.Tickets.RecordAction)

	audit := protected.Group("/audit")
	audit.Get("/verify", auth.RequireCapability(domain.CapAuditVerify), cfg.Audit.VerifyChain)
	audit.Get("/:resourceID", auth.RequireCapability(domain.CapAuditView), cfg.Audit.Trail)

	roles := protected.Group("/roles")
	roles.Get("", cfg.Roles.ListRoles)
	roles.Post("", auth.RequireCapability(domain.CapRoleManage), cfg.Roles.CreateRole)
	roles.Put("/:id", auth.RequireCapability(domain.CapRoleManage), cfg.Roles.UpdateRole)
	roles.Delete("/:id", auth.RequireCapability(domain.CapRoleManage), cfg.Roles.DeleteRole)

	actors := protected.Group("/actors")
	actors.Post("", auth.RequireCapability(domain.CapRoleManage), cfg.Auth.CreateActor)
	actors.Post("/:id/overrides", auth.RequireCapability(domain.CapRoleManage), cfg.Roles.GrantOverride)
	actors.Get("/:id/permissions", auth.RequireCapability(domain.CapRoleManage), cfg.Roles.ResolvePermissions)

	protected.Get("/me/permissions", cfg.Roles.MyPermissions)
}
