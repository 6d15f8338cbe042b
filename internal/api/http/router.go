package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/staff-service/internal/api/http/handlers"
	"github.com/spec-kit/staff-service/internal/auth"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Accounts       *handlers.AccountsHandler
	Applications   *handlers.ApplicationsHandler
	Reports        *handlers.ReportsHandler
	Teams          *handlers.TeamsHandler
	Staff          *handlers.StaffHandler
	Approvals      *handlers.ApprovalsHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.AuthMiddleware
	// Metrics is served on /metrics when set.
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	mw := cfg.AuthMiddleware
	authenticated := mw.Handle
	staffAdmin := auth.RequireAuthority(domain.AuthorityStaffAdmin)
	superAdmin := auth.RequireSuperAdmin()

	authGroup := api.Group("/auth")
	authGroup.Get("/login", cfg.Auth.Login)
	authGroup.Get("/callback", cfg.Auth.Callback)
	authGroup.Get("/me", authenticated, cfg.Auth.Me)
	authGroup.Post("/logout", authenticated, cfg.Auth.Logout)

	users := api.Group("/users", authenticated, staffAdmin)
	users.Get("", cfg.Accounts.List)
	users.Put("/:id/role", superAdmin, cfg.Accounts.SetAuthority)

	types := api.Group("/application-types")
	types.Get("", mw.Optional, cfg.Applications.ListTypes)
	types.Get("/:id", cfg.Applications.GetType)
	types.Post("", authenticated, staffAdmin, cfg.Applications.CreateType)
	types.Put("/:id", authenticated, staffAdmin, cfg.Applications.UpdateType)
	types.Delete("/:id", authenticated, staffAdmin, cfg.Applications.DeleteType)

	apps := api.Group("/applications", authenticated)
	apps.Post("", cfg.Applications.Create)
	apps.Get("", cfg.Applications.List)
	apps.Get("/:id", cfg.Applications.Get)
	apps.Post("/:id/review", staffAdmin, cfg.Applications.Review)

	reports := api.Group("/reports", authenticated)
	reports.Post("", cfg.Reports.Create)
	reports.Get("", cfg.Reports.List)
	reports.Get("/:id", cfg.Reports.Get)
	reports.Patch("/:id", staffAdmin, cfg.Reports.Update)

	teams := api.Group("/staff-teams", authenticated, staffAdmin)
	teams.Get("", cfg.Teams.List)
	teams.Get("/:id", cfg.Teams.Get)
	teams.Post("", superAdmin, cfg.Teams.Create)
	teams.Put("/:id", superAdmin, cfg.Teams.Update)
	teams.Delete("/:id", superAdmin, cfg.Teams.Delete)

	api.Get("/staff", cfg.Staff.Roster)
	myTeam := api.Group("/staff/my-team", authenticated, mw.RequireHeadAdmin())
	myTeam.Get("", cfg.Staff.MyTeam)
	myTeam.Post("/members/:id/strike", cfg.Staff.AddStrike)
	myTeam.Post("/members/:id/note", cfg.Staff.AddNote)
	myTeam.Post("/members/:id/uprank", cfg.Staff.Uprank)

	super := api.Group("/super-admin", authenticated, superAdmin)
	super.Post("/strikes/remove/:id", cfg.Staff.RemoveStrike)
	super.Post("/staff/transfer", cfg.Staff.Transfer)
	super.Post("/staff/remove/:id", cfg.Staff.Remove)
	super.Post("/staff/add", cfg.Staff.Add)

	approvals := api.Group("/approvals", authenticated)
	approvals.Get("", staffAdmin, cfg.Approvals.List)
	approvals.Post("/:id/resolve", cfg.Approvals.Resolve)

	api.Post("/discord/interactions", cfg.Approvals.Interaction)
	api.Get("/stats", authenticated, staffAdmin, cfg.Stats.Stats)
}
