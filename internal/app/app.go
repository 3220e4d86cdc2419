package app

import (
	"net/http"
	"time"

	"carrykind-backend/internal/auth"
	"carrykind-backend/internal/causes"
	"carrykind-backend/internal/claims"
	"carrykind-backend/internal/config"
	"carrykind-backend/internal/constants"
	"carrykind-backend/internal/database"
	"carrykind-backend/internal/emails"
	"carrykind-backend/internal/health"
	"carrykind-backend/internal/inventory"
	"carrykind-backend/internal/middleware"
	"carrykind-backend/internal/sponsorships"
	"carrykind-backend/internal/sweeper"
	"carrykind-backend/internal/verification"
	"carrykind-backend/internal/waitlist"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the long-lived handles CreateApp hands back so main can ping
// connections and start the sweeper.
type Deps struct {
	DB      *gorm.DB
	Rdb     *redis.Client
	Sweeper *sweeper.Sweeper
}

// CreateApp builds the Fiber app with all global middleware and route registration.
func CreateApp(cfg *config.Config) (*fiber.App, *Deps, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	// CORS (before session)
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Session (Redis); need Redis client for health marker and the OTP gateway too
	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, err
	}
	app.Use(sessionHandler)

	// Health request marker (after session)
	app.Use(middleware.HealthMarker(rdb))

	// Response formatter (inject helpers)
	app.Use(middleware.ResponseFormatter())

	// Tracing + route logger
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	app.Use(func(c *fiber.Ctx) error {
		user := c.Locals("user")
		if user == nil {
			c.Locals("user", nil)
		}
		return c.Next()
	})

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, errDB
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, err
		}
	}

	// --- Health (no auth): dashboard, reset, JSON, error log ---
	healthHandlers := &health.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			healthHandlers.DB = sqlDB
		}
	}
	app.Get("/", healthHandlers.Dashboard)
	app.Get("/reset", healthHandlers.Reset)
	app.Get("/health/json", healthHandlers.JSON)
	app.Get("/health/errors", healthHandlers.Errors)

	// --- Auth (no auth middleware): POST login, GET me, DELETE logout ---
	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	deps := &Deps{DB: db, Rdb: rdb}

	if db != nil && rdb != nil {
		mailer := &emails.BrevoClient{
			APIKey:   cfg.SendinblueAPIKey,
			MailFrom: cfg.MailFrom,
		}

		ledger := inventory.NewService(db)
		gateway := &verification.Service{Rdb: rdb}
		waitlistService := waitlist.NewService(db, ledger, mailer, cfg.ClaimBaseURL)
		claimsService := claims.NewService(db, ledger, gateway, waitlistService, mailer)
		causesService := &causes.Service{DB: db}
		sponsorshipService := &sponsorships.Service{DB: db, Ledger: ledger, Waitlist: waitlistService}

		// Causes: public browse, admin publish/toggle
		causesHandlers := &causes.Handlers{Service: causesService}
		causeGroup := app.Group("/api/v1/causes")
		causeGroup.Get("/", causesHandlers.List)
		causeGroup.Get("/:id", causesHandlers.View)
		causeGroup.Post("/create", middleware.RequireAuth(), middleware.AuthorizePermission(constants.PublishCause), causesHandlers.Create)
		causeGroup.Patch("/:id/online", middleware.RequireAuth(), middleware.AuthorizePermission(constants.PublishCause), causesHandlers.SetOnline)

		// Claims: public lifecycle, admin fulfilment
		claimsHandlers := &claims.Handlers{Service: claimsService}
		claimGroup := app.Group("/api/v1/claims")
		claimGroup.Post("/submit", claimsHandlers.Submit)
		claimGroup.Post("/verify", claimsHandlers.Verify)
		claimGroup.Post("/resend", claimsHandlers.Resend)
		claimGroup.Get("/status", claimsHandlers.Status)
		claimGroup.Post("/cancel", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ManageClaims), claimsHandlers.Cancel)
		claimGroup.Patch("/advance", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ManageClaims), claimsHandlers.Advance)

		// Waitlist: public join/leave/check-token, admin view
		waitlistHandlers := &waitlist.Handlers{Service: waitlistService}
		wlGroup := app.Group("/api/v1/waitlist")
		wlGroup.Post("/join", waitlistHandlers.Join)
		wlGroup.Post("/leave", waitlistHandlers.Leave)
		wlGroup.Post("/public/check-token", waitlistHandlers.CheckToken)
		wlGroup.Get("/view", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ViewData), waitlistHandlers.View)

		// Sponsorships: public submit, admin review
		sponsorshipHandlers := &sponsorships.Handlers{Service: sponsorshipService}
		spGroup := app.Group("/api/v1/sponsorships")
		spGroup.Post("/submit", sponsorshipHandlers.Submit)
		spGroup.Patch("/approve", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ApproveSponsorship), sponsorshipHandlers.Approve)
		spGroup.Patch("/reject", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ApproveSponsorship), sponsorshipHandlers.Reject)
		spGroup.Patch("/end", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ApproveSponsorship), sponsorshipHandlers.End)
		spGroup.Get("/view-all", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ViewData), sponsorshipHandlers.ViewAll)

		deps.Sweeper = sweeper.New(claimsService, waitlistService, sweepInterval(cfg.SweepInterval))
	}

	return app, deps, nil
}

func sweepInterval(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return sweeper.DefaultInterval
	}
	return d
}

// Handler returns an http.Handler (Fiber app as net/http handler).
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
