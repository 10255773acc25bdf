package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medicare/portal/internal/config"
	"github.com/medicare/portal/internal/domain/registration"
	"github.com/medicare/portal/internal/domain/triage"
	"github.com/medicare/portal/internal/platform/auth"
	"github.com/medicare/portal/internal/platform/cache"
	"github.com/medicare/portal/internal/platform/db"
	"github.com/medicare/portal/internal/platform/events"
	"github.com/medicare/portal/internal/platform/middleware"
)

const devAdminPassword = "admin"

// app holds the wired components shared by serve and seed.
type app struct {
	cfg           *config.Config
	logger        zerolog.Logger
	pool          *pgxpool.Pool
	issuer        *auth.SessionIssuer
	revoked       *auth.RevocationStore
	authHandler   *auth.Handler
	registrations *registration.Service
	closers       []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// Triage core
	var lex *triage.Lexicon
	if cfg.LexiconFile != "" {
		if lex, err = triage.LoadLexicon(cfg.LexiconFile); err != nil {
			return nil, err
		}
		logger.Info().Str("file", cfg.LexiconFile).Msg("loaded lexicon")
	}
	classifier := triage.NewClassifier(lex, triage.WithPediatricNudge(cfg.PediatricAgeNudge))
	coord := triage.NewCoordinator(classifier)

	// Storage
	var (
		repo   registration.Repository
		alerts registration.AlertRepository
	)
	switch cfg.Store {
	case config.StorePostgres:
		a.pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.pool.Close)
		logger.Info().Msg("connected to database")
		repo = registration.NewRepoPG(a.pool, triage.NewRegistrationID)
		alerts = registration.NewAlertRepoPG(a.pool)
	case config.StoreMemory:
		logger.Warn().Msg("using in-memory store; registrations are lost on restart")
		repo = registration.NewMemoryRepo(triage.NewRegistrationID)
		alerts = registration.NewMemoryAlertRepo()
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	svc := registration.NewService(coord, repo, alerts)
	svc.SetLogger(logger.With().Str("component", "registration").Logger())

	// Stats cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, "portal:")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { rc.Close() })
		svc.SetCache(rc, cfg.StatsCacheTTL)
		logger.Info().Msg("connected to redis")
	} else {
		svc.SetCache(cache.NewMemory(), cfg.StatsCacheTTL)
	}

	// Alert events
	if len(cfg.KafkaBrokers) > 0 {
		k := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaAlertsTopic, logger)
		a.closers = append(a.closers, func() { k.Close() })
		svc.SetPublisher(k)
	}
	a.registrations = svc

	// Admin sessions
	if err := a.setupAuth(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) setupAuth() error {
	cfg := a.cfg
	secret := []byte(cfg.AdminJWTSecret)
	if len(secret) == 0 && cfg.IsDev() {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate session key: %w", err)
		}
		a.logger.Warn().Msg("ADMIN_JWT_SECRET not set; sessions will not survive a restart")
	}
	issuer, err := auth.NewSessionIssuer(secret, cfg.SessionTTL)
	if err != nil {
		return err
	}

	hash := cfg.AdminPasswordHash
	if hash == "" && cfg.IsDev() {
		if hash, err = auth.HashPassword(devAdminPassword); err != nil {
			return err
		}
		a.logger.Warn().Str("username", cfg.AdminUsername).Msg("ADMIN_PASSWORD_HASH not set; using the development password")
	}

	a.issuer = issuer
	a.revoked = auth.NewRevocationStore(time.Minute)
	a.closers = append(a.closers, a.revoked.Close)
	a.authHandler = auth.NewHandler(
		auth.Credentials{Username: cfg.AdminUsername, PasswordHash: hash},
		issuer, a.revoked, !cfg.IsDev(),
	)
	return nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) routes() *echo.Echo {
	cfg, logger := a.cfg, a.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	isHealth := func(c echo.Context) bool {
		p := c.Request().URL.Path
		return p == "/health" || p == "/health/db"
	}

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(middleware.SecurityConfig{HSTS: cfg.IsProduction()}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		Skipper:           isHealth,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ok",
			"store":  cfg.Store,
		})
	})
	e.GET("/health/db", db.HealthHandler(a.pool))

	sessionMW := auth.SessionMiddleware(a.issuer, a.revoked)
	if cfg.IsDev() {
		sessionMW = auth.DevAuthMiddleware(a.issuer, a.revoked)
	}

	api := e.Group("/api/v1")
	admin := api.Group("/admin", sessionMW, middleware.Audit(logger, nil))

	a.authHandler.RegisterRoutes(api, admin)
	registration.NewHandler(a.registrations).RegisterRoutes(api, admin)
	return e
}

func printStatus(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}
