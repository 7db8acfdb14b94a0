package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/frat/frat/internal/config"
	"github.com/frat/frat/internal/domain/account"
	"github.com/frat/frat/internal/domain/assessment"
	"github.com/frat/frat/internal/domain/careplan"
	"github.com/frat/frat/internal/domain/patient"
	"github.com/frat/frat/internal/platform/apperr"
	"github.com/frat/frat/internal/platform/auth"
	"github.com/frat/frat/internal/platform/bundle"
	"github.com/frat/frat/internal/platform/db"
	"github.com/frat/frat/internal/platform/docstore"
	"github.com/frat/frat/internal/platform/events"
	"github.com/frat/frat/internal/platform/middleware"
	"github.com/frat/frat/internal/platform/session"
)

// app holds the wired services of one process.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	issuer      *auth.TokenIssuer
	sessions    session.Store
	publisher   events.Publisher
	patients    *patient.Service
	assessments *assessment.Service
	accounts    *account.Service
	careplans   *careplan.Service

	pool    *pgxpool.Pool
	ping    db.Pinger
	closers []func(context.Context) error
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// newApp connects the configured backends and wires the services. Callers
// must call close.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logger,
		issuer: auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
	}

	var (
		patientRepo    patient.Repository
		assessmentRepo assessment.Repository
		userRepo       account.Repository
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		a.ping = db.PoolPinger(pool)
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })
		patientRepo = patient.NewRepoPG(pool)
		assessmentRepo = assessment.NewRepoPG(pool)
		userRepo = account.NewRepoPG(pool)
		logger.Info().Msg("connected to postgres")

	case config.DriverMongo:
		store, err := docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureIndexes(ctx); err != nil {
			a.close(ctx)
			return nil, err
		}
		a.ping = store.Ping
		patientRepo = patient.NewRepoMongo(store)
		assessmentRepo = assessment.NewRepoMongo(store)
		userRepo = account.NewRepoMongo(store)
		logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongo")

	default:
		patientRepo = patient.NewMemoryRepo()
		assessmentRepo = assessment.NewMemoryRepo()
		userRepo = account.NewMemoryRepo()
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
	}

	if cfg.RedisURL != "" {
		rs, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.sessions = rs
		a.closers = append(a.closers, func(context.Context) error { return rs.Close() })
	} else {
		a.sessions = session.NewMemoryStore()
	}

	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.publisher = kp
		a.closers = append(a.closers, func(context.Context) error { return kp.Close() })
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing assessment events")
	} else {
		a.publisher = events.NopPublisher{}
	}

	a.patients = patient.NewService(patientRepo, cfg.StoreTimeout)
	a.assessments = assessment.NewService(assessmentRepo, a.patients, a.publisher, logger, cfg.StoreTimeout)
	a.patients.SetDraftScoper(a.assessments)
	a.accounts = account.NewService(userRepo, a.issuer, logger, cfg.StoreTimeout)

	completer := careplan.NewClient(cfg.CarePlanURL, cfg.CarePlanAPIKey, cfg.CarePlanTimeout, logger)
	a.careplans = careplan.NewService(a.assessments, completer, cfg.CarePlanModel)
	if cfg.CarePlanAPIKey == "" {
		logger.Warn().Msg("OPENROUTER_API_KEY is not set; care plan generation is disabled")
	}

	return a, nil
}

// close releases backends in reverse order of acquisition.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}

func (a *app) importer() *bundle.Importer {
	return &bundle.Importer{
		Patients:    a.patients,
		Assessments: a.assessments,
		Users:       a.accounts,
		Logger:      a.logger,
	}
}

// routes builds the HTTP server.
func (a *app) routes() *echo.Echo {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.Handler(a.logger, cfg.IsProduction())

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID", session.HeaderName},
		ExposeHeaders:    []string{session.HeaderName},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/careplan"))

	e.GET("/health", a.health)
	e.GET("/health/db", db.HealthHandler(cfg.StoreDriver, a.ping, a.pool))

	sessionMW := session.Middleware(a.sessions, session.Options{
		TTL:    cfg.SessionTTL,
		Secure: cfg.IsProduction(),
		Logger: a.logger,
	})
	patient.NewHandler(a.patients).RegisterRoutes(e.Group("/patient", sessionMW))
	assessment.NewHandler(a.assessments).RegisterRoutes(e.Group("/assessment", sessionMW), auth.RequireSession(a.issuer))
	careplan.NewHandler(a.careplans).RegisterRoutes(e.Group("/careplan", sessionMW))
	account.NewHandler(a.accounts, a.issuer).RegisterRoutes(e.Group("/auth", sessionMW),
		middleware.RateLimit(middleware.LoginRateLimitConfig()))

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "Endpoint not found",
			"path":    c.Request().URL.Path,
		})
	})

	return e
}

func (a *app) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "OK",
		"message":     "FRAT backend is running",
		"database":    a.cfg.StoreDriver,
		"environment": a.cfg.Env,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
