package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/matchpick/predictor-league/external/anubis"
	"github.com/matchpick/predictor-league/internal/config"
	"github.com/matchpick/predictor-league/internal/domain/audit"
	"github.com/matchpick/predictor-league/internal/domain/bet"
	"github.com/matchpick/predictor-league/internal/domain/fixture"
	"github.com/matchpick/predictor-league/internal/domain/round"
	"github.com/matchpick/predictor-league/internal/domain/season"
	"github.com/matchpick/predictor-league/internal/domain/user"
	"github.com/matchpick/predictor-league/internal/domain/winner"
	"github.com/matchpick/predictor-league/internal/infrastructure/notifier"
	"github.com/matchpick/predictor-league/internal/infrastructure/repository/memory"
	"github.com/matchpick/predictor-league/internal/infrastructure/repository/postgres"
	"github.com/matchpick/predictor-league/internal/interfaces/httpapi"
	"github.com/matchpick/predictor-league/internal/platform/cache"
	idgen "github.com/matchpick/predictor-league/internal/platform/id"
	"github.com/matchpick/predictor-league/internal/platform/logging"
	"github.com/matchpick/predictor-league/internal/platform/resilience"
	"github.com/matchpick/predictor-league/internal/usecase"
)

type repositories struct {
	seasons  season.Repository
	rounds   round.Repository
	fixtures fixture.Repository
	bets     bet.Repository
	users    user.Repository
	winners  winner.Repository

	close func() error
}

// NewHTTPServer wires storage, use cases and the HTTP boundary from config.
// The returned cleanup releases the storage handle and is safe to call after
// the server has shut down.
func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	repos, err := openRepositories(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var responseCache *cache.Store
	var invalidator usecase.StandingsInvalidator
	if cfg.CacheEnabled {
		responseCache = cache.NewStore(cfg.CacheTTL)
		invalidator = responseCache
	}

	var auditSink audit.Sink = audit.NopSink{}
	if cfg.AuditWebhookEnabled {
		auditSink = notifier.NewWebhookSink(notifier.WebhookSinkConfig{
			URL:     cfg.AuditWebhookURL,
			Token:   cfg.AuditWebhookToken,
			Timeout: cfg.AuditWebhookTimeout,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.AuditWebhookCircuitEnabled,
				FailureThreshold: cfg.AuditWebhookCircuitFailures,
				OpenTimeout:      cfg.AuditWebhookCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.AuditWebhookCircuitHalfOpenMax,
			},
		}, logger)
	}

	idGen := idgen.NewRandomGenerator()

	betService := usecase.NewBetService(repos.rounds, repos.fixtures, repos.bets, idGen)
	scoringService := usecase.NewScoringService(repos.rounds, repos.seasons, repos.fixtures, repos.bets, invalidator, auditSink, logger)
	cupService := usecase.NewCupService(repos.seasons, repos.rounds, repos.fixtures, repos.bets, invalidator, auditSink, logger, usecase.CupConfig{
		ActivationThreshold:     cfg.CupActivationThreshold,
		RemainingFixtureCeiling: cfg.CupRemainingFixtureCeiling,
	})
	retroService := usecase.NewRetroService(repos.rounds, repos.bets, repos.users, invalidator, auditSink, logger, idGen)
	standingsService := usecase.NewStandingsService(repos.bets, repos.users, repos.rounds)
	seasonService := usecase.NewSeasonService(repos.seasons, repos.winners, standingsService, auditSink, logger, idGen)

	verifier := anubis.NewClient(anubis.Config{
		BaseURL:        cfg.AnubisBaseURL,
		IntrospectPath: cfg.AnubisIntrospectPath,
		Timeout:        cfg.AnubisTimeout,
		CacheTTL:       cfg.AnubisCacheTTL,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.AnubisCircuitEnabled,
			FailureThreshold: cfg.AnubisCircuitFailureCount,
			OpenTimeout:      cfg.AnubisCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.AnubisCircuitHalfOpenMaxReq,
		},
	}, logger)

	handler := httpapi.NewHandler(
		betService,
		scoringService,
		cupService,
		retroService,
		standingsService,
		seasonService,
		responseCache,
		logger,
	)
	router := httpapi.NewRouter(handler, verifier, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		_ = repos.close()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, repos.close, nil
}

func openRepositories(cfg config.Config, logger *logging.Logger) (repositories, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		logger.Info("storage driver: memory", "seeded", true)
		betRepo := memory.NewBetRepository(nil)
		return repositories{
			seasons:  memory.NewSeasonRepository(memory.SeedSeasons()),
			rounds:   memory.NewRoundRepository(memory.SeedRounds()),
			fixtures: memory.NewFixtureRepository(memory.SeedFixtures()),
			bets:     betRepo,
			users:    memory.NewUserRepository(memory.SeedUsers(), betRepo),
			winners:  memory.NewWinnerRepository(),
			close:    func() error { return nil },
		}, nil
	case config.StorageDriverPostgres:
		db, err := openPostgres(cfg)
		if err != nil {
			return repositories{}, err
		}
		logger.Info("storage driver: postgres", "database", dbNameFromURL(cfg.DBURL))
		if cfg.AppEnv == config.EnvDev {
			seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := postgres.BootstrapSeed(seedCtx, db); err != nil {
				_ = db.Close()
				return repositories{}, err
			}
		}
		return repositories{
			seasons:  postgres.NewSeasonRepository(db),
			rounds:   postgres.NewRoundRepository(db),
			fixtures: postgres.NewFixtureRepository(db),
			bets:     postgres.NewBetRepository(db),
			users:    postgres.NewUserRepository(db),
			winners:  postgres.NewWinnerRepository(db),
			close:    db.Close,
		}, nil
	default:
		return repositories{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func openPostgres(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}
