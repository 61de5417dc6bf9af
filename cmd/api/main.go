package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"governance-ledger/config"
	"governance-ledger/internal/adapter/events/kafka"
	httpHandler "governance-ledger/internal/adapter/http/handler"
	"governance-ledger/internal/adapter/http/middleware"
	memStorage "governance-ledger/internal/adapter/storage/memory"
	mongoStorage "governance-ledger/internal/adapter/storage/mongo"
	pgStorage "governance-ledger/internal/adapter/storage/postgres"
	redisStorage "governance-ledger/internal/adapter/storage/redis"
	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/internal/service"
	"governance-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// stores groups the persistence ports chosen by storage.driver.
type stores struct {
	accounts  ports.AccountStore
	journal   ports.TransferJournal
	proposals ports.ProposalStore
	receipts  ports.VoteReceiptStore
	members   ports.MemberRepository
	audit     ports.AuditRepository
	health    []ports.HealthChecker
	closers   []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	cfg, err := config.Load(os.Getenv("GOV_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting governance ledger")

	if cfg.JWT.Secret == "" {
		log.Warn().Str("mode", config.ModeTest).Msg("jwt.secret is empty; tokens are signed with an empty key")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer st.close()

	// Redis backs idempotency, signature replay and rate limits. The memory
	// driver runs without it.
	var (
		idempCache  ports.IdempotencyCache
		replayStore ports.NonceStore = memStorage.NewNonceStore()
		limiter     middleware.Limiter
	)
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	switch {
	case err == nil:
		defer rdb.Close()
		idempCache = redisStorage.NewIdempotencyCache(rdb)
		replayStore = redisStorage.NewNonceStore(rdb)
		limiter = redisStorage.NewRateLimitStore(rdb)
		st.health = append(st.health, redisStorage.NewHealthCheck(rdb))
		log.Info().Msg("Redis connected")
	case cfg.Storage.Driver == config.DriverMemory:
		log.Warn().Err(err).Msg("Redis unavailable; using in-process replay guard without rate limits")
	default:
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	var events ports.EventPublisher = kafka.NoopPublisher{}
	if cfg.Kafka.Enabled() {
		events = kafka.NewPublisher(cfg.Kafka, logger.Component(log, "events"))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka publisher enabled")
	}
	defer func() {
		if err := events.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	table, err := domain.NewAllocationTable(cfg.Ledger.Allocations)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid allocation table")
	}

	// Core services
	hashSvc := service.NewArgon2HashService(service.DefaultArgon2Params())
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	ledgerSvc := service.NewLedgerService(st.accounts, st.journal, idempCache, events, table, cfg.Ledger.IdempotencyTTL, logger.Component(log, "ledger"))
	authSvc := service.NewAuthService(st.members, ledgerSvc, hashSvc, tokenSvc, service.AuthOptions{
		AdminEmails: cfg.Auth.AdminEmails,
		SignupGrant: cfg.Ledger.SignupGrant,
	}, logger.Component(log, "auth"))
	proposalSvc, err := service.NewProposalService(st.proposals, cfg.Voting.Directions, logger.Component(log, "proposals"))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid vote directions")
	}
	votingSvc := service.NewVotingService(
		service.NewEthereumVoteAuthorizer(),
		service.NewTallyService(st.proposals, logger.Component(log, "tally")),
		st.proposals,
		st.receipts,
		replayStore,
		events,
		service.VotingOptions{
			RequireBoundMessage: cfg.Voting.RequireBoundMessage,
			ReplayTTL:           cfg.Voting.ReplayTTL,
		},
		logger.Component(log, "voting"),
	)

	reconciler := service.NewReconciler(
		st.accounts,
		st.journal,
		cfg.Ledger.ReconcileInterval,
		cfg.Ledger.ReconcileStaleAfter,
		cfg.Ledger.ReconcileBatch,
		logger.Component(log, "reconciler"),
	)
	reconcilerDone := make(chan struct{})
	go func() {
		defer close(reconcilerDone)
		reconciler.Run(ctx)
	}()

	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetOpenAPISpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded at /docs")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, /docs will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		MemberSvc:      service.NewMemberService(st.members, st.accounts),
		LedgerSvc:      ledgerSvc,
		ProposalSvc:    proposalSvc,
		VotingSvc:      votingSvc,
		ReportingSvc:   service.NewReportingService(st.proposals),
		TokenSvc:       tokenSvc,
		AuditSvc:       service.NewAuditService(st.audit, logger.Component(log, "audit")),
		RateLimiter:    limiter,
		RateLimit:      cfg.RateLimit.Limit,
		RateWindow:     cfg.RateLimit.Window,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		HealthCheckers: st.health,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stop()
	select {
	case <-reconcilerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Reconciler did not stop before shutdown timeout")
	}

	log.Info().Msg("Server exited")
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Info().Msg("PostgreSQL connected")
		if cfg.Database.AutoMigrate {
			if err := pgStorage.Migrate(ctx, pool, log); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		return &stores{
			accounts:  pgStorage.NewAccountRepo(pool),
			journal:   pgStorage.NewTransferRepo(pool),
			proposals: pgStorage.NewProposalRepo(pool),
			receipts:  pgStorage.NewReceiptRepo(pool),
			members:   pgStorage.NewMemberRepo(pool),
			audit:     pgStorage.NewAuditRepo(pool),
			health:    []ports.HealthChecker{pgStorage.NewHealthCheck(pool)},
			closers:   []func(){pool.Close},
		}, nil

	case config.DriverMongo:
		client, err := mongoStorage.NewClient(ctx, cfg.Mongo, log)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		db := client.Database(cfg.Mongo.Database)
		if err := mongoStorage.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("MongoDB connected")
		return &stores{
			accounts:  mongoStorage.NewAccountRepo(db),
			journal:   mongoStorage.NewTransferRepo(db),
			proposals: mongoStorage.NewProposalRepo(db),
			receipts:  mongoStorage.NewReceiptRepo(db),
			members:   mongoStorage.NewMemberRepo(db),
			audit:     mongoStorage.NewAuditRepo(db),
			health:    []ports.HealthChecker{mongoStorage.NewHealthCheck(client)},
			closers: []func(){func() {
				if err := client.Disconnect(context.Background()); err != nil {
					log.Error().Err(err).Msg("Failed to disconnect MongoDB")
				}
			}},
		}, nil

	default:
		log.Warn().Msg("Using in-memory storage; state is lost on restart")
		return &stores{
			accounts:  memStorage.NewAccountStore(),
			journal:   memStorage.NewTransferJournal(),
			proposals: memStorage.NewProposalStore(),
			receipts:  memStorage.NewVoteReceiptStore(),
			members:   memStorage.NewMemberRepository(),
			audit:     memStorage.NewAuditRepository(),
			health:    []ports.HealthChecker{memStorage.HealthCheck{}},
		}, nil
	}
}
