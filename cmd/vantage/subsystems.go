package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/lib/pq" // Postgres driver

	"github.com/Vantage-Labs/vantage/core/pkg/archive"
	"github.com/Vantage-Labs/vantage/core/pkg/audit"
	"github.com/Vantage-Labs/vantage/core/pkg/budget"
	"github.com/Vantage-Labs/vantage/core/pkg/config"
	"github.com/Vantage-Labs/vantage/core/pkg/corroborate"
	"github.com/Vantage-Labs/vantage/core/pkg/credibility"
	"github.com/Vantage-Labs/vantage/core/pkg/index"
	"github.com/Vantage-Labs/vantage/core/pkg/ingest"
	"github.com/Vantage-Labs/vantage/core/pkg/invalidate"
	"github.com/Vantage-Labs/vantage/core/pkg/signpost"
	"github.com/Vantage-Labs/vantage/core/pkg/store"
)

// subsystems bundles the wired pipeline components.
type subsystems struct {
	cfg      *config.Config
	db       *sql.DB // set only for the Postgres backend
	store    store.Store
	trail    *audit.Trail
	registry *signpost.Registry
	policy   credibility.Policy

	budget     *budget.Enforcer
	gate       *ingest.Gate
	assigner   *credibility.Assigner
	estimator  *credibility.Estimator
	promoter   *corroborate.Promoter
	aggregator *index.Aggregator

	invalidator invalidate.Invalidator
	closers     []func() error
}

// initSubsystems wires all components from config. Postgres when
// DATABASE_URL is set, the SQLite file otherwise.
func initSubsystems(ctx context.Context, cfg *config.Config) (*subsystems, error) {
	s := &subsystems{cfg: cfg, trail: audit.NewTrail()}

	if err := s.initStore(ctx); err != nil {
		return nil, err
	}
	if err := s.initRegistry(); err != nil {
		return nil, err
	}
	if err := s.initPolicy(); err != nil {
		return nil, err
	}
	s.initInvalidator()
	if err := s.initBudget(ctx); err != nil {
		return nil, err
	}

	archiver, err := archive.NewArchiverFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive init failed: %w", err)
	}

	s.gate = ingest.NewGate(s.store, s.trail, cfg.IngestRPS, cfg.IngestBurst)
	s.assigner = credibility.NewAssigner(s.store, s.trail, s.policy)
	s.estimator = credibility.NewEstimator(s.store, s.policy)
	s.promoter = corroborate.NewPromoter(s.store, s.trail, s.invalidator)
	s.aggregator = index.NewAggregator(s.store, s.registry, s.trail, s.invalidator, archiver)
	return s, nil
}

func (s *subsystems) initStore(ctx context.Context) error {
	if s.cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", s.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres open failed: %w", err)
		}
		pg := store.NewPostgresStore(db)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return fmt.Errorf("postgres migration failed: %w", err)
		}
		s.store = pg
		s.db = db
		s.closers = append(s.closers, db.Close)
		slog.Info("store ready", "backend", "postgres")
		return nil
	}

	lite, err := store.OpenSQLite(s.cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("sqlite open failed: %w", err)
	}
	s.store = lite
	s.closers = append(s.closers, lite.Close)
	slog.Info("store ready", "backend", "sqlite", "path", s.cfg.SQLitePath)
	return nil
}

func (s *subsystems) initRegistry() error {
	s.registry = signpost.NewRegistry()
	if _, err := os.Stat(s.cfg.SignpostManifest); err != nil {
		slog.Warn("signpost manifest missing, starting with empty registry",
			"path", s.cfg.SignpostManifest)
		return nil
	}
	if err := s.registry.LoadFile(s.cfg.SignpostManifest); err != nil {
		return fmt.Errorf("signpost manifest load failed: %w", err)
	}
	return nil
}

func (s *subsystems) initPolicy() error {
	if s.cfg.CredibilityPolicy == "" {
		s.policy = credibility.DefaultPolicy()
		return nil
	}
	policy, err := credibility.LoadPolicy(s.cfg.CredibilityPolicy)
	if err != nil {
		return fmt.Errorf("credibility policy load failed: %w", err)
	}
	s.policy = policy
	return nil
}

// initBudget shares the Postgres connection when one exists; the SQLite
// deployment keeps producer budgets in process.
func (s *subsystems) initBudget(ctx context.Context) error {
	if s.db == nil {
		s.budget = budget.NewEnforcer(budget.NewMemoryStorage())
		return nil
	}
	storage := budget.NewPostgresStorage(s.db)
	if err := storage.Migrate(ctx); err != nil {
		return fmt.Errorf("budget migration failed: %w", err)
	}
	s.budget = budget.NewEnforcer(storage)
	return nil
}

func (s *subsystems) initInvalidator() {
	if s.cfg.RedisAddr == "" {
		s.invalidator = invalidate.Noop{}
		return
	}
	r := invalidate.NewRedisInvalidator(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB)
	s.invalidator = r
	s.closers = append(s.closers, r.Close)
	slog.Info("cache invalidation publisher ready", "addr", s.cfg.RedisAddr)
}

func (s *subsystems) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Warn("subsystem close failed", "error", err)
		}
	}
}
