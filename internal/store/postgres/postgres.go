// Package postgres implements store.Store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/solarfarm-site/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// Options configures the connection pool.
type Options struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
}

// Store is a store.Store backed by PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

// Open connects, pings and returns a Store. The schema is not applied; call Migrate.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	logger.Info("connected to database",
		zap.String("op", "postgres.Open"),
		zap.String("database", cfg.ConnConfig.Database),
		zap.Int32("maxConns", cfg.MaxConns),
	)
	return &Store{pool: pool, logger: logger, now: time.Now}, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.logger.Debug("schema applied", zap.String("op", "postgres.Migrate"))
	return nil
}

func (s *Store) SaveLead(ctx context.Context, lead store.Lead) (store.Lead, error) {
	store.Identify(&lead.ID, &lead.CreatedAt, s.now())
	_, err := s.pool.Exec(ctx, `
		INSERT INTO leads (id, request_id, name, email, phone, company, message, interest, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		lead.ID, lead.RequestID, lead.Name, lead.Email, lead.Phone, lead.Company,
		lead.Message, lead.Interest, lead.Source, lead.CreatedAt,
	)
	if err != nil {
		return store.Lead{}, fmt.Errorf("failed to save lead: %w", err)
	}
	return lead, nil
}

func (s *Store) SaveSubscriber(ctx context.Context, sub store.Subscriber) (store.Subscriber, bool, error) {
	store.Identify(&sub.ID, &sub.CreatedAt, s.now())
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO subscribers (id, email, locale, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING`,
		sub.ID, sub.Email, sub.Locale, sub.CreatedAt,
	)
	if err != nil {
		return store.Subscriber{}, false, fmt.Errorf("failed to save subscriber: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return sub, true, nil
	}

	existing, err := s.Subscriber(ctx, sub.Email)
	if err != nil {
		return store.Subscriber{}, false, err
	}
	return existing, false, nil
}

func (s *Store) Subscriber(ctx context.Context, email string) (store.Subscriber, error) {
	var sub store.Subscriber
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, email, locale, created_at FROM subscribers WHERE email = $1`, email,
	).Scan(&sub.ID, &sub.Email, &sub.Locale, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Subscriber{}, store.ErrNotFound
	}
	if err != nil {
		return store.Subscriber{}, fmt.Errorf("failed to load subscriber: %w", err)
	}
	return sub, nil
}

func (s *Store) SaveCalculation(ctx context.Context, calc store.Calculation) (store.Calculation, error) {
	store.Identify(&calc.ID, &calc.CreatedAt, s.now())
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calculations (
			id, request_id, capacity_class, electricity_rate, operating_cost_percent,
			investment, npv, irr_percent, degenerate, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		calc.ID, calc.RequestID, calc.CapacityClass, calc.ElectricityRate, calc.OperatingCostPercent,
		calc.Investment, calc.NPV, calc.IRRPercent, calc.Degenerate, jsonb(calc.Result), calc.CreatedAt,
	)
	if err != nil {
		return store.Calculation{}, fmt.Errorf("failed to save calculation: %w", err)
	}
	return calc, nil
}

func (s *Store) SaveAssessment(ctx context.Context, a store.Assessment) (store.Assessment, error) {
	store.Identify(&a.ID, &a.CreatedAt, s.now())
	_, err := s.pool.Exec(ctx, `
		INSERT INTO assessments (
			id, request_id, area_hectares, terrain, potential_mw, score, rating, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.RequestID, a.AreaHectares, a.Terrain, a.PotentialMW, a.Score, a.Rating, jsonb(a.Result), a.CreatedAt,
	)
	if err != nil {
		return store.Assessment{}, fmt.Errorf("failed to save assessment: %w", err)
	}
	return a, nil
}

func (s *Store) PurgeCalculations(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM calculations WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge calculations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// jsonb maps an empty document to NULL.
func jsonb(doc []byte) []byte {
	if len(doc) == 0 {
		return nil
	}
	return doc
}

var _ store.Store = (*Store)(nil)
