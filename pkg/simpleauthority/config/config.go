package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
	natsevents "github.com/tendant/simple-authority/pkg/simpleauthority/events/nats"
	badgerindex "github.com/tendant/simple-authority/pkg/simpleauthority/index/badger"
	memindex "github.com/tendant/simple-authority/pkg/simpleauthority/index/memory"
	"github.com/tendant/simple-authority/pkg/simpleauthority/metrics"
	"github.com/tendant/simple-authority/pkg/simpleauthority/repo/memory"
	repopg "github.com/tendant/simple-authority/pkg/simpleauthority/repo/postgres"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:          "8080",
		Environment:   "development",
		DatabaseURL:   "memory",
		DBSchema:      "authority",
		IndexURL:      "memory://",
		NATSSubject:   natsevents.DefaultSubject,
		AdminRole:     "admin",
		ScanBatchSize: simpleauthority.DefaultScanBatchSize,
	}
}

// ServerConfig represents configuration for the simple-authority service.
// Field tags are read by cleanenv in WithEnv.
type ServerConfig struct {
	Port        string `env:"PORT"`
	Environment string `env:"ENVIRONMENT"` // development, production, testing

	// Feature flags
	AllowPersonUpdates bool `env:"AUTHORITY_ALLOW_REST_UPDATES_PERSON"`
	AllowOrcidUpdates  bool `env:"AUTHORITY_ALLOW_REST_UPDATES_ORCID"`

	// Database configuration: "memory" or a postgres:// URL
	DatabaseURL string `env:"DATABASE_URL"`
	DBSchema    string `env:"AUTHORITY_DB_SCHEMA"`

	// Index configuration: "memory://" or "badger:///path/to/dir"
	IndexURL string `env:"INDEX_URL"`

	// Events: empty NATSURL disables publishing
	NATSURL     string `env:"NATS_URL"`
	NATSSubject string `env:"NATS_SUBJECT"`

	// Authentication
	JWTSecret string `env:"JWT_SECRET"`
	AdminRole string `env:"ADMIN_ROLE"`

	ScanBatchSize int `env:"SCAN_BATCH_SIZE"`
}

// DatabaseType returns "memory" or "postgres"
func (c *ServerConfig) DatabaseType() string {
	if strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return "postgres"
	}
	return "memory"
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseURL != "" && c.DatabaseURL != "memory" && c.DatabaseType() != "postgres" {
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", c.DatabaseURL)
	}

	if c.IndexURL != "memory://" && c.IndexURL != "memory" && !strings.HasPrefix(c.IndexURL, "badger://") {
		return fmt.Errorf("unsupported INDEX_URL format: %s (use 'memory://' or 'badger:///path')", c.IndexURL)
	}
	if strings.HasPrefix(c.IndexURL, "badger://") && strings.TrimPrefix(c.IndexURL, "badger://") == "" {
		return errors.New("badger index path cannot be empty in INDEX_URL")
	}

	if c.ScanBatchSize <= 0 {
		return errors.New("scan_batch_size must be positive")
	}

	if c.Environment == "production" && c.JWTSecret == "" {
		return errors.New("jwt_secret is required in production")
	}

	return nil
}

// Gate returns the capability gate described by the configuration
func (c *ServerConfig) Gate() simpleauthority.StaticGate {
	return simpleauthority.StaticGate{
		AllowPerson:   c.AllowPersonUpdates,
		AllowExternal: c.AllowOrcidUpdates,
		AdminRole:     c.AdminRole,
	}
}

// Store is an autocommit view over both stores
type Store interface {
	simpleauthority.AuthorityStore
	simpleauthority.ContentStore
}

// Built holds the service and the resources backing it
type Built struct {
	Service    simpleauthority.Service
	Transactor simpleauthority.Transactor
	// Store bypasses the service, for tooling
	Store   Store
	closers []io.Closer
	pool    *pgxpool.Pool
}

// Pool returns the Postgres pool, or nil for the in-memory store
func (b *Built) Pool() *pgxpool.Pool {
	return b.pool
}

// Close releases database, index and NATS resources
func (b *Built) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.pool != nil {
		b.pool.Close()
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// BuildService creates a Service from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (*Built, error) {
	if logger == nil {
		logger = slog.Default()
	}
	built := &Built{}
	options := []simpleauthority.Option{
		simpleauthority.WithCapabilityGate(c.Gate()),
		simpleauthority.WithLogger(logger),
		simpleauthority.WithScanBatchSize(c.ScanBatchSize),
		simpleauthority.WithObserver(metrics.NewRecorder(nil)),
	}

	// Set up stores
	switch c.DatabaseType() {
	case "postgres":
		pool, err := c.buildPool(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to build repository: %w", err)
		}
		built.pool = pool
		transactor := repopg.NewTransactor(pool)
		built.Transactor = transactor
		built.Store = transactor.Store()
	default:
		repo := memory.New()
		built.Transactor = repo
		built.Store = repo
	}
	options = append(options, simpleauthority.WithTransactor(built.Transactor))

	// Set up indexes
	authorityIndex, contentIndex, err := c.buildIndexes(logger, built)
	if err != nil {
		built.Close()
		return nil, fmt.Errorf("failed to build indexes: %w", err)
	}
	options = append(options,
		simpleauthority.WithAuthorityIndex(authorityIndex),
		simpleauthority.WithContentIndex(contentIndex))

	// Set up event sink
	if c.NATSURL != "" {
		conn, err := nats.Connect(c.NATSURL, nats.Name("simple-authority"))
		if err != nil {
			built.Close()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		built.closers = append(built.closers, closerFunc(func() error { return conn.Drain() }))
		options = append(options, simpleauthority.WithEventSink(natsevents.New(conn, c.NATSSubject)))
	}

	svc, err := simpleauthority.New(options...)
	if err != nil {
		built.Close()
		return nil, err
	}
	built.Service = svc
	return built, nil
}

func (c *ServerConfig) buildIndexes(logger *slog.Logger, built *Built) (simpleauthority.AuthorityIndex, simpleauthority.ContentIndex, error) {
	if !strings.HasPrefix(c.IndexURL, "badger://") {
		return memindex.New(), memindex.New(), nil
	}

	cfg := badgerindex.DefaultConfig(strings.TrimPrefix(c.IndexURL, "badger://"))
	cfg.Logger = logger
	db, err := badgerindex.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	built.closers = append(built.closers, closerFunc(func() error { return closeBadger(db) }))
	return badgerindex.New(db, "authority/"), badgerindex.New(db, "item/"), nil
}

func closeBadger(db *badger.DB) error {
	return db.Close()
}

// buildPool creates a pgx pool with search_path set to the configured schema
func (c *ServerConfig) buildPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	schema := c.DBSchema
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if schema == "" {
			return nil
		}
		_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", pgx.Identifier{schema}.Sanitize()))
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}
