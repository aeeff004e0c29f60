package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv applies environment variable overrides. Unset variables keep the
// current value.
//
// Variables:
//
//	PORT, ENVIRONMENT
//	AUTHORITY_ALLOW_REST_UPDATES_PERSON - allow person renames (default false)
//	AUTHORITY_ALLOW_REST_UPDATES_ORCID  - allow ORCID-backed renames (default false)
//	DATABASE_URL - "memory" or "postgresql://..."
//	AUTHORITY_DB_SCHEMA - Postgres schema (default "authority")
//	INDEX_URL - "memory://" or "badger:///path/to/index"
//	NATS_URL, NATS_SUBJECT - rename event publishing
//	JWT_SECRET, ADMIN_ROLE - caller authentication
//	SCAN_BATCH_SIZE - page size for reference scans
func WithEnv() Option {
	return func(c *ServerConfig) error {
		env := *c
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		*c = env
		return nil
	}
}

// WithFlags overrides the rename feature flags
func WithFlags(allowPerson, allowOrcid bool) Option {
	return func(c *ServerConfig) error {
		c.AllowPersonUpdates = allowPerson
		c.AllowOrcidUpdates = allowOrcid
		return nil
	}
}

// WithDatabaseURL overrides the database URL
func WithDatabaseURL(url string) Option {
	return func(c *ServerConfig) error {
		c.DatabaseURL = url
		return nil
	}
}

// WithIndexURL overrides the index URL
func WithIndexURL(url string) Option {
	return func(c *ServerConfig) error {
		c.IndexURL = url
		return nil
	}
}
