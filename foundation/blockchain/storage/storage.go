// Package storage opens the ledger store selected by configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage/postgres"
)

// Set of supported store types.
const (
	TypeMemory   = "memory"
	TypeDisk     = "disk"
	TypeLevelDB  = "leveldb"
	TypePostgres = "postgres"
)

// Types returns the supported store types.
func Types() []string {
	return []string{TypeMemory, TypeDisk, TypeLevelDB, TypePostgres}
}

// Config represents the settings to open a store.
type Config struct {
	Type        string
	DBPath      string
	PostgresURL string
}

// Open constructs the store for the configured type.
func Open(ctx context.Context, cfg Config) (database.LedgerStore, error) {
	if !slices.Contains(Types(), cfg.Type) {
		return nil, database.NewValidationError("store_type", fmt.Errorf("%q is not one of %v", cfg.Type, Types()))
	}

	switch cfg.Type {
	case TypeMemory:
		return memory.New()

	case TypePostgres:
		if cfg.PostgresURL == "" {
			return nil, database.NewValidationError("postgres_url", errors.New("a connection string is required"))
		}
		return postgres.Open(ctx, cfg.PostgresURL)
	}

	if cfg.DBPath == "" {
		return nil, database.NewValidationError("db_path", errors.New("a path is required"))
	}

	if cfg.Type == TypeLevelDB {
		return leveldb.New(cfg.DBPath)
	}

	return disk.New(cfg.DBPath)
}
