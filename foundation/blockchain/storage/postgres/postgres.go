// Package postgres implements the ability to read and write the ledger to a
// PostgreSQL database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// Set of statements used against the database.
const (
	CreateBlocksTable = `CREATE TABLE IF NOT EXISTS blocks (
	idx  BIGINT PRIMARY KEY,
	hash TEXT   NOT NULL UNIQUE,
	data JSONB  NOT NULL
)`

	CreateMempoolsTable = `CREATE TABLE IF NOT EXISTS mempools (
	id   TEXT  PRIMARY KEY,
	data JSONB NOT NULL
)`

	CreateUTXOsTable = `CREATE TABLE IF NOT EXISTS utxos (
	seq          BIGINT         PRIMARY KEY,
	id           TEXT           NOT NULL UNIQUE,
	account      TEXT           NOT NULL,
	amount       NUMERIC(20, 0) NOT NULL,
	spent        BOOLEAN        NOT NULL,
	source_tx    TEXT           NOT NULL,
	source_block TEXT           NOT NULL
)`

	SelectBlocksQuery  = `SELECT data FROM blocks ORDER BY idx`
	CountBlocksQuery   = `SELECT COUNT(*) FROM blocks`
	SelectHashQuery    = `SELECT hash FROM blocks WHERE idx = $1`
	InsertBlockQuery   = `INSERT INTO blocks (idx, hash, data) VALUES ($1, $2, $3)`
	SelectMempoolQuery = `SELECT data FROM mempools WHERE id = $1`
	UpsertMempoolQuery = `INSERT INTO mempools (id, data) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`
	SelectUTXOsQuery   = `SELECT id, account, amount, spent, source_tx, source_block FROM utxos ORDER BY seq`
	DeleteUTXOsQuery   = `DELETE FROM utxos`
	InsertUTXOQuery    = `INSERT INTO utxos (seq, id, account, amount, spent, source_tx, source_block) VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// Postgres represents the serialization implementation for reading and
// storing the ledger in PostgreSQL. This implements the database.LedgerStore
// interface.
type Postgres struct {
	db   *sql.DB
	pool *pgxpool.Pool
}

// Open connects to the database with the connection string and makes sure
// the tables exist.
func Open(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	p := New(stdlib.OpenDBFromPool(pool))
	p.pool = pool

	if err := p.Migrate(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return p, nil
}

// New constructs a Postgres value over an existing connection.
func New(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the tables when they don't exist. This is idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range []string{CreateBlocksTable, CreateMempoolsTable, CreateUTXOsTable} {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

// Close releases the connection.
func (p *Postgres) Close() error {
	err := p.db.Close()
	if p.pool != nil {
		p.pool.Close()
	}

	return err
}

// =============================================================================

// LoadChain returns every block in index order.
func (p *Postgres) LoadChain(ctx context.Context) ([]database.Block, error) {
	rows, err := p.db.QueryContext(ctx, SelectBlocksQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []database.Block
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}

		var block database.Block
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, fmt.Errorf("failed to unmarshal block: %w", err)
		}
		blocks = append(blocks, block)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read blocks: %w", err)
	}

	return blocks, nil
}

// AppendBlock inserts the block when it is the next block on record.
func (p *Postgres) AppendBlock(ctx context.Context, block database.Block) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	var count int64
	if err := tx.QueryRowContext(ctx, CountBlocksQuery).Scan(&count); err != nil {
		return fmt.Errorf("failed to count blocks: %w", err)
	}

	next := uint64(count)

	if block.Index < next {
		var hash string
		if err := tx.QueryRowContext(ctx, SelectHashQuery, int64(block.Index)).Scan(&hash); err == nil && hash == block.Hash {
			return nil
		}
	}

	if block.Index != next {
		return fmt.Errorf("%w: got %d, exp %d", database.ErrBlockOrder, block.Index, next)
	}

	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("failed to marshal block: %w", err)
	}

	if _, err := tx.ExecContext(ctx, InsertBlockQuery, int64(block.Index), block.Hash, string(data)); err != nil {
		return fmt.Errorf("failed to insert block: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit block: %w", err)
	}

	return nil
}

// LoadMempool returns the transactions saved for the mempool id. An unknown
// id returns an empty mempool.
func (p *Postgres) LoadMempool(ctx context.Context, id string) ([]database.Transaction, error) {
	var data []byte
	if err := p.db.QueryRowContext(ctx, SelectMempoolQuery, id).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query mempool: %w", err)
	}

	var trans []database.Transaction
	if err := json.Unmarshal(data, &trans); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mempool: %w", err)
	}

	return trans, nil
}

// SaveMempool replaces the transactions saved for the mempool id.
func (p *Postgres) SaveMempool(ctx context.Context, id string, trans []database.Transaction) error {
	if trans == nil {
		trans = []database.Transaction{}
	}

	data, err := json.Marshal(trans)
	if err != nil {
		return fmt.Errorf("failed to marshal mempool: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, UpsertMempoolQuery, id, string(data)); err != nil {
		return fmt.Errorf("failed to save mempool: %w", err)
	}

	return nil
}

// LoadUTXOs returns the saved utxo set in the order it was saved.
func (p *Postgres) LoadUTXOs(ctx context.Context) ([]database.UTXO, error) {
	rows, err := p.db.QueryContext(ctx, SelectUTXOsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query utxos: %w", err)
	}
	defer rows.Close()

	var utxos []database.UTXO
	for rows.Next() {
		var u database.UTXO
		var amount string
		if err := rows.Scan(&u.ID, &u.AccountID, &amount, &u.Spent, &u.SourceTxID, &u.SourceBlockHash); err != nil {
			return nil, fmt.Errorf("failed to scan utxo: %w", err)
		}

		if u.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse utxo %s amount: %w", u.ID, err)
		}

		utxos = append(utxos, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read utxos: %w", err)
	}

	return utxos, nil
}

// SaveUTXOs replaces the saved utxo set inside a single transaction.
func (p *Postgres) SaveUTXOs(ctx context.Context, utxos []database.UTXO) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, DeleteUTXOsQuery); err != nil {
		return fmt.Errorf("failed to delete utxos: %w", err)
	}

	for i, u := range utxos {
		amount := strconv.FormatUint(u.Amount, 10)
		if _, err := tx.ExecContext(ctx, InsertUTXOQuery, int64(i), u.ID, string(u.AccountID), amount, u.Spent, u.SourceTxID, u.SourceBlockHash); err != nil {
			return fmt.Errorf("failed to insert utxo %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit utxos: %w", err)
	}

	return nil
}
