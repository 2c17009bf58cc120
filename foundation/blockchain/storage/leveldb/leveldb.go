// Package leveldb implements the ability to read and write the ledger to a
// LevelDB database.
package leveldb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Database keys prefixes for better organization.
const (
	blockIndexKeyPrefix = "blockindex_" // Prefix for accessing blocks by index
	blockHashKeyPrefix  = "blockhash_"  // Prefix for accessing block index by hash
	blockHeightKey      = "height"      // Key for the current blockchain height
	mempoolKeyPrefix    = "mempool_"    // Prefix for saved mempools
	utxoKey             = "utxos"       // Key for the saved utxo set
)

// LevelDB represents the serialization implementation for reading and storing
// the ledger in LevelDB. This implements the database.LedgerStore interface.
type LevelDB struct {
	db        *leveldb.DB
	wo        *opt.WriteOptions
	batchLock sync.Mutex
}

// New opens or creates the database at the specified path.
func New(dbPath string) (*LevelDB, error) {
	options := opt.Options{
		BlockCacheCapacity: 8 * opt.MiB,
		WriteBuffer:        4 * opt.MiB,
	}

	db, err := leveldb.OpenFile(dbPath, &options)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	// Every write is synced. AppendBlock returning nil is what tells the
	// ledger a block is durable.
	l := LevelDB{
		db: db,
		wo: &opt.WriteOptions{Sync: true},
	}

	return &l, nil
}

// Close closes the database connection.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// =============================================================================

// LoadChain retrieves every block from index 0 to the height.
func (l *LevelDB) LoadChain(ctx context.Context) ([]database.Block, error) {
	height, exists, err := l.height()
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, nil
	}

	blocks := make([]database.Block, 0, height+1)
	for i := uint64(0); i <= height; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		block, err := l.blockByIndex(i)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// AppendBlock stores the block by index, its hash and the new height in a
// single batch.
func (l *LevelDB) AppendBlock(ctx context.Context, block database.Block) error {
	l.batchLock.Lock()
	defer l.batchLock.Unlock()

	height, exists, err := l.height()
	if err != nil {
		return err
	}

	next := uint64(0)
	if exists {
		next = height + 1
	}

	if block.Index < next {
		existing, err := l.blockByIndex(block.Index)
		if err == nil && existing.Hash == block.Hash {
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

	index := strconv.FormatUint(block.Index, 10)

	batch := new(leveldb.Batch)
	batch.Put([]byte(blockIndexKeyPrefix+index), data)
	batch.Put([]byte(blockHashKeyPrefix+block.Hash), []byte(index))
	batch.Put([]byte(blockHeightKey), []byte(index))

	if err := l.db.Write(batch, l.wo); err != nil {
		return fmt.Errorf("failed to save block to database: %w", err)
	}

	return nil
}

// BlockByHash retrieves a block by its hash.
func (l *LevelDB) BlockByHash(ctx context.Context, hash string) (database.Block, error) {
	data, err := l.db.Get([]byte(blockHashKeyPrefix+hash), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.Block{}, fmt.Errorf("block %s: %w", hash, database.ErrNotFound)
		}
		return database.Block{}, fmt.Errorf("failed to retrieve block: %w", err)
	}

	index, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return database.Block{}, fmt.Errorf("failed to parse block index: %w", err)
	}

	return l.blockByIndex(index)
}

// LoadMempool retrieves the transactions saved for the mempool id. An
// unknown id returns an empty mempool.
func (l *LevelDB) LoadMempool(ctx context.Context, id string) ([]database.Transaction, error) {
	var trans []database.Transaction
	if err := l.get(mempoolKeyPrefix+id, &trans); err != nil {
		return nil, err
	}

	return trans, nil
}

// SaveMempool replaces the transactions saved for the mempool id.
func (l *LevelDB) SaveMempool(ctx context.Context, id string, trans []database.Transaction) error {
	return l.put(mempoolKeyPrefix+id, trans)
}

// LoadUTXOs retrieves the saved utxo set.
func (l *LevelDB) LoadUTXOs(ctx context.Context) ([]database.UTXO, error) {
	var utxos []database.UTXO
	if err := l.get(utxoKey, &utxos); err != nil {
		return nil, err
	}

	return utxos, nil
}

// SaveUTXOs replaces the saved utxo set.
func (l *LevelDB) SaveUTXOs(ctx context.Context, utxos []database.UTXO) error {
	return l.put(utxoKey, utxos)
}

// =============================================================================

// height returns the index of the latest block and whether any block exists.
func (l *LevelDB) height() (uint64, bool, error) {
	data, err := l.db.Get([]byte(blockHeightKey), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to retrieve blockchain height: %w", err)
	}

	height, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse blockchain height: %w", err)
	}

	return height, true, nil
}

func (l *LevelDB) blockByIndex(index uint64) (database.Block, error) {
	data, err := l.db.Get([]byte(blockIndexKeyPrefix+strconv.FormatUint(index, 10)), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.Block{}, fmt.Errorf("block %d: %w", index, database.ErrNotFound)
		}
		return database.Block{}, fmt.Errorf("failed to retrieve block: %w", err)
	}

	var block database.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return database.Block{}, fmt.Errorf("failed to unmarshal block: %w", err)
	}

	return block, nil
}

// get decodes the value stored at the key. A missing key leaves the
// value untouched.
func (l *LevelDB) get(key string, v any) error {
	data, err := l.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to retrieve %s: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return nil
}

func (l *LevelDB) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := l.db.Put([]byte(key), data, l.wo); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	return nil
}
