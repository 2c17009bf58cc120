// Package memory implements the ability to read and write the ledger to
// memory using slices.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Memory represents the serialization implementation for reading and storing
// the ledger in memory. This implements the database.LedgerStore interface.
type Memory struct {
	mu       sync.RWMutex
	blocks   []database.Block
	mempools map[string][]database.Transaction
	utxos    []database.UTXO
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	m := Memory{
		mempools: make(map[string][]database.Transaction),
	}

	return &m, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// LoadChain returns a copy of every block in order.
func (m *Memory) LoadChain(ctx context.Context) ([]database.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]database.Block, len(m.blocks))
	copy(blocks, m.blocks)

	return blocks, nil
}

// AppendBlock takes the specified block and stores it in memory. Writing
// the latest block again is accepted so a retried write is harmless.
func (m *Memory) AppendBlock(ctx context.Context, block database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := uint64(len(m.blocks))

	if block.Index < l && m.blocks[block.Index].Hash == block.Hash {
		return nil
	}

	if block.Index != l {
		return fmt.Errorf("%w: got %d, exp %d", database.ErrBlockOrder, block.Index, l)
	}

	m.blocks = append(m.blocks, block)

	return nil
}

// LoadMempool returns the transactions saved for the mempool id. An
// unknown id returns an empty mempool.
func (m *Memory) LoadMempool(ctx context.Context, id string) ([]database.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	trans := make([]database.Transaction, len(m.mempools[id]))
	copy(trans, m.mempools[id])

	return trans, nil
}

// SaveMempool replaces the transactions saved for the mempool id.
func (m *Memory) SaveMempool(ctx context.Context, id string, trans []database.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cpy := make([]database.Transaction, len(trans))
	copy(cpy, trans)
	m.mempools[id] = cpy

	return nil
}

// LoadUTXOs returns the saved utxo set in creation order.
func (m *Memory) LoadUTXOs(ctx context.Context) ([]database.UTXO, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	utxos := make([]database.UTXO, len(m.utxos))
	copy(utxos, m.utxos)

	return utxos, nil
}

// SaveUTXOs replaces the saved utxo set.
func (m *Memory) SaveUTXOs(ctx context.Context, utxos []database.UTXO) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.utxos = make([]database.UTXO, len(utxos))
	copy(m.utxos, utxos)

	return nil
}
