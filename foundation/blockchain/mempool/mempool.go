// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool/selector"
)

// Config represents the settings fixed when the mempool is constructed.
type Config struct {
	MaxSize        int
	MiningReward   uint64
	ConsensusType  string
	Difficulty     uint
	SelectStrategy string
}

// Stats represents a summary of what is waiting in the mempool.
type Stats struct {
	Count         int    `json:"count"`
	MaxSize       int    `json:"max_size"`
	Available     int    `json:"available"`
	TotalAmount   uint64 `json:"total_amount"`
	Senders       int    `json:"senders"`
	OldestTime    int64  `json:"oldest_timestamp,omitempty"`
	MiningReward  uint64 `json:"mining_reward"`
	ConsensusType string `json:"consensus_type"`
	Difficulty    uint   `json:"difficulty"`
	Strategy      string `json:"strategy"`
}

// Mempool represents a bounded cache of transactions kept in the order
// they arrived with a second index on the transaction id.
type Mempool struct {
	cfg      Config
	mu       sync.RWMutex
	pool     []database.Transaction
	ids      map[string]struct{}
	selectFn selector.Func
}

// New constructs a new mempool with the specified settings. The fifo
// strategy is used when no strategy is provided.
func New(cfg Config) (*Mempool, error) {
	if cfg.MaxSize < 1 {
		return nil, database.NewValidationError("max_size", fmt.Errorf("mempool max size must be at least 1, got %d", cfg.MaxSize))
	}

	if cfg.SelectStrategy == "" {
		cfg.SelectStrategy = selector.StrategyFIFO
	}

	selectFn, err := selector.Retrieve(cfg.SelectStrategy)
	if err != nil {
		return nil, database.NewValidationError("select_strategy", err)
	}

	mp := Mempool{
		cfg:      cfg,
		pool:     make([]database.Transaction, 0, cfg.MaxSize),
		ids:      make(map[string]struct{}, cfg.MaxSize),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Config returns the settings the mempool was constructed with.
func (mp *Mempool) Config() Config {
	return mp.cfg
}

// MaxSize returns the capacity of the pool.
func (mp *Mempool) MaxSize() int {
	return mp.cfg.MaxSize
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add appends the transaction to the end of the pool. False is returned
// and nothing changes when the pool is full or the id is already pooled.
func (mp *Mempool) Add(tx database.Transaction) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if len(mp.pool) >= mp.cfg.MaxSize {
		return false
	}

	if _, exists := mp.ids[tx.ID]; exists {
		return false
	}

	mp.pool = append(mp.pool, tx)
	mp.ids[tx.ID] = struct{}{}

	return true
}

// Remove deletes the first transaction with the specified id. False is
// returned when the id is not in the pool.
func (mp *Mempool) Remove(id string) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for i, tx := range mp.pool {
		if tx.ID == id {
			mp.pool = append(mp.pool[:i], mp.pool[i+1:]...)
			delete(mp.ids, id)
			return true
		}
	}

	return false
}

// Clear removes all the transactions from the pool.
func (mp *Mempool) Clear() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make([]database.Transaction, 0, mp.cfg.MaxSize)
	mp.ids = make(map[string]struct{}, mp.cfg.MaxSize)
}

// Contains reports if a transaction with the id is in the pool.
func (mp *Mempool) Contains(id string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.ids[id]
	return exists
}

// Get returns the pooled transaction with the specified id.
func (mp *Mempool) Get(id string) (database.Transaction, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if _, exists := mp.ids[id]; !exists {
		return database.Transaction{}, false
	}

	for _, tx := range mp.pool {
		if tx.ID == id {
			return tx, true
		}
	}

	return database.Transaction{}, false
}

// Copy returns a copy of the pool in the order the transactions arrived.
func (mp *Mempool) Copy() []database.Transaction {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.Transaction, len(mp.pool))
	copy(cpy, mp.pool)

	return cpy
}

// Outflow returns the total amount the account is sending in transactions
// that are still waiting in the pool.
func (mp *Mempool) Outflow(accountID database.AccountID) uint64 {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	var total uint64
	for _, tx := range mp.pool {
		if tx.From == accountID {
			total += tx.Amount
		}
	}

	return total
}

// PickBest uses the configured select strategy to return the next set
// of transactions for the next block. Receiving -1 returns them all.
func (mp *Mempool) PickBest(howMany int) []database.Transaction {
	return mp.selectFn(mp.Copy(), howMany)
}

// Stats returns a summary of the pool.
func (mp *Mempool) Stats() Stats {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	stats := Stats{
		Count:         len(mp.pool),
		MaxSize:       mp.cfg.MaxSize,
		Available:     mp.cfg.MaxSize - len(mp.pool),
		MiningReward:  mp.cfg.MiningReward,
		ConsensusType: mp.cfg.ConsensusType,
		Difficulty:    mp.cfg.Difficulty,
		Strategy:      mp.cfg.SelectStrategy,
	}

	senders := make(map[database.AccountID]struct{})
	for _, tx := range mp.pool {
		stats.TotalAmount += tx.Amount
		senders[tx.From] = struct{}{}
	}
	stats.Senders = len(senders)

	if len(mp.pool) > 0 {
		stats.OldestTime = mp.pool[0].TimeStamp
	}

	return stats
}
