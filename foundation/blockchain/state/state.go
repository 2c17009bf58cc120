// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
	"github.com/ardanlabs/powledger/foundation/blockchain/utxo"
)

// DefaultMempoolID is the mempool id used when none is configured.
const DefaultMempoolID = "default"

// Set of error variables for the state API.
var (
	ErrNoTransactions       = errors.New("no transactions in mempool")
	ErrMempoolFull          = errors.New("mempool is full")
	ErrDuplicateTransaction = errors.New("transaction already exists")
	ErrHalted               = errors.New("mining is halted")
	ErrMiningBudget         = errors.New("mining budget exhausted")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
}

// MiningBudget bounds a single mining attempt. A zero value means there
// is no bound for that dimension.
type MiningBudget struct {
	MaxAttempts uint64
	Timeout     time.Duration
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	BeneficiaryID  database.AccountID
	Genesis        genesis.Genesis
	Storage        database.LedgerStore
	MempoolID      string
	SelectStrategy string
	Budget         MiningBudget
	StoreRetries   int
	StoreBackoff   time.Duration
	Hasher         database.Hasher
	EvHandler      EventHandler
}

// State manages the blockchain database.
type State struct {
	beneficiaryID database.AccountID
	mempoolID     string
	budget        MiningBudget
	storeRetries  int
	storeBackoff  time.Duration
	hasher        database.Hasher
	evHandler     EventHandler

	genesis      genesis.Genesis
	genesisBlock database.Block
	storage      database.LedgerStore

	miningMu sync.Mutex

	mu      sync.RWMutex
	chain   []database.Block
	txIndex map[string]uint64
	utxos   *utxo.Set
	mempool *mempool.Mempool
	pow     *pow.ProofOfWork
	halted  error
	stats   MiningStats

	Worker Worker
}

// New constructs a new blockchain for data management. The chain is loaded
// from storage and validated. A chain that fails validation is not trusted
// and the state will not start.
func New(ctx context.Context, cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Storage == nil {
		return nil, database.NewValidationError("storage", errors.New("a ledger store is required"))
	}

	beneficiaryID, err := database.ToAccountID(string(cfg.BeneficiaryID))
	if err != nil {
		return nil, database.NewValidationError("beneficiary", fmt.Errorf("%q: %w", cfg.BeneficiaryID, err))
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	if cfg.MempoolID == "" {
		cfg.MempoolID = DefaultMempoolID
	}

	if cfg.StoreRetries < 0 {
		cfg.StoreRetries = 0
	}

	if cfg.Hasher == nil {
		cfg.Hasher = database.HashBlock
	}

	genesisBlock, err := cfg.Genesis.Block(cfg.Hasher)
	if err != nil {
		return nil, err
	}

	// Construct the proof of work with the genesis bounds.
	proofOfWork, err := pow.New(cfg.Genesis.PowConfig())
	if err != nil {
		return nil, database.NewValidationError("difficulty", err)
	}

	// Construct a mempool with the specified select strategy.
	mp, err := mempool.New(mempool.Config{
		MaxSize:        cfg.Genesis.MempoolMaxSize,
		MiningReward:   cfg.Genesis.MiningReward,
		ConsensusType:  cfg.Genesis.ConsensusType,
		Difficulty:     cfg.Genesis.Difficulty,
		SelectStrategy: cfg.SelectStrategy,
	})
	if err != nil {
		return nil, err
	}

	state := State{
		beneficiaryID: beneficiaryID,
		mempoolID:     cfg.MempoolID,
		budget:        cfg.Budget,
		storeRetries:  cfg.StoreRetries,
		storeBackoff:  cfg.StoreBackoff,
		hasher:        cfg.Hasher,
		evHandler:     ev,

		genesis:      cfg.Genesis,
		genesisBlock: genesisBlock,
		storage:      cfg.Storage,

		txIndex: make(map[string]uint64),
		mempool: mp,
		pow:     proofOfWork,
	}

	if err := state.load(ctx); err != nil {
		return nil, err
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Make sure the storage is properly closed.
	return s.storage.Close()
}

// =============================================================================

// load reads the chain, the utxo set and the mempool from storage.
func (s *State) load(ctx context.Context) error {
	blocks, err := s.storage.LoadChain(ctx)
	if err != nil {
		return fmt.Errorf("loading chain: %w", err)
	}

	// A new ledger starts by writing the genesis block.
	if len(blocks) == 0 {
		s.evHandler("state: load: writing genesis block[%s]", s.genesisBlock.Hash)

		if err := s.persistBlock(ctx, s.genesisBlock); err != nil {
			return err
		}
		blocks = []database.Block{s.genesisBlock}
	}

	s.evHandler("state: load: validating blocks[%d]", len(blocks))

	if err := ValidateChain(blocks, &s.genesisBlock, s.hasher, s.evHandler); err != nil {
		return err
	}

	// The utxo set is always derived from the chain. A saved set that
	// doesn't match the replay is replaced.
	utxos, err := utxo.Replay(blocks)
	if err != nil {
		return err
	}

	stored, err := s.storage.LoadUTXOs(ctx)
	if err != nil {
		return fmt.Errorf("loading utxos: %w", err)
	}

	if saved, err := utxo.Load(stored); err != nil || saved.StateHash() != utxos.StateHash() {
		s.evHandler("state: load: utxo set doesn't match the chain, saving replayed set: stored[%d] replayed[%d]", len(stored), utxos.Count())

		if err := s.storage.SaveUTXOs(ctx, utxos.Snapshot()); err != nil {
			s.evHandler("state: load: WARNING: saving utxos: %s", err)
		}
	}

	s.chain = blocks
	s.utxos = utxos
	for _, block := range blocks {
		for _, tx := range block.Transactions {
			s.txIndex[tx.ID] = block.Index
		}
	}

	// The next difficulty is the latest block's difficulty adjusted by how
	// long that block took to mine, the same step commit takes.
	if latest := blocks[len(blocks)-1]; latest.Index > 0 {
		s.pow.Reset(latest.Difficulty)
		d := s.pow.AdjustDifficulty(latest.MiningTime)
		s.evHandler("state: load: difficulty restored: blk[%d]: mined[%d]: next[%d]", latest.Index, latest.Difficulty, d)
	}

	return s.loadMempool(ctx)
}

// loadMempool restores the pending transactions saved for the mempool id.
// Transactions already on the chain or that can no longer be funded are
// dropped.
func (s *State) loadMempool(ctx context.Context) error {
	trans, err := s.storage.LoadMempool(ctx, s.mempoolID)
	if err != nil {
		return fmt.Errorf("loading mempool %q: %w", s.mempoolID, err)
	}

	var dropped int
	for _, tx := range trans {
		if _, exists := s.txIndex[tx.ID]; exists || tx.IsCoinbase() {
			dropped++
			continue
		}

		if tx.Amount > s.utxos.Spendable(tx.From, s.mempool.Outflow(tx.From)) {
			dropped++
			continue
		}

		if !s.mempool.Add(tx) {
			dropped++
		}
	}

	s.evHandler("state: load: mempool[%s] restored[%d] dropped[%d]", s.mempoolID, s.mempool.Count(), dropped)

	return nil
}
