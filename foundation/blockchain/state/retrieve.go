package state

import (
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
)

// MiningStats represents the counters kept for mining attempts.
type MiningStats struct {
	Attempts     uint64        `json:"attempts"`
	BlocksMined  uint64        `json:"blocks_mined"`
	Failures     uint64        `json:"failures"`
	Exhausted    uint64        `json:"budget_exhausted"`
	LastDuration time.Duration `json:"last_duration"`
	Difficulty   uint          `json:"difficulty"`
	Height       uint64        `json:"height"`
	MempoolCount int           `json:"mempool_count"`
	Halted       bool          `json:"halted"`
}

// =============================================================================

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveGenesisBlock returns the first block of the chain.
func (s *State) RetrieveGenesisBlock() database.Block {
	return s.genesisBlock
}

// RetrieveBeneficiary returns the account that receives the mining reward.
func (s *State) RetrieveBeneficiary() database.AccountID {
	return s.beneficiaryID
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain[len(s.chain)-1]
}

// RetrieveChain returns a copy of the full chain.
func (s *State) RetrieveChain() []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cpy := make([]database.Block, len(s.chain))
	copy(cpy, s.chain)

	return cpy
}

// RetrieveMempool returns a copy of the mempool in arrival order.
func (s *State) RetrieveMempool() []database.Transaction {
	return s.mempool.Copy()
}

// RetrieveDifficulty returns the difficulty the next block will be mined at.
func (s *State) RetrieveDifficulty() uint {
	return s.pow.Difficulty()
}

// RetrieveMiningStats returns a copy of the mining counters.
func (s *State) RetrieveMiningStats() MiningStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.Difficulty = s.pow.Difficulty()
	stats.Height = s.chain[len(s.chain)-1].Index
	stats.MempoolCount = s.mempool.Count()
	stats.Halted = s.halted != nil

	return stats
}

// IsHalted reports if mining has been halted because of corruption.
func (s *State) IsHalted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.halted != nil
}

// =============================================================================

func (s *State) recordAttempts(attempts uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Attempts += attempts
	if IsBudgetExhausted(err) {
		s.stats.Exhausted++
	}
}

func (s *State) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Failures++
}

// recordBlock must be called with the lock held.
func (s *State) recordBlock(elapsed time.Duration) {
	s.stats.BlocksMined++
	s.stats.LastDuration = elapsed
}
