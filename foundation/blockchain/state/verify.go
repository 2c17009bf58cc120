package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/utxo"
)

// ValidateChain checks the blocks form a chain starting from the expected
// genesis block. Any failure is returned as a CorruptionError for the
// first block that doesn't validate.
func ValidateChain(blocks []database.Block, genesis *database.Block, hasher database.Hasher, evHandler func(v string, args ...any)) error {
	if len(blocks) == 0 {
		return database.NewCorruptionError(0, errors.New("chain has no genesis block"))
	}

	if err := blocks[0].ValidateGenesis(genesis, hasher); err != nil {
		return database.NewCorruptionError(0, err)
	}

	for i := 1; i < len(blocks); i++ {
		if err := blocks[i].ValidateBlock(blocks[i-1], hasher, evHandler); err != nil {
			return database.NewCorruptionError(blocks[i].Index, err)
		}
	}

	return nil
}

// VerifyChain re-validates the chain held in memory and in storage and
// replays the utxo set. Mining is halted when any check fails and stays
// halted until the node is restarted.
func (s *State) VerifyChain(ctx context.Context) error {
	s.evHandler("state: VerifyChain: started")
	defer s.evHandler("state: VerifyChain: completed")

	if err := s.verify(ctx); err != nil {
		s.mu.Lock()
		s.halted = err
		s.mu.Unlock()

		s.evHandler("state: VerifyChain: ERROR: mining halted: %s", err)
		return err
	}

	return nil
}

func (s *State) verify(ctx context.Context) error {

	// The chain and the utxo set must come from the same moment.
	s.mu.RLock()
	chain := make([]database.Block, len(s.chain))
	copy(chain, s.chain)
	current := s.utxos.StateHash()
	s.mu.RUnlock()

	if err := ValidateChain(chain, &s.genesisBlock, s.hasher, nil); err != nil {
		return err
	}

	stored, err := s.storage.LoadChain(ctx)
	if err != nil {
		return fmt.Errorf("loading chain: %w", err)
	}

	if len(stored) < len(chain) {
		return database.NewCorruptionError(uint64(len(stored)), fmt.Errorf("storage holds %d blocks, memory holds %d", len(stored), len(chain)))
	}

	for i, block := range chain {
		if stored[i].Hash != block.Hash {
			return database.NewCorruptionError(block.Index, fmt.Errorf("stored hash %s doesn't match %s", stored[i].Hash, block.Hash))
		}
	}

	if err := ValidateChain(stored, &s.genesisBlock, s.hasher, nil); err != nil {
		return err
	}

	replayed, err := utxo.Replay(chain)
	if err != nil {
		return err
	}

	if replayed.StateHash() != current {
		latest := chain[len(chain)-1].Index
		return database.NewCorruptionError(latest, errors.New("utxo set doesn't match a replay of the chain"))
	}

	return nil
}
