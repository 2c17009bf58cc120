package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Phase represents a step in a mining attempt.
type Phase string

// Set of phases a mining attempt moves through.
const (
	PhaseCollecting Phase = "COLLECTING"
	PhaseHashing    Phase = "HASHING"
	PhaseValid      Phase = "VALID"
	PhaseInvalid    Phase = "INVALID"
	PhaseAppended   Phase = "APPENDED"
)

// invalidLogInterval limits how often failed hash attempts are logged.
const invalidLogInterval = 1_000_000

// =============================================================================

// MineNextBlock attempts to create a new block with a proper hash that can
// become the next block in the chain. Only one attempt runs at a time.
func (s *State) MineNextBlock(ctx context.Context) (database.Block, error) {
	s.miningMu.Lock()
	defer s.miningMu.Unlock()

	if err := s.haltedErr(); err != nil {
		return database.Block{}, err
	}

	start := time.Now()

	s.evHandler("state: MineNextBlock: MINING: %s: pick transactions from mempool", PhaseCollecting)

	candidate, err := s.collect(start)
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNextBlock: MINING: %s: blk[%d]: trans[%d]: difficulty[%d]", PhaseHashing, candidate.Index, len(candidate.Transactions), candidate.Difficulty)

	block, attempts, err := s.solve(ctx, candidate)
	s.recordAttempts(attempts, err)
	if err != nil {
		return database.Block{}, err
	}

	elapsed := time.Since(start)
	block.MiningTime = elapsed

	s.evHandler("state: MineNextBlock: MINING: %s: blk[%d]: hash[%s]: attempts[%d]: duration[%v]", PhaseValid, block.Index, block.Hash, attempts, elapsed)

	// The block is final from here. Cancelling the caller's context must not
	// abandon the write part way through.
	ctx = context.WithoutCancel(ctx)

	if err := s.persistBlock(ctx, block); err != nil {
		s.recordFailure()
		return database.Block{}, err
	}

	if err := s.commit(ctx, block); err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNextBlock: MINING: %s: blk[%d]: hash[%s]: difficulty[%d]", PhaseAppended, block.Index, block.Hash, s.pow.Difficulty())

	return block, nil
}

// =============================================================================

// collect builds the candidate block from the mempool. Transactions that can
// no longer be funded are evicted from the mempool.
func (s *State) collect(start time.Time) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	parent := s.chain[len(s.chain)-1]
	index := parent.Index + 1

	// The timestamp is fixed for the whole attempt and can't go back in time.
	timeStamp := start.UTC()
	if parentTime := time.UnixMilli(parent.TimeStamp).UTC(); timeStamp.Before(parentTime) {
		timeStamp = parentTime
	}

	coinbase := database.NewCoinbaseTx(index, s.beneficiaryID, s.mempool.Config().MiningReward, timeStamp.UnixMilli())

	scratch := s.utxos.Clone()
	if err := scratch.ApplyTransaction(coinbase, ""); err != nil {
		return database.Block{}, fmt.Errorf("applying reward: %w", err)
	}

	trans := []database.Transaction{coinbase}
	for _, tx := range s.mempool.PickBest(int(s.genesis.TransPerBlock)) {
		if err := scratch.ApplyTransaction(tx, ""); err != nil {
			s.evHandler("state: MineNextBlock: MINING: %s: evict tx[%s]: %s", PhaseCollecting, tx.ID, err)
			s.mempool.Remove(tx.ID)
			continue
		}
		trans = append(trans, tx)
	}

	if len(trans) == 1 {
		return database.Block{}, ErrNoTransactions
	}

	candidate := database.NewCandidate(parent, trans, timeStamp, s.pow.Difficulty(), s.beneficiaryID)

	return candidate, nil
}

// solve performs the hash search for the candidate. The nonce starts at zero
// and moves up by one on every failed attempt. The context and the mining
// budget are checked between attempts.
func (s *State) solve(ctx context.Context, block database.Block) (database.Block, uint64, error) {
	budgetCtx := ctx
	if s.budget.Timeout > 0 {
		var cancel context.CancelFunc
		budgetCtx, cancel = context.WithTimeout(ctx, s.budget.Timeout)
		defer cancel()
	}

	var attempts uint64
	for nonce := uint64(0); ; nonce++ {

		// Did we timeout trying to solve the problem.
		if err := ctx.Err(); err != nil {
			s.evHandler("state: MineNextBlock: MINING: %s: CANCELLED: attempts[%d]", PhaseHashing, attempts)
			return database.Block{}, attempts, err
		}

		if budgetCtx.Err() != nil {
			return database.Block{}, attempts, fmt.Errorf("%w: timeout %v: attempts[%d]", ErrMiningBudget, s.budget.Timeout, attempts)
		}

		if s.budget.MaxAttempts > 0 && attempts >= s.budget.MaxAttempts {
			return database.Block{}, attempts, fmt.Errorf("%w: attempts[%d]", ErrMiningBudget, attempts)
		}

		attempts++

		block.Nonce = nonce
		hash := s.hasher(block)

		if s.pow.Validate(hash) {
			block.Hash = hash
			return block, attempts, nil
		}

		if attempts == 1 || attempts%invalidLogInterval == 0 {
			s.evHandler("state: MineNextBlock: MINING: %s: blk[%d]: nonce[%d]: hash[%s]", PhaseInvalid, block.Index, nonce, hash)
		}
	}
}

// commit applies the persisted block to the in memory state. Readers either
// see the chain before the block or the chain with all its effects.
func (s *State) commit(ctx context.Context, block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := s.chain[len(s.chain)-1]
	if err := block.ValidateBlock(parent, s.hasher, nil); err != nil {
		s.halted = database.NewCorruptionError(block.Index, err)
		return s.halted
	}

	utxos := s.utxos.Clone()
	if err := utxos.ApplyBlock(block); err != nil {
		s.halted = database.NewCorruptionError(block.Index, err)
		return s.halted
	}

	s.chain = append(s.chain, block)
	s.utxos = utxos

	for _, tx := range block.Transactions {
		s.txIndex[tx.ID] = block.Index
	}

	for _, tx := range block.UserTrans() {
		s.mempool.Remove(tx.ID)
	}

	difficulty := s.pow.AdjustDifficulty(block.MiningTime)
	s.recordBlock(block.MiningTime)

	s.evHandler("state: MineNextBlock: MINING: adjust difficulty: duration[%v]: difficulty[%d]", block.MiningTime, difficulty)

	// The chain is the source of truth. These snapshots only speed up a
	// restart so a failure is logged and not returned.
	if err := s.storage.SaveUTXOs(ctx, s.utxos.Snapshot()); err != nil {
		s.evHandler("state: MineNextBlock: WARNING: saving utxos: %s", err)
	}

	if err := s.storage.SaveMempool(ctx, s.mempoolID, s.mempool.Copy()); err != nil {
		s.evHandler("state: MineNextBlock: WARNING: saving mempool: %s", err)
	}

	return nil
}

// haltedErr returns the reason mining is halted, if it is.
func (s *State) haltedErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.halted != nil {
		return fmt.Errorf("%w: %w", ErrHalted, s.halted)
	}

	return nil
}

// =============================================================================

// persistBlock writes the block to storage, retrying with a backoff. The
// block is only added to the chain once this succeeds.
func (s *State) persistBlock(ctx context.Context, block database.Block) error {
	var err error
	for attempt := 0; attempt <= s.storeRetries; attempt++ {
		if attempt > 0 {
			s.evHandler("state: persistBlock: blk[%d]: retry[%d]: %s", block.Index, attempt, err)

			select {
			case <-time.After(s.storeBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return fmt.Errorf("persisting block %d: %w", block.Index, ctx.Err())
			}
		}

		if err = s.storage.AppendBlock(ctx, block); err == nil {
			return nil
		}
	}

	s.evHandler("state: persistBlock: blk[%d]: ERROR: discarding block: %s", block.Index, err)

	return fmt.Errorf("persisting block %d: %w", block.Index, err)
}

// =============================================================================

// IsBudgetExhausted reports if the error is from a mining attempt running
// out of its budget.
func IsBudgetExhausted(err error) bool {
	return errors.Is(err, ErrMiningBudget)
}
