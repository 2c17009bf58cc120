package state

import (
	"context"
	"fmt"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/utxo"
)

// SubmitTransaction accepts a transaction from a client for inclusion. The
// sender must be able to fund the amount on top of everything it already
// has waiting in the mempool.
func (s *State) SubmitTransaction(ctx context.Context, nt database.NewTx) (database.Transaction, error) {
	tx, err := database.NewTransaction(nt, time.Now())
	if err != nil {
		return database.Transaction{}, err
	}

	if err := s.addTransaction(ctx, tx); err != nil {
		return database.Transaction{}, err
	}

	s.evHandler("state: SubmitTransaction: tx[%s]: added to mempool[%s]", tx, s.mempoolID)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return tx, nil
}

// EvictTransaction removes a pending transaction from the mempool.
func (s *State) EvictTransaction(ctx context.Context, id string) error {

	// A mining attempt may have already picked this transaction. Stop it so
	// the next attempt works from the updated mempool.
	if s.Worker != nil {
		done := s.Worker.SignalCancelMining()
		defer done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mempool.Contains(id) {
		return fmt.Errorf("tx[%s]: %w", id, database.ErrNotFound)
	}

	// Save the mempool without the transaction before removing it so a
	// failed write leaves the mempool as it was.
	var remaining []database.Transaction
	for _, tx := range s.mempool.Copy() {
		if tx.ID != id {
			remaining = append(remaining, tx)
		}
	}

	if err := s.storage.SaveMempool(ctx, s.mempoolID, remaining); err != nil {
		return fmt.Errorf("saving mempool: %w", err)
	}

	s.mempool.Remove(id)

	s.evHandler("state: EvictTransaction: tx[%s]: removed from mempool[%s]", id, s.mempoolID)

	return nil
}

// ClearMempool removes every pending transaction from the mempool.
func (s *State) ClearMempool(ctx context.Context) error {
	if s.Worker != nil {
		done := s.Worker.SignalCancelMining()
		defer done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.SaveMempool(ctx, s.mempoolID, nil); err != nil {
		return fmt.Errorf("saving mempool: %w", err)
	}

	s.mempool.Clear()

	s.evHandler("state: ClearMempool: mempool[%s] cleared", s.mempoolID)

	return nil
}

// =============================================================================

// addTransaction performs the admission checks and adds the transaction to
// the mempool. The mempool is saved before the call returns and the add is
// rolled back when that fails.
func (s *State) addTransaction(ctx context.Context, tx database.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txIndex[tx.ID]; exists {
		return fmt.Errorf("tx[%s]: on chain: %w", tx.ID, ErrDuplicateTransaction)
	}

	if s.mempool.Contains(tx.ID) {
		return fmt.Errorf("tx[%s]: in mempool: %w", tx.ID, ErrDuplicateTransaction)
	}

	pending := s.mempool.Outflow(tx.From)
	if spendable := s.utxos.Spendable(tx.From, pending); tx.Amount > spendable {
		err := fmt.Errorf("%w: %s can spend %d, pending %d, needs %d", utxo.ErrInsufficientFunds, tx.From, spendable, pending, tx.Amount)
		return database.NewValidationError("amount", err)
	}

	if !s.mempool.Add(tx) {
		return fmt.Errorf("tx[%s]: max size %d: %w", tx.ID, s.mempool.MaxSize(), ErrMempoolFull)
	}

	if err := s.storage.SaveMempool(ctx, s.mempoolID, s.mempool.Copy()); err != nil {
		s.mempool.Remove(tx.ID)
		return fmt.Errorf("saving mempool: %w", err)
	}

	return nil
}
