package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/state"
)

// miningOperations waits for a start signal or the mining interval and runs
// one mining round per trigger.
func (w *Worker) miningOperations() {
	w.evHandler("worker: mining: G started")
	defer w.evHandler("worker: mining: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}

		case <-w.miningTicker.C:
			if !w.isShutdown() && w.state.QueryMempoolLength() > 0 {
				w.SignalStartMining()
			}

		case <-w.shut:
			w.evHandler("worker: mining: shut signal received")
			return
		}
	}
}

// runMiningOperation mines a single block from the current mempool. A
// cancel request aborts the round, and the round won't return until the
// requester says its mempool change is complete.
func (w *Worker) runMiningOperation() {
	if w.state.IsHalted() {
		w.evHandler("worker: mining: skipped: ledger is halted")
		return
	}

	pending := w.state.QueryMempoolLength()
	if pending == 0 {
		w.evHandler("worker: mining: skipped: mempool is empty")
		return
	}

	w.evHandler("worker: mining: round started: pending[%d]", pending)
	defer w.evHandler("worker: mining: round completed")

	// Transactions left behind by this round get their own round. A round
	// that ran out of budget is left to the mining ticker so a difficulty
	// that can't be met doesn't spin this G.
	var exhausted bool
	defer func() {
		if exhausted {
			w.evHandler("worker: mining: budget exhausted: retry on next interval")
			return
		}

		if pending := w.state.QueryMempoolLength(); pending > 0 && !w.isShutdown() {
			w.evHandler("worker: mining: resignal: pending[%d]", pending)
			w.SignalStartMining()
		}
	}()

	// A cancel request queued before this round started is already
	// reflected in the mempool being mined.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: mining: stale cancel request drained")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		wg   sync.WaitGroup
		hold chan struct{}
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		hold = w.watchCancel(ctx)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		exhausted = state.IsBudgetExhausted(w.mineBlock(ctx))
	}()

	wg.Wait()

	if hold != nil {
		w.evHandler("worker: mining: holding for mempool change")
		<-hold
		w.evHandler("worker: mining: mempool change complete")
	}
}

// watchCancel blocks until a cancel request arrives or the round ends. It
// returns the channel of the request so the round can be held open.
func (w *Worker) watchCancel(ctx context.Context) chan struct{} {
	select {
	case hold := <-w.cancelMining:
		w.evHandler("worker: mining: cancel requested")
		return hold

	case <-ctx.Done():
		return nil
	}
}

// mineBlock asks the state to mine and reports the outcome.
func (w *Worker) mineBlock(ctx context.Context) error {
	start := time.Now()
	block, err := w.state.MineNextBlock(ctx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		w.evHandler("worker: mining: blk[%d]: hash[%s]: trans[%d]: duration[%v]", block.Index, block.Hash, len(block.Transactions), elapsed)

	case errors.Is(err, state.ErrNoTransactions):
		w.evHandler("worker: mining: WARNING: mempool drained before mining")

	case state.IsBudgetExhausted(err):
		w.evHandler("worker: mining: WARNING: %s: duration[%v]", err, elapsed)

	case ctx.Err() != nil:
		w.evHandler("worker: mining: cancelled: duration[%v]", elapsed)

	default:
		w.evHandler("worker: mining: ERROR: %s", err)
	}

	return err
}

// =============================================================================

// verifyOperations re-validates the chain on an interval. A failure halts
// mining inside the state package.
func (w *Worker) verifyOperations() {
	w.evHandler("worker: verify: G started")
	defer w.evHandler("worker: verify: G completed")

	ticker := time.NewTicker(w.verifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if w.isShutdown() {
				continue
			}
			if err := w.state.VerifyChain(context.Background()); err != nil {
				w.evHandler("worker: verify: ERROR: %s", err)
			}

		case <-w.shut:
			w.evHandler("worker: verify: shut signal received")
			return
		}
	}
}
