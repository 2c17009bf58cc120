// Package worker implements mining for the blockchain on a dedicated
// goroutine.
package worker

import (
	"sync"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/state"
)

// DefaultMiningInterval is how often the worker checks for pending
// transactions nobody signaled.
const DefaultMiningInterval = 30 * time.Second

// =============================================================================

// Config represents the settings for the worker.
type Config struct {
	MiningInterval time.Duration
	VerifyInterval time.Duration
}

// Worker drives block mining for a single ledger.
type Worker struct {
	state          *state.State
	wg             sync.WaitGroup
	miningTicker   *time.Ticker
	verifyInterval time.Duration
	shut           chan struct{}
	startMining    chan bool
	cancelMining   chan chan struct{}
	evHandler      state.EventHandler
}

// Run constructs a worker, registers it as the state's mining signaler and
// starts the operation goroutines. Verification only runs with a positive
// VerifyInterval.
func Run(st *state.State, cfg Config, evHandler state.EventHandler) *Worker {
	if cfg.MiningInterval <= 0 {
		cfg.MiningInterval = DefaultMiningInterval
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	w := Worker{
		state:          st,
		miningTicker:   time.NewTicker(cfg.MiningInterval),
		verifyInterval: cfg.VerifyInterval,
		shut:           make(chan struct{}),
		startMining:    make(chan bool, 1),
		cancelMining:   make(chan chan struct{}, 1),
		evHandler:      ev,
	}

	st.Worker = &w

	ops := map[string]func(){
		"mining": w.miningOperations,
	}
	if w.verifyInterval > 0 {
		ops["verify"] = w.verifyOperations
	}

	// Run only returns once every operation G is scheduled and running.
	running := make(chan string, len(ops))
	w.wg.Add(len(ops))
	for name, op := range ops {
		go func(name string, op func()) {
			defer w.wg.Done()
			running <- name
			op()
		}(name, op)
	}
	for range ops {
		w.evHandler("worker: run: %s operation running", <-running)
	}

	// Pick up any transactions restored from storage.
	if st.QueryMempoolLength() > 0 {
		w.SignalStartMining()
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown cancels any mining in progress and waits for the operation
// goroutines to return.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.miningTicker.Stop()

	// Abort any round in progress and release it once shut is closed so
	// it can't resignal itself.
	done := w.SignalCancelMining()
	close(w.shut)
	done()

	w.wg.Wait()
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	if w.state.IsHalted() {
		w.evHandler("worker: SignalStartMining: mining is halted")
		return
	}

	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately. That G will not return until the returned function is
// called, which lets the caller change the mempool before the next attempt
// starts.
func (w *Worker) SignalCancelMining() (done func()) {
	wait := make(chan struct{})

	select {
	case w.cancelMining <- wait:
	default:
	}
	w.evHandler("worker: SignalCancelMining: cancel signaled")

	return func() { close(wait) }
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
