// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/events"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"github.com/ardanlabs/powledger/foundation/validate"
	"github.com/ardanlabs/powledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction adds a new transaction to the mempool. The from and to
// fields accept an account id or a name known to the name service.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var st submitTx
	if err := web.Decode(r, &st); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(st); err != nil {
		return database.NewValidationError("", err)
	}

	from, err := h.NS.Resolve(st.From)
	if err != nil {
		return database.NewValidationError("from", err)
	}

	to, err := h.NS.Resolve(st.To)
	if err != nil {
		return database.NewValidationError("to", err)
	}

	nt := database.NewTx{
		ID:     st.ID,
		From:   string(from),
		To:     string(to),
		Amount: st.Amount,
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "from", from, "to", to, "amount", st.Amount)

	tran, err := h.State.SubmitTransaction(ctx, nt)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toTx(h.NS, tran), http.StatusCreated)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Blocks returns the full chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, toBlocks(h.NS, h.State.RetrieveChain()), http.StatusOK)
}

// Height returns the index of the latest block.
func (h Handlers) Height(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.State.RetrieveLatestBlock()

	ht := height{
		Height:      latest.Index,
		LatestBlock: latest.Hash,
		Difficulty:  h.State.RetrieveDifficulty(),
	}

	return web.Respond(ctx, w, ht, http.StatusOK)
}

// BlockByIndex returns the block at the specified index.
func (h Handlers) BlockByIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := parseIndex(web.Param(r, "index"))
	if err != nil {
		return err
	}

	blk, err := h.State.QueryBlockByIndex(index)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toBlock(h.NS, blk), http.StatusOK)
}

// BlockByHash returns the block with the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blk, err := h.State.QueryBlockByHash(web.Param(r, "hash"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toBlock(h.NS, blk), http.StatusOK)
}

// BlocksByRange returns the blocks between from and to inclusive. The range
// is clamped to the chain.
func (h Handlers) BlocksByRange(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := parseIndex(web.Param(r, "from"))
	if err != nil {
		return err
	}

	to, err := parseIndex(web.Param(r, "to"))
	if err != nil {
		return err
	}

	if from > to {
		return errs.NewTrusted(fmt.Errorf("from %d is greater than to %d", from, to), http.StatusBadRequest)
	}

	return web.Respond(ctx, w, toBlocks(h.NS, h.State.QueryBlocksByRange(from, to)), http.StatusOK)
}

// Balance returns the balance of the specified account.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := h.NS.Resolve(web.Param(r, "account"))
	if err != nil {
		return database.NewValidationError("account", err)
	}

	var pending uint64
	for _, tran := range h.State.RetrieveMempool() {
		if tran.From == accountID {
			pending += tran.Amount
		}
	}

	latest := h.State.RetrieveLatestBlock()

	bal := balance{
		Account:      accountID,
		Name:         h.NS.Lookup(accountID),
		Balance:      h.State.QueryBalance(accountID),
		Pending:      pending,
		LatestBlock:  latest.Hash,
		BlockHeight:  latest.Index,
		UnspentCount: len(h.State.QueryUnspent(accountID)),
	}

	return web.Respond(ctx, w, bal, http.StatusOK)
}

// UTXOs returns every output ever created for the specified account. Use
// the unspent query parameter to only see what can still be spent.
func (h Handlers) UTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := h.NS.Resolve(web.Param(r, "account"))
	if err != nil {
		return database.NewValidationError("account", err)
	}

	utxos := h.State.QueryUTXOs(accountID)
	if unspent, _ := strconv.ParseBool(r.URL.Query().Get("unspent")); unspent {
		utxos = h.State.QueryUnspent(accountID)
	}

	if utxos == nil {
		utxos = []database.UTXO{}
	}

	return web.Respond(ctx, w, utxos, http.StatusOK)
}

// Transaction returns a transaction from the mempool or the chain.
func (h Handlers) Transaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	info, err := h.State.QueryTransaction(web.Param(r, "id"))
	if err != nil {
		return err
	}

	ti := txInfo{
		Transaction: toTx(h.NS, info.Transaction),
		Status:      info.Status,
		BlockIndex:  info.BlockIndex,
		BlockHash:   info.BlockHash,
	}

	return web.Respond(ctx, w, ti, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions. An account parameter
// limits the list to transactions to or from that account.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mempool := h.State.RetrieveMempool()

	acct := r.URL.Query().Get("account")
	if acct == "" {
		return web.Respond(ctx, w, toTxs(h.NS, mempool), http.StatusOK)
	}

	accountID, err := h.NS.Resolve(acct)
	if err != nil {
		return database.NewValidationError("account", err)
	}

	trans := []tx{}
	for _, tran := range mempool {
		if tran.From == accountID || tran.To == accountID {
			trans = append(trans, toTx(h.NS, tran))
		}
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// MempoolStats returns the statistics for the mempool.
func (h Handlers) MempoolStats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryMempoolStats(), http.StatusOK)
}

// =============================================================================

func parseIndex(s string) (uint64, error) {
	index, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) {
			err = ne.Err
		}
		return 0, errs.NewTrusted(fmt.Errorf("invalid block index %q: %w", s, err), http.StatusBadRequest)
	}
	return index, nil
}
