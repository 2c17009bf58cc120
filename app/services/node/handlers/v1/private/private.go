// Package private maintains the group of handlers for operator access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of operator endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

type status struct {
	Beneficiary string            `json:"beneficiary"`
	LatestHash  string            `json:"latest_block_hash"`
	Mining      state.MiningStats `json:"mining"`
}

// Status returns the mining counters for the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st := status{
		Beneficiary: string(h.State.RetrieveBeneficiary()),
		LatestHash:  h.State.RetrieveLatestBlock().Hash,
		Mining:      h.State.RetrieveMiningStats(),
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// SignalMining asks the worker to start a mining attempt.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.Worker != nil {
		h.State.Worker.SignalStartMining()
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// EvictTransaction removes a pending transaction from the mempool.
func (h Handlers) EvictTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	id := web.Param(r, "id")

	h.Log.Infow("evict tran", "traceid", v.TraceID, "id", id)

	if err := h.State.EvictTransaction(ctx, id); err != nil {
		return err
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// ClearMempool removes every pending transaction.
func (h Handlers) ClearMempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.ClearMempool(ctx); err != nil {
		return err
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// VerifyChain re-validates the chain and the utxo set. A failure halts
// mining.
func (h Handlers) VerifyChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.VerifyChain(ctx); err != nil {
		return err
	}

	resp := struct {
		Status string `json:"status"`
		Height uint64 `json:"height"`
	}{
		Status: "chain verified",
		Height: h.State.QueryBlockHeight(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
