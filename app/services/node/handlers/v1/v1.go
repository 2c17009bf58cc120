// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/powledger/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/powledger/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/events"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"github.com/ardanlabs/powledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/blocks/list", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/height", pbl.Height)
	app.Handle(http.MethodGet, version, "/blocks/index/:index", pbl.BlockByIndex)
	app.Handle(http.MethodGet, version, "/blocks/hash/:hash", pbl.BlockByHash)
	app.Handle(http.MethodGet, version, "/blocks/range/:from/:to", pbl.BlocksByRange)
	app.Handle(http.MethodGet, version, "/balances/:account", pbl.Balance)
	app.Handle(http.MethodGet, version, "/utxos/:account", pbl.UTXOs)
	app.Handle(http.MethodGet, version, "/tx/:id", pbl.Transaction)
	app.Handle(http.MethodGet, version, "/mempool/list", pbl.Mempool)
	app.Handle(http.MethodGet, version, "/mempool/stats", pbl.MempoolStats)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodPost, version, "/mining/signal", prv.SignalMining)
	app.Handle(http.MethodPost, version, "/chain/verify", prv.VerifyChain)
	app.Handle(http.MethodDelete, version, "/mempool/:id", prv.EvictTransaction)
	app.Handle(http.MethodDelete, version, "/mempool", prv.ClearMempool)
}
