package mid_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/business/web/mid"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newApp(t *testing.T, reg prometheus.Registerer) *web.App {
	rm, err := mid.NewRequestMetrics(reg)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to register the request metrics: %v", failed, err)
	}

	log := zap.NewNop().Sugar()

	app := web.NewApp(
		make(chan os.Signal, 1),
		mid.Logger(log),
		mid.Metrics(rm),
		mid.Errors(log),
		mid.Cors("*"),
		mid.Panics(),
	)

	app.Handle(http.MethodGet, "v1", "/ok", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, map[string]string{"status": "ok"}, http.StatusOK)
	})
	app.Handle(http.MethodGet, "v1", "/missing", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return fmt.Errorf("block 7: %w", database.ErrNotFound)
	})
	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})

	return app
}

func TestMiddleware(t *testing.T) {
	type table struct {
		path   string
		status int
	}

	tt := []table{
		{path: "/v1/ok", status: http.StatusOK},
		{path: "/v1/missing", status: http.StatusNotFound},
		{path: "/v1/panic", status: http.StatusInternalServerError},
	}

	reg := prometheus.NewRegistry()
	app := newApp(t, reg)

	t.Log("Given the need to handle requests through the middleware chain.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen calling %s.", testID, tst.path)
				{
					r := httptest.NewRequest(http.MethodGet, tst.path, nil)
					w := httptest.NewRecorder()
					app.ServeHTTP(w, r)

					if w.Code != tst.status {
						t.Fatalf("\t%s\tTest %d:\tShould get status %d, got %d.", failed, testID, tst.status, w.Code)
					}
					t.Logf("\t%s\tTest %d:\tShould get status %d.", success, testID, tst.status)

					if w.Header().Get("Access-Control-Allow-Origin") != "*" {
						t.Fatalf("\t%s\tTest %d:\tShould set the cors headers.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould set the cors headers.", success, testID)

					if tst.status != http.StatusOK {
						var resp errs.Response
						if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Error == "" {
							t.Fatalf("\t%s\tTest %d:\tShould get an error document: %v", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould get an error document.", success, testID)
					}
				}
			}

			t.Run(tst.path, f)
		}

		t.Logf("\tTest %d:\tWhen reading the request counters.", len(tt))
		{
			families, err := reg.Gather()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to gather: %v", failed, len(tt), err)
			}

			var requests, errors float64
			for _, mf := range families {
				for _, m := range mf.GetMetric() {
					switch mf.GetName() {
					case "powledger_http_requests_total":
						requests += m.GetCounter().GetValue()
					case "powledger_http_errors_total":
						errors += m.GetCounter().GetValue()
					}
				}
			}

			if requests != 3 || errors != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould count 3 requests and 2 errors, got %v and %v.", failed, len(tt), requests, errors)
			}
			t.Logf("\t%s\tTest %d:\tShould count 3 requests and 2 errors.", success, len(tt))
		}
	}
}

func TestCors(t *testing.T) {
	type table struct {
		origins string
		origin  string
		allow   string
	}

	tt := []table{
		{origins: "*", origin: "http://a.example", allow: "*"},
		{origins: "http://a.example, http://b.example", origin: "http://b.example", allow: "http://b.example"},
		{origins: "http://a.example", origin: "http://c.example", allow: ""},
	}

	t.Log("Given the need to restrict cross origin requests.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen allowing %q and receiving %q.", testID, tst.origins, tst.origin)
				{
					app := web.NewApp(make(chan os.Signal, 1), mid.Cors(tst.origins))
					app.Handle(http.MethodGet, "v1", "/ok", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
						return web.Respond(ctx, w, nil, http.StatusNoContent)
					})

					r := httptest.NewRequest(http.MethodGet, "/v1/ok", nil)
					r.Header.Set("Origin", tst.origin)
					w := httptest.NewRecorder()
					app.ServeHTTP(w, r)

					if got := w.Header().Get("Access-Control-Allow-Origin"); got != tst.allow {
						t.Fatalf("\t%s\tTest %d:\tShould allow origin %q, got %q.", failed, testID, tst.allow, got)
					}
					t.Logf("\t%s\tTest %d:\tShould allow origin %q.", success, testID, tst.allow)
				}
			}

			t.Run(tst.origin, f)
		}
	}
}
