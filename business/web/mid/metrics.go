package mid

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ardanlabs/powledger/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics holds the prometheus counters updated for every request.
type RequestMetrics struct {
	requests *prometheus.CounterVec
	errors   prometheus.Counter
}

// NewRequestMetrics constructs the request counters and registers them.
func NewRequestMetrics(reg prometheus.Registerer) (*RequestMetrics, error) {
	rm := RequestMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "powledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of requests handled by status code",
		}, []string{"code"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "powledger",
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Number of requests that failed",
		}),
	}

	for _, c := range []prometheus.Collector{rm.requests, rm.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &rm, nil
}

// Metrics updates program counters.
func Metrics(rm *RequestMetrics) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			v, verr := web.GetValues(ctx)
			if verr == nil {
				rm.requests.WithLabelValues(strconv.Itoa(v.StatusCode)).Inc()
			}

			if err != nil || (verr == nil && v.StatusCode >= http.StatusBadRequest) {
				rm.errors.Inc()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}
