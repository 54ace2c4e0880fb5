// Package metrics constructs the metrics the application will track.
package metrics

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// This holds the single instance of the metrics value needed for collecting
// metrics. The prometheus default registry is already based on a singleton
// for the different metrics that are registered with it so there isn't much
// choice here.
var m *metrics

// =============================================================================

// metrics represents the set of metrics we gather. These fields are
// safe to be accessed concurrently thanks to the underlying prometheus
// vector types. No extra abstraction is required.
type metrics struct {
	goroutines prometheus.Gauge
	requests   prometheus.Counter
	errors     prometheus.Counter
	panics     prometheus.Counter

	handled int64
}

// init constructs the metrics value that will be used to capture metrics.
// The metrics value is stored in a package level variable since everything
// inside of the prometheus default registry is registered as a singleton.
func init() {
	m = &metrics{
		goroutines: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "ziacoin",
			Subsystem: "web",
			Name:      "goroutines",
			Help:      "Number of goroutines running in the service.",
		}),
		requests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "ziacoin",
			Subsystem: "web",
			Name:      "requests_total",
			Help:      "Total number of requests handled by the service.",
		}),
		errors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "ziacoin",
			Subsystem: "web",
			Name:      "errors_total",
			Help:      "Total number of requests that resulted in an error.",
		}),
		panics: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "ziacoin",
			Subsystem: "web",
			Name:      "panics_total",
			Help:      "Total number of requests that resulted in a panic.",
		}),
	}
}

// =============================================================================

// ctxKey represents the type of value for the context key.
type ctxKey int

// key is how metric values are stored/retrieved.
const key ctxKey = 1

// =============================================================================

// Set sets the metrics data into the context.
func Set(ctx context.Context) context.Context {
	return context.WithValue(ctx, key, m)
}

// AddGoroutines refreshes the goroutine gauge.
func AddGoroutines(ctx context.Context) int64 {
	if v, ok := ctx.Value(key).(*metrics); ok {
		g := int64(runtime.NumGoroutine())
		v.goroutines.Set(float64(g))
		return g
	}
	return 0
}

// AddRequests increments the request counter and reports how many requests
// have been handled so far.
func AddRequests(ctx context.Context) int64 {
	if v, ok := ctx.Value(key).(*metrics); ok {
		v.requests.Inc()
		return atomic.AddInt64(&v.handled, 1)
	}
	return 0
}

// AddErrors increments the error counter.
func AddErrors(ctx context.Context) {
	if v, ok := ctx.Value(key).(*metrics); ok {
		v.errors.Inc()
	}
}

// AddPanics increments the panic counter.
func AddPanics(ctx context.Context) {
	if v, ok := ctx.Value(key).(*metrics); ok {
		v.panics.Inc()
	}
}
