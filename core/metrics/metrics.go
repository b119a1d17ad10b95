// Package metrics exposes the bot's prometheus collectors and the /metrics listener.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/catalogbot/core/logger"
)

const namespace = "catalogbot"

var (
	// Actions counts routed action tokens by domain and outcome
	// (ok, fail, denied, unknown).
	Actions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Action tokens routed, by domain and outcome.",
	}, []string{"domain", "outcome"})

	// Continuations counts consumed free-form inputs by kind and outcome.
	Continuations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "continuations_total",
		Help:      "Free-form inputs handled by the continuation engine.",
	}, []string{"kind", "outcome"})

	// Updates counts inbound updates by kind.
	Updates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_total",
		Help:      "Inbound Telegram updates by kind.",
	}, []string{"kind"})

	// RateLimited counts updates dropped by the rate limiter.
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Updates dropped by the per-user rate limiter.",
	})

	// ScreenDeletes counts transport deletes of screen messages by outcome.
	ScreenDeletes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "screen_deletes_total",
		Help:      "Screen message deletes issued to the transport.",
	}, []string{"outcome"})

	// Transfers counts bulk import/export/backup/restore runs.
	Transfers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfers_total",
		Help:      "Bulk transfer operations by kind and outcome.",
	}, []string{"op", "outcome"})

	// Sends counts outbound Telegram calls by action and outcome.
	Sends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sends_total",
		Help:      "Outbound Telegram calls by action and outcome.",
	}, []string{"action", "outcome"})
)

func init() {
	prometheus.MustRegister(Actions, Continuations, Updates, RateLimited, ScreenDeletes, Transfers, Sends)
}

// RegisterGauge registers a callback gauge once; repeated names are ignored.
func RegisterGauge(name, help string, fn func() float64) {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn)
	if err := prometheus.Register(g); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			logger.Warn(context.Background(), "metrics", "gauge.register_failed",
				slog.String("name", name),
				slog.String("err", err.Error()),
			)
		}
	}
}

// Outcome maps an error to the generic ok/fail label.
func Outcome(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// Serve exposes /metrics on listen until ctx is done. An empty listen disables it.
func Serve(ctx context.Context, listen string) error {
	if listen == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "metrics", "listen",
			slog.String("listen", listen),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
