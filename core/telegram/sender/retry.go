package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/catalogbot/core/logger"
	"github.com/m3rciful/catalogbot/core/metrics"
	"github.com/m3rciful/catalogbot/core/telegram/netutil"
)

const component = "tg.sender"

// attempt runs c until it succeeds, fails permanently, exhausts MaxRetries
// or overruns MaxDuration. Flood errors wait the interval Telegram asks for.
func (d *Dispatcher) attempt(c call) error {
	ctx := orBackground(c.ctx)
	bounded, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	tries := 0
	var err error
	for tries <= d.opts.MaxRetries {
		if err = bounded.Err(); err != nil {
			break
		}
		tries++
		if err = c.fn(); err == nil || !netutil.ShouldRetry(err) || tries > d.opts.MaxRetries {
			break
		}
		wait := d.backoff(tries, err)
		logger.Debug(ctx, component, "send.backoff", append(c.attrs(),
			slog.Int("attempt", tries),
			slog.Duration("wait", wait),
			slog.String("error_kind", errorKind(err)),
		)...)
		if werr := sleep(bounded, wait); werr != nil {
			err = errors.Join(err, werr)
			break
		}
	}

	attrs := append(c.attrs(), slog.Int("attempts", tries), slog.Duration("took", time.Since(start)))
	metrics.Sends.WithLabelValues(c.action, metrics.Outcome(err)).Inc()
	if err != nil {
		logger.Error(ctx, component, "send.fail", append(attrs,
			slog.String("error_kind", errorKind(err)),
			slog.Any("err", err),
		)...)
		return err
	}
	if tries > 1 {
		logger.Info(ctx, component, "send.recovered", attrs...)
	} else {
		logger.Debug(ctx, component, "send.ok", attrs...)
	}
	return nil
}

func (d *Dispatcher) backoff(try int, err error) time.Duration {
	if wait, ok := netutil.RetryAfter(err); ok {
		return wait
	}
	return d.opts.RetryBackoff * time.Duration(try)
}

func sleep(ctx context.Context, wait time.Duration) error {
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// attrs carries the call identity; rid and chat come from the context handler.
func (c call) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", c.action)}
	if c.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", c.endpoint))
	}
	return attrs
}

// errorKind buckets an error for the error_kind log field.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	var dns *net.DNSError
	if errors.As(err, &dns) {
		if dns.IsTimeout {
			return "timeout"
		}
		return "dns"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}
	var op *net.OpError
	if errors.As(err, &op) && op.Op == "dial" {
		return "dial"
	}
	var alert tls.AlertError
	if errors.As(err, &alert) {
		return "tls"
	}

	code := statusCode(err)
	switch {
	case code == http.StatusTooManyRequests:
		return "flood"
	case code >= 500:
		return "http_5xx"
	case code >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// statusCode recovers the Bot API status from telebot errors, falling back
// to the "(code)" suffix telebot appends to API messages.
func statusCode(err error) int {
	var api *tele.Error
	if errors.As(err, &api) {
		return api.Code
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	var group tele.GroupError
	if errors.As(err, &group) {
		return http.StatusBadRequest
	}

	msg := strings.TrimSpace(err.Error())
	if !strings.HasSuffix(msg, ")") {
		return 0
	}
	open := strings.LastIndexByte(msg, '(')
	if open < 0 {
		return 0
	}
	code, convErr := strconv.Atoi(msg[open+1 : len(msg)-1])
	if convErr != nil {
		return 0
	}
	return code
}
