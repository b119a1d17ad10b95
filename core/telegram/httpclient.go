package telegram

import (
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/m3rciful/catalogbot/core/logger"
	"github.com/m3rciful/catalogbot/core/telegram/netutil"
)

const (
	dialTimeout      = 5 * time.Second
	handshakeTimeout = 5 * time.Second
	idleConnTimeout  = 90 * time.Second
	// transferBudget covers an API call beyond the long-poll wait, including
	// downloads of uploaded backups up to the Bot API 20 MB limit.
	transferBudget = 60 * time.Second
	dialAttempts   = 3
	dialBackoff    = time.Second
)

// BuildHTTPClient returns the client used for Bot API calls. Its overall
// timeout outlasts one long-poll wait; connection failures that never
// reached Telegram are retried.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     idleConnTimeout,
		TLSHandshakeTimeout: handshakeTimeout,
	}
	return &http.Client{
		Timeout:   pollTimeout + transferBudget,
		Transport: &redial{next: transport, attempts: dialAttempts, backoff: dialBackoff},
	}
}

// redial repeats a request whose connection failed before Telegram saw it.
// Requests with a body that cannot be replayed are sent once.
type redial struct {
	next     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *redial) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	for n := 1; err != nil && n < t.attempts && netutil.ShouldRetry(err); n++ {
		if req.Body != nil && req.GetBody == nil {
			break
		}
		logger.TG.DebugContext(req.Context(), "bot api redial",
			slog.String("event", "http.retry"),
			slog.String("method", path.Base(req.URL.Path)),
			slog.Int("attempt", n+1),
			slog.String("err", err.Error()),
		)
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(t.backoff * time.Duration(n)):
		}
		retry := req.Clone(req.Context())
		if req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, berr
			}
			retry.Body = body
		}
		resp, err = t.next.RoundTrip(retry)
	}
	return resp, err
}
