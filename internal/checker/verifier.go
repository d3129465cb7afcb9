package checker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/August26/proxycheck-api/internal/logging"
	"github.com/August26/proxycheck-api/internal/model"
)

const (
	// DefaultTargetURL is fetched through every proxy under test.
	DefaultTargetURL = "https://httpbin.org/ip"
	DefaultMaxTries  = 2
)

// Verifier fetches TargetURL through the proxy, retrying up to MaxTries times.
type Verifier struct {
	TargetURL    string
	MaxTries     int
	NewConnector ConnectorFunc
	Logger       *slog.Logger
}

// NewVerifier returns a Verifier with defaults filled in for empty values.
func NewVerifier(targetURL string, maxTries int, logger *slog.Logger) *Verifier {
	if targetURL == "" {
		targetURL = DefaultTargetURL
	}
	if maxTries < 1 {
		maxTries = DefaultMaxTries
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Verifier{
		TargetURL:    targetURL,
		MaxTries:     maxTries,
		NewConnector: NewConnector,
		Logger:       logger,
	}
}

// Verify stops at the first response with a status in [200, 400). Each
// attempt gets the full timeout and a fresh connector, and its elapsed time
// is added to the reported latency whether it succeeded or not.
//
// The only error returned is ErrUnsupportedProxyType; network and proxy
// failures end up in the result.
func (v *Verifier) Verify(ctx context.Context, cred model.ProxyCredential, typ model.ProxyType, timeout time.Duration) (model.HTTPProbeResult, error) {
	maxTries := v.MaxTries
	if maxTries < 1 {
		maxTries = DefaultMaxTries
	}

	var (
		total   int64
		lastErr string
	)

	for attempt := 1; attempt <= maxTries; attempt++ {
		start := time.Now()
		status, err := v.attempt(ctx, cred, typ, timeout)
		total += time.Since(start).Milliseconds()

		if errors.Is(err, ErrUnsupportedProxyType) {
			return model.HTTPProbeResult{}, err
		}

		if err == nil && status >= 200 && status < 400 {
			code := status
			return model.HTTPProbeResult{
				Alive:      true,
				LatencyMs:  total,
				StatusCode: &code,
				Tries:      attempt,
			}, nil
		}

		if err == nil {
			err = &StatusError{Code: status}
		}
		lastErr = attemptError(err)

		v.Logger.Debug("http attempt failed",
			"proxy_ip", cred.IP,
			"type", typ,
			"attempt", attempt,
			"err", lastErr,
		)

		if ctx.Err() != nil {
			// Caller went away, later attempts could only fail the same way.
			return model.HTTPProbeResult{
				LatencyMs: total,
				Error:     &lastErr,
				Tries:     attempt,
			}, nil
		}
	}

	return model.HTTPProbeResult{
		Alive:     false,
		LatencyMs: total,
		Error:     &lastErr,
		Tries:     maxTries,
	}, nil
}

// attempt performs one GET through a connector that is closed before returning.
func (v *Verifier) attempt(ctx context.Context, cred model.ProxyCredential, typ model.ProxyType, timeout time.Duration) (int, error) {
	conn, err := v.NewConnector(cred, typ, timeout)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.TargetURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := conn.Client().Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}

// attemptError renders a status rejection as "HTTP status <code>" wherever
// it happened, and any other failure as its error text.
func attemptError(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}
