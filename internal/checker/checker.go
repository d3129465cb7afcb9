package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/August26/proxycheck-api/internal/logging"
	"github.com/August26/proxycheck-api/internal/model"
	"github.com/August26/proxycheck-api/internal/parser"
)

// Input errors, all detected before any network I/O.
var (
	ErrMissingProxy     = errors.New("missing or invalid proxy")
	ErrInvalidProxyType = errors.New("invalid proxy type")
)

// Prober is the TCP stage.
type Prober interface {
	Probe(ctx context.Context, host string, port int, timeout time.Duration) model.TCPProbeResult
}

// HTTPVerifier is the application-level stage.
type HTTPVerifier interface {
	Verify(ctx context.Context, cred model.ProxyCredential, typ model.ProxyType, timeout time.Duration) (model.HTTPProbeResult, error)
}

// Checker runs the two-stage verification for one proxy at a time. It holds
// no per-check state and is safe for concurrent use.
type Checker struct {
	tcp    Prober
	http   HTTPVerifier
	logger *slog.Logger
}

// New builds a Checker from the service configuration.
func New(cfg model.Config, logger *slog.Logger) *Checker {
	return NewWithStages(&TCPProber{}, NewVerifier(cfg.TargetURL, cfg.MaxTries, logger), logger)
}

// NewWithStages builds a Checker from explicit stage implementations.
func NewWithStages(tcp Prober, http HTTPVerifier, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Checker{
		tcp:    tcp,
		http:   http,
		logger: logger,
	}
}

// NormalizeTimeoutMs applies the default to an absent or non-positive
// timeout and clamps everything else to [MinTimeoutMs, MaxTimeoutMs].
func NormalizeTimeoutMs(ms *int) int {
	if ms == nil || *ms <= 0 {
		return model.DefaultTimeoutMs
	}
	return min(max(*ms, model.MinTimeoutMs), model.MaxTimeoutMs)
}

// Check validates req, probes TCP and, only when TCP succeeded, verifies
// HTTP through the proxy with the same timeout.
//
// Returned errors are either input errors (ErrMissingProxy,
// ErrInvalidProxyType, parser.ErrMalformedCredential) or
// ErrUnsupportedProxyType. A dead proxy is a normal report, not an error.
func (c *Checker) Check(ctx context.Context, req model.CheckRequest) (model.VerificationReport, error) {
	raw := strings.TrimSpace(req.Proxy)
	if raw == "" {
		return model.VerificationReport{}, ErrMissingProxy
	}
	typ, ok := model.ParseProxyType(req.Type)
	if !ok {
		return model.VerificationReport{}, fmt.Errorf("%w: %q", ErrInvalidProxyType, req.Type)
	}
	cred, err := parser.ParseCredential(raw)
	if err != nil {
		return model.VerificationReport{}, err
	}

	timeoutMs := NormalizeTimeoutMs(req.TimeoutMs)
	timeout := time.Duration(timeoutMs) * time.Millisecond

	report := model.VerificationReport{
		Proxy: raw,
		Type:  typ,
		Parsed: model.ParsedProxy{
			IP:      cred.IP,
			Port:    cred.Port,
			HasAuth: true,
		},
		TimeoutMs: timeoutMs,
	}

	report.TCP = c.tcp.Probe(ctx, cred.IP, cred.Port, timeout)
	if !report.TCP.Alive {
		c.logger.Info("tcp gate failed",
			"proxy_ip", cred.IP,
			"port", cred.Port,
			"type", typ,
			"message", report.TCP.Message,
		)
		return report, nil
	}

	hr, err := c.http.Verify(ctx, cred, typ, timeout)
	if err != nil {
		return model.VerificationReport{}, fmt.Errorf("verify http: %w", err)
	}
	report.HTTP = &hr
	report.Alive = hr.Alive

	c.logger.Info("proxy checked",
		"proxy_ip", cred.IP,
		"port", cred.Port,
		"type", typ,
		"alive", report.Alive,
		"tcp_ms", report.TCP.LatencyMs,
		"http_ms", hr.LatencyMs,
		"tries", hr.Tries,
	)
	return report, nil
}
