package checker

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/August26/proxycheck-api/internal/model"
)

// DialFunc opens a raw connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// TCPProber performs the single TCP connect that gates every check.
type TCPProber struct {
	// Dial defaults to a plain net.Dialer.
	Dial DialFunc
}

// Probe opens one TCP connection to host:port and closes it straight away.
// Timeout, refusal and resolution failures are reported in the result,
// never as an error.
func (p *TCPProber) Probe(ctx context.Context, host string, port int, timeout time.Duration) model.TCPProbeResult {
	dial := p.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	start := time.Now()
	conn, err := dial(ctx, "tcp", addr)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return model.TCPProbeResult{
			Alive:     false,
			LatencyMs: elapsed,
			Message:   classifyDialError(err),
		}
	}
	_ = conn.Close()

	return model.TCPProbeResult{
		Alive:     true,
		LatencyMs: elapsed,
		Message:   "TCP connect OK",
	}
}

func classifyDialError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return "TCP timeout"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "TCP timeout"
	}
	return "TCP error: " + err.Error()
}
