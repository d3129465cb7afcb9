package checker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/August26/proxycheck-api/internal/model"
	"github.com/August26/proxycheck-api/internal/parser"
)

type fakeProber struct {
	calls   atomic.Int32
	result  model.TCPProbeResult
	timeout time.Duration
}

func (p *fakeProber) Probe(ctx context.Context, host string, port int, timeout time.Duration) model.TCPProbeResult {
	p.calls.Add(1)
	p.timeout = timeout
	return p.result
}

type fakeVerifier struct {
	calls   atomic.Int32
	result  model.HTTPProbeResult
	err     error
	timeout time.Duration
}

func (v *fakeVerifier) Verify(ctx context.Context, cred model.ProxyCredential, typ model.ProxyType, timeout time.Duration) (model.HTTPProbeResult, error) {
	v.calls.Add(1)
	v.timeout = timeout
	return v.result, v.err
}

func intPtr(v int) *int { return &v }

func TestCheck_TCPFailureSkipsHTTP(t *testing.T) {
	tcp := &fakeProber{result: model.TCPProbeResult{Alive: false, LatencyMs: 5, Message: "TCP timeout"}}
	hv := &fakeVerifier{}
	c := NewWithStages(tcp, hv, nil)

	rep, err := c.Check(context.Background(), model.CheckRequest{
		Proxy: "u:p@203.0.113.5:8080",
		Type:  "http",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if hv.calls.Load() != 0 {
		t.Fatalf("http stage ran %d times after tcp failure", hv.calls.Load())
	}
	if rep.HTTP != nil || rep.Alive {
		t.Fatalf("unexpected report %#v", rep)
	}
	if rep.TCP.Message != "TCP timeout" {
		t.Fatalf("tcp result not propagated: %#v", rep.TCP)
	}
}

func TestCheck_HTTPStageDecidesLiveness(t *testing.T) {
	for _, alive := range []bool{true, false} {
		tcp := &fakeProber{result: model.TCPProbeResult{Alive: true, LatencyMs: 3, Message: "TCP connect OK"}}
		hv := &fakeVerifier{result: model.HTTPProbeResult{Alive: alive, LatencyMs: 120, Tries: 1}}
		c := NewWithStages(tcp, hv, nil)

		rep, err := c.Check(context.Background(), model.CheckRequest{
			Proxy:     " u:p@203.0.113.5:8080 ",
			Type:      "socks5",
			TimeoutMs: intPtr(5000),
		})
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if rep.HTTP == nil || rep.Alive != alive || rep.HTTP.Alive != alive {
			t.Fatalf("alive=%v: unexpected report %#v", alive, rep)
		}
		if tcp.timeout != 5*time.Second || hv.timeout != 5*time.Second {
			t.Fatalf("stages got timeouts %v / %v", tcp.timeout, hv.timeout)
		}
		want := model.ParsedProxy{IP: "203.0.113.5", Port: 8080, HasAuth: true}
		if rep.Parsed != want || rep.Proxy != "u:p@203.0.113.5:8080" || rep.Type != model.ProxyTypeSOCKS5 || rep.TimeoutMs != 5000 {
			t.Fatalf("unexpected echo fields %#v", rep)
		}
	}
}

func TestCheck_InputErrorsBeforeIO(t *testing.T) {
	cases := []struct {
		req  model.CheckRequest
		want error
	}{
		{model.CheckRequest{Proxy: "", Type: "http"}, ErrMissingProxy},
		{model.CheckRequest{Proxy: "   ", Type: "http"}, ErrMissingProxy},
		{model.CheckRequest{Proxy: "u:p@1.2.3.4:80", Type: "ftp"}, ErrInvalidProxyType},
		{model.CheckRequest{Proxy: "u:p@1.2.3.4:80", Type: ""}, ErrInvalidProxyType},
		{model.CheckRequest{Proxy: "nouserpasshere", Type: "http"}, parser.ErrMalformedCredential},
		{model.CheckRequest{Proxy: "u:p@1.2.3.4:0", Type: "socks4"}, parser.ErrMalformedCredential},
	}
	for _, tc := range cases {
		tcp := &fakeProber{}
		hv := &fakeVerifier{}
		_, err := NewWithStages(tcp, hv, nil).Check(context.Background(), tc.req)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%#v: got %v want %v", tc.req, err, tc.want)
		}
		if tcp.calls.Load() != 0 || hv.calls.Load() != 0 {
			t.Fatalf("%#v: network stage ran on invalid input", tc.req)
		}
	}
}

func TestCheck_ContractViolation(t *testing.T) {
	tcp := &fakeProber{result: model.TCPProbeResult{Alive: true}}
	hv := &fakeVerifier{err: ErrUnsupportedProxyType}

	_, err := NewWithStages(tcp, hv, nil).Check(context.Background(), model.CheckRequest{
		Proxy: "u:p@1.2.3.4:80",
		Type:  "http",
	})
	if !errors.Is(err, ErrUnsupportedProxyType) {
		t.Fatalf("expected ErrUnsupportedProxyType, got %v", err)
	}
}

func TestNormalizeTimeoutMs(t *testing.T) {
	cases := []struct {
		in   *int
		want int
	}{
		{nil, model.DefaultTimeoutMs},
		{intPtr(0), model.DefaultTimeoutMs},
		{intPtr(-5), model.DefaultTimeoutMs},
		{intPtr(1), model.MinTimeoutMs},
		{intPtr(999), model.MinTimeoutMs},
		{intPtr(1000), 1000},
		{intPtr(5000), 5000},
		{intPtr(30000), 30000},
		{intPtr(90000), model.MaxTimeoutMs},
	}
	for _, tc := range cases {
		if got := NormalizeTimeoutMs(tc.in); got != tc.want {
			t.Fatalf("NormalizeTimeoutMs(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
