package model

import "strings"

// ProxyType selects the wire protocol used to reach a proxy.
type ProxyType string

const (
	ProxyTypeHTTP   ProxyType = "http"
	ProxyTypeHTTPS  ProxyType = "https"
	ProxyTypeSOCKS4 ProxyType = "socks4"
	ProxyTypeSOCKS5 ProxyType = "socks5"
)

// ProxyTypes lists every supported proxy type.
var ProxyTypes = []ProxyType{ProxyTypeHTTP, ProxyTypeHTTPS, ProxyTypeSOCKS4, ProxyTypeSOCKS5}

// ParseProxyType maps a user supplied string to a ProxyType.
func ParseProxyType(s string) (ProxyType, bool) {
	t := ProxyType(strings.TrimSpace(s))
	for _, known := range ProxyTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// ProxyCredential is a proxy endpoint together with its login, parsed from
//
//	user:pass@ip:port
//
// Only the parser builds it, so all four fields are always set.
type ProxyCredential struct {
	IP   string
	Port int
	User string
	Pass string
}

// TCPProbeResult is the outcome of the raw TCP reachability check.
type TCPProbeResult struct {
	Alive     bool   `json:"alive"`
	LatencyMs int64  `json:"latencyMs"`
	Message   string `json:"message"`
}

// HTTPProbeResult is the outcome of fetching the test target through the proxy.
// LatencyMs is the sum over all attempts, not just the last one.
type HTTPProbeResult struct {
	Alive      bool    `json:"alive"`
	LatencyMs  int64   `json:"latencyMs"`
	StatusCode *int    `json:"statusCode"`
	Error      *string `json:"error"`
	Tries      int     `json:"tries"`
}

// ParsedProxy is the part of the credential that is safe to echo back.
type ParsedProxy struct {
	IP      string `json:"ip"`
	Port    int    `json:"port"`
	HasAuth bool   `json:"hasAuth"`
}

// VerificationReport is the combined result of one proxy check.
// HTTP is nil exactly when the TCP stage failed.
type VerificationReport struct {
	Proxy     string           `json:"proxy"`
	Type      ProxyType        `json:"type"`
	Parsed    ParsedProxy      `json:"parsed"`
	TimeoutMs int              `json:"timeoutMs"`
	TCP       TCPProbeResult   `json:"tcp"`
	HTTP      *HTTPProbeResult `json:"http"`
	Alive     bool             `json:"alive"`
}

// CheckRequest is the body accepted by the check endpoint.
type CheckRequest struct {
	Proxy     string `json:"proxy"`
	Type      string `json:"type"`
	TimeoutMs *int   `json:"timeoutMs,omitempty"`
}

// ServiceStats aggregates counters over every check served since startup.
type ServiceStats struct {
	TotalChecks    int     `json:"total_checks"`
	AliveProxies   int     `json:"alive_proxies"`
	TCPFailures    int     `json:"tcp_failures"`
	HTTPFailures   int     `json:"http_failures"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	SuccessRatePct float64 `json:"success_rate_pct"`
	UptimeSec      int64   `json:"uptime_sec"`
}
