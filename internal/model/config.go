package model

import "time"

type GeoInfo struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
	City    string `json:"city"`
	ISP     string `json:"isp"`
}

// IPResolver maps an IP to its location, e.g. from a local GeoIP database.
type IPResolver interface {
	Lookup(ip string) (GeoInfo, error)
}

// Timeout bounds applied to every check, in milliseconds.
const (
	MinTimeoutMs     = 1000
	MaxTimeoutMs     = 30000
	DefaultTimeoutMs = 20000
)

type Config struct {
	Listen             string        `yaml:"listen"`
	TargetURL          string        `yaml:"target_url"` // fetched through every proxy
	MaxTries           int           `yaml:"max_tries"`
	AllowedOrigins     []string      `yaml:"allowed_origins"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"` // per client IP, 0 disables
	MaxBodyBytes       int64         `yaml:"max_body_bytes"`
	IPInfoURL          string        `yaml:"ip_info_url"`
	GeoIPDB            string        `yaml:"geoip_db"` // optional MaxMind city database
	Verbose            bool          `yaml:"verbose"`
	LogFormat          string        `yaml:"log_format"` // json or text
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}
