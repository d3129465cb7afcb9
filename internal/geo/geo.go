// Package geo answers the informational IP lookup endpoint, either by
// relaying a remote lookup service or from a local MaxMind database.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/August26/proxycheck-api/internal/model"
)

const maxLookupBody = 64 << 10

// Source produces the JSON document returned for a caller's IP.
type Source interface {
	Fetch(ctx context.Context, clientIP string) ([]byte, error)
}

// RemoteSource relays the lookup service's body verbatim. The service
// resolves the IP the request comes from, so clientIP is unused.
type RemoteSource struct {
	URL    string
	Client *http.Client
}

func NewRemoteSource(url string) *RemoteSource {
	return &RemoteSource{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *RemoteSource) Fetch(ctx context.Context, clientIP string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ip lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip lookup: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLookupBody))
	if err != nil {
		return nil, fmt.Errorf("ip lookup: read body: %w", err)
	}
	if !json.Valid(body) {
		return nil, errors.New("ip lookup: response is not JSON")
	}
	return body, nil
}

// GeoIPSource resolves IPs against a MaxMind City database.
type GeoIPSource struct {
	db *geoip2.Reader
}

// OpenGeoIP opens the database at path. Close it when done.
func OpenGeoIP(path string) (*GeoIPSource, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db: %w", err)
	}
	return &GeoIPSource{db: db}, nil
}

func (s *GeoIPSource) Close() error {
	return s.db.Close()
}

// Lookup implements model.IPResolver.
func (s *GeoIPSource) Lookup(ip string) (model.GeoInfo, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return model.GeoInfo{}, fmt.Errorf("invalid ip %q", ip)
	}
	record, err := s.db.City(parsed)
	if err != nil {
		return model.GeoInfo{}, err
	}
	return model.GeoInfo{
		IP:      parsed.String(),
		Country: record.Country.Names["en"],
		City:    record.City.Names["en"],
	}, nil
}

func (s *GeoIPSource) Fetch(ctx context.Context, clientIP string) ([]byte, error) {
	return fetchResolved(s, clientIP)
}

// fetchResolved renders any model.IPResolver as a Source payload.
func fetchResolved(r model.IPResolver, clientIP string) ([]byte, error) {
	info, err := r.Lookup(clientIP)
	if err != nil {
		return nil, err
	}
	return json.Marshal(info)
}

// ResolverSource adapts a plain model.IPResolver.
type ResolverSource struct {
	Resolver model.IPResolver
}

func (s ResolverSource) Fetch(ctx context.Context, clientIP string) ([]byte, error) {
	return fetchResolved(s.Resolver, clientIP)
}
