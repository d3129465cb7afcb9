package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/net/proxy"

	"github.com/August26/proxycheck-api/internal/model"
)

// ErrUnsupportedProxyType means a proxy type slipped past input validation.
var ErrUnsupportedProxyType = errors.New("unsupported proxy type")

// Connector routes outbound HTTP requests through one proxy.
// Close releases every connection it opened.
type Connector interface {
	Client() *http.Client
	Close()
}

// ConnectorFunc builds a Connector for a credential and proxy type.
type ConnectorFunc func(cred model.ProxyCredential, typ model.ProxyType, timeout time.Duration) (Connector, error)

// StatusError is a proxy answering with a non-success HTTP status,
// either to the request itself or to the CONNECT that precedes it.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP status %d", e.Code)
}

type connectorFactory func(cred model.ProxyCredential, timeout time.Duration) (Connector, error)

// Every model.ProxyType must have an entry.
var connectorFactories = map[model.ProxyType]connectorFactory{
	model.ProxyTypeHTTP:   newHTTPConnector,
	model.ProxyTypeHTTPS:  newHTTPConnector,
	model.ProxyTypeSOCKS4: newSOCKS4Connector,
	model.ProxyTypeSOCKS5: newSOCKS5Connector,
}

// NewConnector builds the connector matching typ, embedding cred for the
// proxy's own authentication scheme.
func NewConnector(cred model.ProxyCredential, typ model.ProxyType, timeout time.Duration) (Connector, error) {
	factory, ok := connectorFactories[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProxyType, typ)
	}
	return factory(cred, timeout)
}

// transportConnector is shared by every proxy type: only the way the
// transport reaches the proxy differs.
type transportConnector struct {
	transport *http.Transport
	client    *http.Client
}

func newTransportConnector(t *http.Transport, timeout time.Duration) *transportConnector {
	// One request per connector, nothing is pooled across attempts.
	t.DisableKeepAlives = true
	t.TLSHandshakeTimeout = timeout
	t.ResponseHeaderTimeout = timeout
	t.ExpectContinueTimeout = 1 * time.Second

	return &transportConnector{
		transport: t,
		client: &http.Client{
			Transport: t,
			// A redirect already proves the proxy fetched the target.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *transportConnector) Client() *http.Client { return c.client }

func (c *transportConnector) Close() { c.transport.CloseIdleConnections() }

func proxyAddr(cred model.ProxyCredential) string {
	return net.JoinHostPort(cred.IP, strconv.Itoa(cred.Port))
}

// newHTTPConnector serves both http and https proxies: the request goes
// through a CONNECT tunnel (or a forward request for plain http targets)
// with Basic Proxy-Authorization taken from the URL userinfo.
func newHTTPConnector(cred model.ProxyCredential, timeout time.Duration) (Connector, error) {
	// url.UserPassword percent-encodes reserved characters.
	u := &url.URL{
		Scheme: "http",
		Host:   proxyAddr(cred),
		User:   url.UserPassword(cred.User, cred.Pass),
	}

	t := &http.Transport{
		Proxy: http.ProxyURL(u),
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		OnProxyConnectResponse: func(ctx context.Context, proxyURL *url.URL, connectReq *http.Request, connectRes *http.Response) error {
			if connectRes.StatusCode != http.StatusOK {
				return &StatusError{Code: connectRes.StatusCode}
			}
			return nil
		},
	}
	return newTransportConnector(t, timeout), nil
}

// newSOCKS5Connector uses the RFC 1929 username/password sub-negotiation.
func newSOCKS5Connector(cred model.ProxyCredential, timeout time.Duration) (Connector, error) {
	auth := &proxy.Auth{
		User:     cred.User,
		Password: cred.Pass,
	}

	dialer, err := proxy.SOCKS5("tcp", proxyAddr(cred), auth, &net.Dialer{
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer: %w", err)
	}
	cd, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("socks5 dialer does not implement DialContext")
	}

	t := &http.Transport{
		DialContext: cd.DialContext,
	}
	return newTransportConnector(t, timeout), nil
}

// newSOCKS4Connector sends the user as the SOCKS4 USERID. The protocol has
// no password field.
func newSOCKS4Connector(cred model.ProxyCredential, timeout time.Duration) (Connector, error) {
	t := &http.Transport{
		DialContext: dialWithContext(socks4Dial(proxyAddr(cred), cred.User, timeout)),
	}
	return newTransportConnector(t, timeout), nil
}

// dialWithContext adapts a blocking dial function to DialContext. A
// connection that completes after ctx is done gets closed.
func dialWithContext(dial func(network, addr string) (net.Conn, error)) DialFunc {
	type dialResult struct {
		conn net.Conn
		err  error
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		done := make(chan dialResult, 1)
		go func() {
			c, err := dial(network, addr)
			done <- dialResult{conn: c, err: err}
		}()

		select {
		case <-ctx.Done():
			go func() {
				if r := <-done; r.conn != nil {
					_ = r.conn.Close()
				}
			}()
			return nil, ctx.Err()
		case r := <-done:
			return r.conn, r.err
		}
	}
}
