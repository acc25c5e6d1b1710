package bundlelib

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"
)

// DefaultMaxRedirects is the maximum number of redirect hops a bundle
// request may follow.
const DefaultMaxRedirects = 10

var (
	ErrInvalidProxyURL       = errors.New("invalid proxy URL")
	ErrUnsupportedProxy      = errors.New("unsupported proxy scheme")
	ErrTooManyRedirects      = errors.New("redirect loop detected")
	ErrCrossProtocolRedirect = errors.New("cross-protocol redirect not supported")
)

var supportedProxySchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"socks5": true,
}

var _ Transporter = (*HTTPTransporter)(nil)

// HTTPTransporter fetches bundles over HTTP(S). The origin is a URL
// prefix; the bundle name is appended to its path.
type HTTPTransporter struct {
	client    *http.Client
	userAgent string
}

// NewHTTPTransporter creates an HTTPTransporter using client, or a
// client built by NewHTTPClient when client is nil.
func NewHTTPTransporter(client *http.Client, userAgent string) *HTTPTransporter {
	if client == nil {
		client, _ = NewHTTPClient("")
	}
	return &HTTPTransporter{client: client, userAgent: userAgent}
}

// Load issues a GET for the bundle. An error status or a network error fails.
func (t *HTTPTransporter) Load(ctx context.Context, name, origin string, progress ProgressFunc) (*Bundle, error) {
	u, err := joinOriginURL(origin, name)
	if err != nil {
		return nil, newTransportError("http", "url", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, newTransportError("http", "request", name, err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, newTransportError("http", "get", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newTransportError("http", "status", name, fmt.Errorf("%s returned %s", u.Redacted(), resp.Status))
	}
	data, err := readWithProgress(ctx, resp.Body, resp.ContentLength, progress)
	if err != nil {
		return nil, newTransportError("http", "read", name, err)
	}
	b, err := ParseBundle(name, data)
	if err != nil {
		return nil, newTransportError("http", "parse", name, err)
	}
	return b, nil
}

// NewHTTPClient creates an HTTP client that optionally routes through
// proxyURL (http, https or socks5). The client always enforces the
// bundle redirect policy.
func NewHTTPClient(proxyURL string) (*http.Client, error) {
	if proxyURL == "" {
		return &http.Client{
			CheckRedirect: redirectPolicy(DefaultMaxRedirects),
		}, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, ErrInvalidProxyURL
	}
	if !supportedProxySchemes[parsed.Scheme] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProxy, parsed.Scheme)
	}

	transport := &http.Transport{}
	if parsed.Scheme == "socks5" {
		var auth *proxy.Auth
		if parsed.User != nil {
			pass, _ := parsed.User.Password()
			auth = &proxy.Auth{
				User:     parsed.User.Username(),
				Password: pass,
			}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, err
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.Dial = dialer.Dial
		}
	} else {
		transport.Proxy = http.ProxyURL(parsed)
	}

	return &http.Client{
		Transport:     transport,
		CheckRedirect: redirectPolicy(DefaultMaxRedirects),
	}, nil
}

// redirectPolicy caps the redirect chain and refuses to leave HTTP.
func redirectPolicy(maxRedirects int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("%w: exceeded %d hops (last URL: %s)",
				ErrTooManyRedirects, maxRedirects, via[len(via)-1].URL.Redacted())
		}
		if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
			return fmt.Errorf("%w: %s", ErrCrossProtocolRedirect, req.URL.Scheme)
		}
		return nil
	}
}
