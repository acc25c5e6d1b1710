package bundlelib

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

var _ Transporter = (*SchemeRouter)(nil)

// SchemeRouter maps origin URL schemes to transporters and is itself a
// Transporter that dispatches on the origin's scheme.
// The zero value is not usable; use NewSchemeRouter to create one.
type SchemeRouter struct {
	mu     sync.RWMutex
	routes map[string]Transporter
}

// NewSchemeRouter creates a SchemeRouter with http, https, ftp and ftps
// routes. The HTTP routes use client.
func NewSchemeRouter(client *http.Client, userAgent string) *SchemeRouter {
	r := &SchemeRouter{
		routes: make(map[string]Transporter),
	}
	httpT := NewHTTPTransporter(client, userAgent)
	r.routes["http"] = httpT
	r.routes["https"] = httpT

	ftpT := NewFTPTransporter()
	r.routes["ftp"] = ftpT
	r.routes["ftps"] = ftpT
	return r
}

// Register adds or replaces the transporter for scheme.
func (r *SchemeRouter) Register(scheme string, t Transporter) {
	r.mu.Lock()
	r.routes[strings.ToLower(scheme)] = t
	r.mu.Unlock()
}

// Lookup returns the transporter registered for origin's scheme.
func (r *SchemeRouter) Lookup(origin string) (Transporter, error) {
	scheme := schemeOf(origin)
	if scheme == "" {
		return nil, fmt.Errorf("%w: no scheme in origin %q", ErrUnsupportedScheme, origin)
	}
	r.mu.RLock()
	t, ok := r.routes[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)",
			ErrUnsupportedScheme, scheme, strings.Join(r.Schemes(), ", "))
	}
	return t, nil
}

// Load dispatches to the transporter registered for origin's scheme.
func (r *SchemeRouter) Load(ctx context.Context, name, origin string, progress ProgressFunc) (*Bundle, error) {
	t, err := r.Lookup(origin)
	if err != nil {
		return nil, newTransportError("router", "lookup", name, err)
	}
	return t.Load(ctx, name, origin, progress)
}

// Schemes returns the registered schemes in ascending order.
func (r *SchemeRouter) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemes := make([]string, 0, len(r.routes))
	for s := range r.routes {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}
