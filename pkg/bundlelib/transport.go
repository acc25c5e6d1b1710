package bundlelib

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// ProgressFunc receives the fraction of a bundle transferred so far.
type ProgressFunc func(fraction float64)

// Transporter performs one bundle's byte transfer from an origin. Load
// must report monotonically non-decreasing progress in [0,1] and return
// failures as errors; it never panics on routine I/O problems.
type Transporter interface {
	Load(ctx context.Context, name, origin string, progress ProgressFunc) (*Bundle, error)
}

// TransportError is a structured error from a Transporter.
// Use errors.As to extract and inspect transport errors.
type TransportError struct {
	// Transport identifies the transporter (e.g., "disk", "http", "ftp").
	Transport string
	// Op is the step that failed (e.g., "open", "get", "parse").
	Op string
	// Bundle is the bundle name being transferred.
	Bundle string
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
// Format: "transport op bundle: cause"
func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s %s: %s", e.Transport, e.Op, e.Bundle, e.Cause.Error())
	}
	return fmt.Sprintf("%s %s %s", e.Transport, e.Op, e.Bundle)
}

// Unwrap returns the underlying cause, enabling errors.Is/As chaining.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

func newTransportError(transport, op, bundle string, cause error) *TransportError {
	return &TransportError{
		Transport: transport,
		Op:        op,
		Bundle:    bundle,
		Cause:     cause,
	}
}

// progressReader reports read progress against a known total and stops
// as soon as its context is cancelled.
type progressReader struct {
	ctx   context.Context
	r     io.Reader
	total int64
	read  int64
	last  float64
	fn    ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	if err := pr.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := pr.r.Read(p)
	pr.read += int64(n)
	if pr.total > 0 && n > 0 {
		pr.report(float64(pr.read) / float64(pr.total))
	}
	return n, err
}

func (pr *progressReader) report(f float64) {
	if pr.fn == nil {
		return
	}
	if f > 1 {
		f = 1
	}
	if f <= pr.last {
		return
	}
	pr.last = f
	pr.fn(f)
}

// maxPreallocSize caps the buffer reserved from an advertised size;
// larger payloads grow the buffer as they are read.
const maxPreallocSize = 64 << 20

// readWithProgress drains r, reporting progress when total is known and
// a final 1 once the payload has been read completely.
func readWithProgress(ctx context.Context, r io.Reader, total int64, fn ProgressFunc) ([]byte, error) {
	pr := &progressReader{ctx: ctx, r: r, total: total, fn: fn}
	var buf bytes.Buffer
	if total > 0 {
		buf.Grow(int(min(total, maxPreallocSize)))
	}
	if _, err := io.Copy(&buf, pr); err != nil {
		return nil, err
	}
	pr.report(1)
	return buf.Bytes(), nil
}

// joinOriginURL appends the bundle name to the path of a URL-shaped origin.
func joinOriginURL(origin, name string) (*url.URL, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid origin %q: scheme and host are required", origin)
	}
	joined := *u
	joined.Path = path.Join("/", u.Path, name)
	joined.RawPath = ""
	return &joined, nil
}

// schemeOf returns the lowercase scheme of origin, or "" for plain paths.
func schemeOf(origin string) string {
	i := strings.Index(origin, "://")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(origin[:i])
}
