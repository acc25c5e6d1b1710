package bundlelib

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

var _ Transporter = (*GCSTransporter)(nil)

// GCSTransporter streams bundles from Google Cloud Storage. Origins have
// the form gs://bucket/prefix/.
type GCSTransporter struct {
	client *storage.Client
}

// NewGCSTransporter wraps an existing storage client.
func NewGCSTransporter(client *storage.Client) *GCSTransporter {
	return &GCSTransporter{client: client}
}

// Load reads the object prefix/name from the origin bucket.
func (t *GCSTransporter) Load(ctx context.Context, name, origin string, progress ProgressFunc) (*Bundle, error) {
	u, err := joinOriginURL(origin, name)
	if err != nil {
		return nil, newTransportError("gcs", "url", name, err)
	}
	if !strings.EqualFold(u.Scheme, "gs") {
		return nil, newTransportError("gcs", "url", name, fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme))
	}
	object := strings.TrimPrefix(u.Path, "/")

	r, err := t.client.Bucket(u.Host).Object(object).NewReader(ctx)
	if err != nil {
		return nil, newTransportError("gcs", "open", name, err)
	}
	defer r.Close()

	data, err := readWithProgress(ctx, r, r.Attrs.Size, progress)
	if err != nil {
		return nil, newTransportError("gcs", "read", name, err)
	}
	b, err := ParseBundle(name, data)
	if err != nil {
		return nil, newTransportError("gcs", "parse", name, err)
	}
	return b, nil
}
