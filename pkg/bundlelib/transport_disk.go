package bundlelib

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"
)

var _ Transporter = (*DiskTransporter)(nil)

// DiskTransporter loads bundles from a directory on a filesystem.
// The origin is the directory; the bundle is the file named after it.
type DiskTransporter struct {
	fs afero.Fs
}

// NewDiskTransporter creates a DiskTransporter over fs. A nil fs selects
// the operating system filesystem.
func NewDiskTransporter(fs afero.Fs) *DiskTransporter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DiskTransporter{fs: fs}
}

// Load reads origin/name and parses it. A name that leaves origin, a
// missing file or content that is not a valid bundle fails.
func (t *DiskTransporter) Load(ctx context.Context, name, origin string, progress ProgressFunc) (*Bundle, error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return nil, newTransportError("disk", "open", name, ErrInvalidName)
	}
	f, err := t.fs.Open(filepath.Join(origin, rel))
	if err != nil {
		return nil, newTransportError("disk", "open", name, err)
	}
	defer f.Close()

	var size int64
	if fi, err := f.Stat(); err == nil {
		if fi.IsDir() {
			return nil, newTransportError("disk", "open", name, ErrInvalidBundle)
		}
		size = fi.Size()
	}
	data, err := readWithProgress(ctx, f, size, progress)
	if err != nil {
		return nil, newTransportError("disk", "read", name, err)
	}
	b, err := ParseBundle(name, data)
	if err != nil {
		return nil, newTransportError("disk", "parse", name, err)
	}
	return b, nil
}
