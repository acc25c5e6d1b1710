package bundlelib

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zip"
)

// Bundle is a loaded content package: a named set of assets read from a
// zip container. A Bundle is immutable once parsed.
type Bundle struct {
	name   string
	size   int64
	assets map[string][]byte
}

// ParseBundle decodes payload as a bundle named name. Content that is not
// a readable zip container fails with ErrInvalidBundle.
func ParseBundle(name string, payload []byte) (*Bundle, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBundle, name, err)
	}
	b := &Bundle{
		name:   name,
		size:   int64(len(payload)),
		assets: make(map[string][]byte, len(zr.File)),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: asset %s: %v", ErrInvalidBundle, name, f.Name, err)
		}
		b.assets[f.Name] = data
	}
	return b, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// WriteBundle encodes assets as a bundle container into w.
func WriteBundle(w io.Writer, assets map[string][]byte) error {
	zw := zip.NewWriter(w)
	names := make([]string, 0, len(assets))
	for n := range assets {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fw, err := zw.Create(n)
		if err != nil {
			return err
		}
		if _, err := fw.Write(assets[n]); err != nil {
			return err
		}
	}
	return zw.Close()
}

// EncodeBundle is WriteBundle into a byte slice.
func EncodeBundle(assets map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteBundle(&buf, assets); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Name returns the resolved bundle name the bundle was loaded under.
func (b *Bundle) Name() string {
	return b.name
}

// Size returns the payload size in bytes.
func (b *Bundle) Size() int64 {
	return b.size
}

// Asset returns the contents of the named asset.
func (b *Bundle) Asset(name string) ([]byte, bool) {
	data, ok := b.assets[name]
	return data, ok
}

// AssetNames lists the bundle's assets in ascending order.
func (b *Bundle) AssetNames() []string {
	names := make([]string, 0, len(b.assets))
	for n := range b.assets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
