package bundlelib

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// ManifestAssetName is the asset inside the platform bundle that holds the manifest.
const ManifestAssetName = "AssetBundleManifest"

// DependencyGraph is what the Manager needs from a manifest.
type DependencyGraph interface {
	// AllDependencies returns the transitive dependencies of name, excluding name.
	AllDependencies(name string) []string
	// AllNamesWithVariant returns every bundle name that carries a variant.
	AllNamesWithVariant() []string
}

// ManifestEntry describes one bundle in the manifest document.
type ManifestEntry struct {
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// Manifest is the dependency map for all bundles. It is read-only after parsing.
type Manifest struct {
	Bundles map[string]ManifestEntry `yaml:"bundles"`
}

var _ DependencyGraph = (*Manifest)(nil)

// ParseManifest decodes a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Bundles == nil {
		m.Bundles = map[string]ManifestEntry{}
	}
	return &m, nil
}

// ManifestFromBundle extracts and parses the manifest asset of a platform bundle.
func ManifestFromBundle(b *Bundle) (*Manifest, error) {
	data, ok := b.Asset(ManifestAssetName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrManifestAssetMissing, b.Name())
	}
	return ParseManifest(data)
}

// AllDependencies walks the dependency graph depth-first and returns every
// bundle name reachable from name, dependencies before their dependants.
// Cycles are tolerated.
func (m *Manifest) AllDependencies(name string) []string {
	seen := map[string]bool{name: true}
	var out []string
	var walk func(string)
	walk = func(n string) {
		for _, dep := range m.Bundles[n].Dependencies {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			walk(dep)
			out = append(out, dep)
		}
	}
	walk(name)
	return out
}

// AllNamesWithVariant returns, sorted, the names of every bundle with a variant suffix.
func (m *Manifest) AllNamesWithVariant() []string {
	var out []string
	for n := range m.Bundles {
		if HasVariant(n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Has reports whether the manifest lists name.
func (m *Manifest) Has(name string) bool {
	_, ok := m.Bundles[name]
	return ok
}
