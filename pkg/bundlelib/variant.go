package bundlelib

import (
	"sync"

	"github.com/warpdl/warpbundle/pkg/logger"
)

// VariantResolver rewrites bundle names to the concrete variants to fetch.
type VariantResolver interface {
	// RemapNames rewrites names in place and returns the slice.
	RemapNames(names []string) []string
	// RegisterKnownVariants is called once with every variant-bearing
	// bundle name from the manifest.
	RegisterKnownVariants(names []string)
}

// VariantFunc returns the variant tag to load for a bundle.
type VariantFunc func() string

var _ VariantResolver = (*VariantsResolver)(nil)

// VariantsResolver binds base names to variant functions by the tag the
// manifest lists them with.
type VariantsResolver struct {
	mu            sync.RWMutex
	remappers     map[string]VariantFunc
	bound         map[string]VariantFunc
	density       *DensityResolver
	editorVariant string
	l             logger.Logger
}

// NewVariantsResolver creates a resolver from cfg's density settings and
// editor override. No tags are registered yet.
func NewVariantsResolver(cfg Config, l logger.Logger) *VariantsResolver {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &VariantsResolver{
		remappers:     make(map[string]VariantFunc),
		bound:         make(map[string]VariantFunc),
		density:       NewDensityResolver(cfg.BaseDPI, cfg.DeviceDPI, cfg.ResolutionVariants),
		editorVariant: cfg.EditorVariant,
		l:             l,
	}
}

// RegisterVariant registers fn for every tag, replacing earlier registrations.
func (r *VariantsResolver) RegisterVariant(fn VariantFunc, tags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tag := range tags {
		r.remappers[tag] = fn
	}
}

// RegisterResolutionVariants registers the density resolver for every
// tag of the resolution table.
func (r *VariantsResolver) RegisterResolutionVariants() {
	r.RegisterVariant(r.density.Resolve, r.density.Tags()...)
}

// RegisterKnownVariants binds each base name to the function registered
// for its tag. Tags without a function are reported and left unbound.
func (r *VariantsResolver) RegisterKnownVariants(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		base, tag, ok := SplitName(name)
		if !ok {
			continue
		}
		if _, done := r.bound[base]; done {
			continue
		}
		fn, ok := r.remappers[tag]
		if !ok {
			r.l.Warning("no variant resolver registered for tag %q on bundle %s; it will load unresolved", tag, name)
			continue
		}
		r.l.Debug("bound variant resolver for %s (tag %s)", base, tag)
		r.bound[base] = fn
	}
}

// RemapName returns the concrete name to fetch for name. Names without a
// variant and names whose base is unbound are returned unchanged.
func (r *VariantsResolver) RemapName(name string) string {
	base, _, ok := SplitName(name)
	if !ok {
		return name
	}
	if r.editorVariant != "" {
		return JoinName(base, r.editorVariant)
	}
	r.mu.RLock()
	fn, bound := r.bound[base]
	r.mu.RUnlock()
	if !bound {
		r.l.Debug("variant of %s is not resolvable; keeping %s", base, name)
		return name
	}
	return JoinName(base, fn())
}

// RemapNames remaps every entry of names in place.
func (r *VariantsResolver) RemapNames(names []string) []string {
	for i, n := range names {
		names[i] = r.RemapName(n)
	}
	return names
}

// IsBound reports whether base has a variant function.
func (r *VariantsResolver) IsBound(base string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bound[base]
	return ok
}

// Density returns the resolver used for resolution variants.
func (r *VariantsResolver) Density() *DensityResolver {
	return r.density
}
