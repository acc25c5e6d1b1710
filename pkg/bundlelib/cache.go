package bundlelib

import "github.com/warpdl/warpbundle/pkg/logger"

// Cache maps bundle names to loaded bundles. It is the single source of
// truth for whether a bundle is available. Entries are write-once: the
// first writer wins and later inserts for the same name are rejected.
type Cache struct {
	entries *VMap[string, *Bundle]
	l       logger.Logger
}

// NewCache creates an empty cache that reports rejected inserts to l.
func NewCache(l logger.Logger) *Cache {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Cache{
		entries: NewVMap[string, *Bundle](),
		l:       l,
	}
}

// Add stores b under name. A second insert for an existing name is
// rejected, logged, and reported as false.
func (c *Cache) Add(name string, b *Bundle) bool {
	if c.entries.SetIfAbsent(name, b) {
		return true
	}
	c.l.Error("bundle cache already contains %s; keeping the first entry", name)
	return false
}

// Get returns the bundle cached under name.
func (c *Cache) Get(name string) (*Bundle, bool) {
	return c.entries.Get(name)
}

// Has reports whether name is cached.
func (c *Cache) Has(name string) bool {
	_, ok := c.entries.Get(name)
	return ok
}

// Len returns the number of cached bundles.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Names returns the cached bundle names in ascending order.
func (c *Cache) Names() []string {
	return SortedKeys(c.entries)
}
