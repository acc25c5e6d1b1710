package bundlelib

import "strings"

// VariantDelimiter separates a bundle's base name from its variant tag.
const VariantDelimiter = "."

// SplitName splits name at the first VariantDelimiter.
// ok is false when the name carries no variant.
func SplitName(name string) (base, variant string, ok bool) {
	return strings.Cut(name, VariantDelimiter)
}

// JoinName builds base.variant, or base when variant is empty.
func JoinName(base, variant string) string {
	if variant == "" {
		return base
	}
	return base + VariantDelimiter + variant
}

// HasVariant reports whether name carries a variant suffix.
func HasVariant(name string) bool {
	_, _, ok := SplitName(name)
	return ok
}

// Dedupe returns names without repeats, keeping the first occurrence order.
func Dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
