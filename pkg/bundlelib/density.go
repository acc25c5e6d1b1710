package bundlelib

import "sort"

// Resolution variant tags.
const (
	OneX   = "1x"
	TwoX   = "2x"
	FourX  = "4x"
	EightX = "8x"
)

// DefaultBaseDPI is the density at which one density-independent pixel
// equals one physical pixel.
const DefaultBaseDPI = 160

// ResolutionVariant is one row of the density table: devices whose DP is
// below MaxDP use the variant Name.
type ResolutionVariant struct {
	Name  string  `yaml:"name"`
	MaxDP float64 `yaml:"max_dp"`
}

// DefaultResolutionVariants returns the 1x/2x/4x table.
func DefaultResolutionVariants() []ResolutionVariant {
	return []ResolutionVariant{
		{Name: OneX, MaxDP: 1},
		{Name: TwoX, MaxDP: 2},
		{Name: FourX, MaxDP: 4},
	}
}

// DensityResolver picks a resolution variant for a device density.
type DensityResolver struct {
	variants  []ResolutionVariant
	baseDPI   float64
	deviceDPI float64
}

// NewDensityResolver sorts a copy of variants by MaxDP.
func NewDensityResolver(baseDPI, deviceDPI float64, variants []ResolutionVariant) *DensityResolver {
	sorted := append([]ResolutionVariant(nil), variants...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MaxDP < sorted[j].MaxDP
	})
	if baseDPI <= 0 {
		baseDPI = DefaultBaseDPI
	}
	if deviceDPI <= 0 {
		deviceDPI = baseDPI
	}
	return &DensityResolver{variants: sorted, baseDPI: baseDPI, deviceDPI: deviceDPI}
}

// DP is the device density in density-independent pixels.
func (d *DensityResolver) DP() float64 {
	return d.deviceDPI / d.baseDPI
}

// Resolve returns the first variant whose MaxDP is strictly greater than
// the device DP, or the highest variant when none is.
func (d *DensityResolver) Resolve() string {
	if len(d.variants) == 0 {
		return ""
	}
	dp := d.DP()
	for _, v := range d.variants {
		if dp < v.MaxDP {
			return v.Name
		}
	}
	return d.variants[len(d.variants)-1].Name
}

// Tags returns the variant names in MaxDP order.
func (d *DensityResolver) Tags() []string {
	tags := make([]string, len(d.variants))
	for i, v := range d.variants {
		tags[i] = v.Name
	}
	return tags
}
