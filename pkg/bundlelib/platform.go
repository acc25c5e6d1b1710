package bundlelib

import "runtime"

// UnknownPlatform is returned for operating systems without a bundle platform.
const UnknownPlatform = "N/A"

var platformNames = map[string]string{
	"android": "Android",
	"ios":     "iOS",
	"darwin":  "macOS",
	"windows": "Windows",
	"linux":   "Linux",
	"js":      "WebGL",
	"wasip1":  "WebGL",
}

// PlatformName returns the platform identifier of the running process.
// It names the manifest bundle and the per-platform bundles folder.
func PlatformName() string {
	return platformFor(runtime.GOOS)
}

func platformFor(goos string) string {
	if p, ok := platformNames[goos]; ok {
		return p
	}
	return UnknownPlatform
}
