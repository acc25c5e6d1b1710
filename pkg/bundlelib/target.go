package bundlelib

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Target selects where bundles are loaded from.
type Target int

const (
	TargetAssetBundleFolder Target = iota + 1
	TargetStreamingAssets
	TargetLocalServer
	TargetRemoteServer
	TargetOBB
	TargetOnDemandResources
	TargetAppSlicing
)

var targetNames = map[Target]string{
	TargetAssetBundleFolder: "asset-bundle-folder",
	TargetStreamingAssets:   "streaming-assets",
	TargetLocalServer:       "local-server",
	TargetRemoteServer:      "remote-server",
	TargetOBB:               "obb",
	TargetOnDemandResources: "on-demand-resources",
	TargetAppSlicing:        "app-slicing",
}

func (t Target) String() string {
	if s, ok := targetNames[t]; ok {
		return s
	}
	return fmt.Sprintf("target(%d)", int(t))
}

// Valid reports whether t is one of the known targets.
func (t Target) Valid() bool {
	_, ok := targetNames[t]
	return ok
}

// IsDisk reports whether bundles for t are read from a local directory.
func (t Target) IsDisk() bool {
	return t == TargetAssetBundleFolder || t == TargetStreamingAssets
}

// ParseTarget converts a target name such as "remote-server" to a Target.
// Underscores and case are ignored.
func ParseTarget(s string) (Target, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for t, name := range targetNames {
		if name == norm {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown target %q (known: %s)", ErrInvalidConfig, s, strings.Join(TargetNames(), ", "))
}

// TargetNames lists every target name in ascending order.
func TargetNames() []string {
	names := make([]string, 0, len(targetNames))
	for _, n := range targetNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MarshalYAML encodes the target by name.
func (t Target) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// UnmarshalYAML decodes a target name.
func (t *Target) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseTarget(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Origin is the resolved location bundles are transferred from.
type Origin struct {
	Target Target
	// Location is a directory for disk targets and a URL prefix otherwise.
	Location string
}

// IsDisk reports whether the origin is a local directory.
func (o Origin) IsDisk() bool {
	return o.Target.IsDisk()
}

// ResolveOrigin maps the configured target to its origin. Disk targets
// resolve to a directory (the bundles folder is split per platform);
// every other target resolves to a URL. A target without a configured
// location has no transporter.
func ResolveOrigin(cfg Config, platform string) (Origin, error) {
	var loc string
	switch cfg.Target {
	case TargetAssetBundleFolder:
		if cfg.BundlesFolder != "" {
			loc = filepath.Join(cfg.BundlesFolder, platform)
		}
	case TargetStreamingAssets:
		loc = cfg.StreamingFolder
	case TargetLocalServer:
		loc = cfg.LocalServerURL
	case TargetRemoteServer:
		loc = cfg.RemoteURL
	case TargetOBB, TargetOnDemandResources, TargetAppSlicing:
		loc = cfg.PackagedURL
	default:
		return Origin{}, fmt.Errorf("%w: %s", ErrNoTransporter, cfg.Target)
	}
	if loc == "" {
		return Origin{}, fmt.Errorf("%w: %s has no origin configured", ErrNoTransporter, cfg.Target)
	}
	if !cfg.Target.IsDisk() && schemeOf(loc) == "" {
		return Origin{}, fmt.Errorf("%w: %s origin %q is not a URL", ErrNoTransporter, cfg.Target, loc)
	}
	return Origin{Target: cfg.Target, Location: loc}, nil
}
