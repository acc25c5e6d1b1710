package bundlelib

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultStreams is the default transport slot budget.
	DefaultStreams = 4
	// DefaultTickInterval is how often the manager loop rescans active operations.
	DefaultTickInterval = 50 * time.Millisecond
	// DefaultLocalServerURL is where the serve command listens by default.
	DefaultLocalServerURL = "http://127.0.0.1:7888/"
)

// Config configures a Manager.
type Config struct {
	// Target selects the origin bundles are loaded from.
	Target Target `yaml:"target"`
	// BundlesFolder is the build output folder; bundles live in a
	// per-platform subdirectory.
	BundlesFolder   string `yaml:"bundles_folder"`
	StreamingFolder string `yaml:"streaming_folder"`
	LocalServerURL  string `yaml:"local_server_url"`
	RemoteURL       string `yaml:"remote_url"`
	// PackagedURL serves the platform-packaged delivery targets
	// (obb, on-demand-resources, app-slicing).
	PackagedURL string `yaml:"packaged_url"`
	// Platform overrides the detected platform name.
	Platform string `yaml:"platform"`

	// Streams is the number of concurrent transfers.
	Streams        int           `yaml:"streams"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	BaseDPI            float64             `yaml:"base_dpi"`
	DeviceDPI          float64             `yaml:"device_dpi"`
	ResolutionVariants []ResolutionVariant `yaml:"resolution_variants"`
	// EditorVariant forces every variant-bearing name to this tag.
	EditorVariant string `yaml:"editor_variant"`

	ProxyURL       string `yaml:"proxy_url"`
	UserAgent      string `yaml:"user_agent"`
	SSHKeyPath     string `yaml:"ssh_key_path"`
	KnownHostsPath string `yaml:"known_hosts_path"`
}

// DefaultConfig returns a configuration loading from ./AssetBundles.
func DefaultConfig() Config {
	return Config{
		Target:             TargetAssetBundleFolder,
		BundlesFolder:      "AssetBundles",
		StreamingFolder:    "StreamingAssets",
		LocalServerURL:     DefaultLocalServerURL,
		Streams:            DefaultStreams,
		TickInterval:       DefaultTickInterval,
		BaseDPI:            DefaultBaseDPI,
		ResolutionVariants: DefaultResolutionVariants(),
		KnownHostsPath:     DefaultKnownHostsPath(),
	}
}

// DefaultKnownHostsPath is the TOFU known_hosts file under the user
// config directory.
func DefaultKnownHostsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "warpbundle", "known_hosts")
}

// LoadConfigFile reads a YAML configuration on top of DefaultConfig.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// PlatformName returns the configured platform or the detected one.
func (c Config) PlatformName() string {
	if c.Platform != "" {
		return c.Platform
	}
	return PlatformName()
}

// Validate checks the configuration for values a Manager cannot run with.
func (c Config) Validate() error {
	if !c.Target.Valid() {
		return fmt.Errorf("%w: unknown target %d", ErrInvalidConfig, int(c.Target))
	}
	if c.Streams < 1 {
		return fmt.Errorf("%w: streams must be at least 1, got %d", ErrInvalidConfig, c.Streams)
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("%w: negative tick interval", ErrInvalidConfig)
	}
	if c.AttemptTimeout < 0 {
		return fmt.Errorf("%w: negative attempt timeout", ErrInvalidConfig)
	}
	if c.BaseDPI < 0 || c.DeviceDPI < 0 {
		return fmt.Errorf("%w: DPI values must not be negative", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.ResolutionVariants))
	for _, v := range c.ResolutionVariants {
		if v.Name == "" || v.MaxDP <= 0 {
			return fmt.Errorf("%w: resolution variant %q needs a name and a positive max_dp", ErrInvalidConfig, v.Name)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate resolution variant %q", ErrInvalidConfig, v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}
