// Package common provides the environment variable names shared by the
// warpbundle command and its configuration flags.
package common

// Environment variable names for configuration.
const (
	// ConfigEnv points at a YAML configuration file.
	ConfigEnv = "WARPBUNDLE_CONFIG"

	// TargetEnv selects the origin target (e.g. "remote-server").
	TargetEnv = "WARPBUNDLE_TARGET"

	// BundlesFolderEnv is the build output folder holding per-platform bundles.
	BundlesFolderEnv = "WARPBUNDLE_BUNDLES_FOLDER"

	// StreamingFolderEnv is the streaming assets folder.
	StreamingFolderEnv = "WARPBUNDLE_STREAMING_FOLDER"

	// ServerURLEnv is the local bundle server URL.
	ServerURLEnv = "WARPBUNDLE_SERVER_URL"

	// RemoteURLEnv is the remote bundle origin URL.
	RemoteURLEnv = "WARPBUNDLE_REMOTE_URL"

	// PackagedURLEnv is the origin for platform-packaged targets.
	PackagedURLEnv = "WARPBUNDLE_PACKAGED_URL"

	// PlatformEnv overrides the detected platform name.
	PlatformEnv = "WARPBUNDLE_PLATFORM"

	// StreamsEnv is the number of concurrent transfers.
	StreamsEnv = "WARPBUNDLE_STREAMS"

	// ProxyEnv is the proxy URL used for HTTP origins.
	ProxyEnv = "WARPBUNDLE_PROXY"

	// SSHKeyEnv is the private key used for sftp origins.
	SSHKeyEnv = "WARPBUNDLE_SSH_KEY"

	// MetricsAddrEnv is the listen address for the metrics endpoint.
	MetricsAddrEnv = "WARPBUNDLE_METRICS_ADDR"

	// DebugEnv is the environment variable to enable debug logging.
	DebugEnv = "WARPBUNDLE_DEBUG"
)
