package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/urfave/cli"
	"github.com/warpdl/warpbundle/common"
	"github.com/warpdl/warpbundle/pkg/bundlelib"
	"github.com/warpdl/warpbundle/pkg/logger"
)

// configFlags are accepted by every command that builds a Manager. Set
// flags override values from the configuration file.
var configFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "config, c",
		Usage:  "read configuration from this YAML file",
		EnvVar: common.ConfigEnv,
	},
	cli.StringFlag{
		Name:   "target, t",
		Usage:  "origin target: asset-bundle-folder, streaming-assets, local-server, remote-server, obb, on-demand-resources or app-slicing",
		EnvVar: common.TargetEnv,
	},
	cli.StringFlag{
		Name:   "bundles-folder",
		Usage:  "build output folder holding one sub-folder per platform (default: AssetBundles)",
		EnvVar: common.BundlesFolderEnv,
	},
	cli.StringFlag{
		Name:   "streaming-folder",
		Usage:  "streaming assets folder (default: StreamingAssets)",
		EnvVar: common.StreamingFolderEnv,
	},
	cli.StringFlag{
		Name:   "server-url",
		Usage:  "local bundle server URL (default: " + bundlelib.DefaultLocalServerURL + ")",
		EnvVar: common.ServerURLEnv,
	},
	cli.StringFlag{
		Name:   "remote-url",
		Usage:  "remote origin URL (http, https, ftp, ftps, sftp or gs)",
		EnvVar: common.RemoteURLEnv,
	},
	cli.StringFlag{
		Name:   "packaged-url",
		Usage:  "origin URL for obb, on-demand-resources and app-slicing targets",
		EnvVar: common.PackagedURLEnv,
	},
	cli.StringFlag{
		Name:   "platform",
		Usage:  "platform name selecting the manifest bundle (default: detected)",
		EnvVar: common.PlatformEnv,
	},
	cli.IntFlag{
		Name:   "streams, s",
		Usage:  "number of concurrent transfers",
		Value:  bundlelib.DefaultStreams,
		EnvVar: common.StreamsEnv,
	},
	cli.DurationFlag{
		Name:  "timeout",
		Usage: "time limit of a single transfer attempt (0 disables)",
	},
	cli.Float64Flag{
		Name:  "device-dpi",
		Usage: "device DPI used to pick resolution variants (default: base DPI)",
	},
	cli.StringFlag{
		Name:  "editor-variant",
		Usage: "force every variant bundle to this tag",
	},
	cli.StringFlag{
		Name:   "proxy, x",
		Usage:  "proxy URL for http origins (http, https or socks5)",
		EnvVar: common.ProxyEnv,
	},
	cli.StringFlag{
		Name:  "user-agent",
		Usage: "HTTP user agent sent to http origins, or one of: warpbundle, firefox, chrome",
	},
	cli.StringFlag{
		Name:   "ssh-key",
		Usage:  "private key for sftp origins (default: ~/.ssh/id_ed25519 or ~/.ssh/id_rsa)",
		EnvVar: common.SSHKeyEnv,
	},
	cli.BoolFlag{
		Name:   "debug, d",
		Usage:  "enable debug logging",
		EnvVar: common.DebugEnv,
	},
}

// withConfigFlags returns flags followed by configFlags.
func withConfigFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags, configFlags...)
}

// buildConfig reads the configuration file, if any, and applies the
// flags that were set.
func buildConfig(ctx *cli.Context) (bundlelib.Config, error) {
	cfg := bundlelib.DefaultConfig()
	if path := ctx.String("config"); path != "" {
		var err error
		cfg, err = bundlelib.LoadConfigFile(path)
		if err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet("target") {
		t, err := bundlelib.ParseTarget(ctx.String("target"))
		if err != nil {
			return cfg, err
		}
		cfg.Target = t
	}
	strs := []struct {
		flag string
		dst  *string
	}{
		{"bundles-folder", &cfg.BundlesFolder},
		{"streaming-folder", &cfg.StreamingFolder},
		{"server-url", &cfg.LocalServerURL},
		{"remote-url", &cfg.RemoteURL},
		{"packaged-url", &cfg.PackagedURL},
		{"platform", &cfg.Platform},
		{"editor-variant", &cfg.EditorVariant},
		{"proxy", &cfg.ProxyURL},
		{"user-agent", &cfg.UserAgent},
		{"ssh-key", &cfg.SSHKeyPath},
	}
	for _, s := range strs {
		if ctx.IsSet(s.flag) {
			*s.dst = ctx.String(s.flag)
		}
	}
	if ctx.IsSet("streams") {
		cfg.Streams = ctx.Int("streams")
	}
	if ctx.IsSet("timeout") {
		cfg.AttemptTimeout = ctx.Duration("timeout")
	}
	if ctx.IsSet("device-dpi") {
		cfg.DeviceDPI = ctx.Float64("device-dpi")
	}
	cfg.UserAgent = getUserAgent(cfg.UserAgent)
	return cfg, cfg.Validate()
}

func newLogger(ctx *cli.Context) logger.Logger {
	return logger.NewStandardLogger(
		log.New(os.Stderr, ctx.App.HelpName+": ", log.LstdFlags),
		ctx.Bool("debug"),
	)
}

// newManager builds a Manager from the command's flags. The returned
// function closes the Manager and any storage client it needed.
func newManager(ctx *cli.Context, opts ...bundlelib.Option) (*bundlelib.Manager, func(), error) {
	cfg, err := buildConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	closers := []func() error{}
	origin, err := bundlelib.ResolveOrigin(cfg, cfg.PlatformName())
	if err == nil && strings.HasPrefix(strings.ToLower(origin.Location), "gs://") {
		client, err := storage.NewClient(context.Background())
		if err != nil {
			return nil, nil, fmt.Errorf("gcs client: %w", err)
		}
		closers = append(closers, client.Close)
		opts = append(opts, bundlelib.WithRoute("gs", bundlelib.NewGCSTransporter(client)))
	}
	opts = append([]bundlelib.Option{bundlelib.WithLogger(newLogger(ctx))}, opts...)
	m, err := bundlelib.NewManager(cfg, opts...)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, err
	}
	closers = append([]func() error{m.Close}, closers...)
	return m, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

// waitManifest loads the manifest and waits for it.
func waitManifest(m *bundlelib.Manager) error {
	st, err := m.LoadManifest()
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(context.Background(), DEF_MANIFEST_TIMEOUT)
	defer cancel()
	if err := st.Wait(wctx); err != nil {
		return fmt.Errorf("manifest %s: %w", m.Platform(), err)
	}
	return nil
}
