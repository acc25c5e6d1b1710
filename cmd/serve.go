package cmd

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/warpdl/warpbundle/cmd/common"
	"github.com/warpdl/warpbundle/internal/server"
	"github.com/warpdl/warpbundle/pkg/bundlelib"
)

var (
	listenAddr string

	serveFlags = withConfigFlags(
		cli.StringFlag{
			Name:        "listen",
			Usage:       "address to listen on (default: the host of the local server URL)",
			Destination: &listenAddr,
		},
	)
)

// newServeContext returns the context the serve command runs under.
var newServeContext = func() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serve(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	cfg, err := buildConfig(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "serve", "config", err)
		return nil
	}
	addr := listenAddr
	if addr == "" {
		addr, err = hostOf(cfg.LocalServerURL)
		if err != nil {
			common.PrintRuntimeErr(ctx, "serve", "listen_addr", err)
			return nil
		}
	}

	fs := afero.NewOsFs()
	root, err := filepath.Abs(filepath.Join(cfg.BundlesFolder, cfg.PlatformName()))
	if err != nil {
		common.PrintRuntimeErr(ctx, "serve", "root", err)
		return nil
	}
	if ok, _ := afero.DirExists(fs, root); !ok {
		common.PrintRuntimeErr(ctx, "serve", "root", fmt.Errorf("bundle folder %s does not exist", root))
		return nil
	}

	sctx, stop := newServeContext()
	defer stop()
	s := server.NewServer(newLogger(ctx), fs, root, addr)
	bound, err := s.Listen()
	if err != nil {
		common.PrintRuntimeErr(ctx, "serve", "listen", err)
		return nil
	}
	fmt.Printf("%s: serving %s on http://%s/\n", ctx.App.HelpName, root, bound)
	if err := s.Start(sctx); err != nil {
		common.PrintRuntimeErr(ctx, "serve", "start", err)
	}
	return nil
}

// hostOf returns the host:port of a local server URL.
func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: local server URL %q has no host", bundlelib.ErrInvalidConfig, rawURL)
	}
	if u.Port() == "" {
		return net.JoinHostPort(u.Hostname(), "80"), nil
	}
	return u.Host, nil
}
