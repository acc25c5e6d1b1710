package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/warpdl/warpbundle/cmd/common"
	envs "github.com/warpdl/warpbundle/common"
	"github.com/warpdl/warpbundle/pkg/bundlelib"
	"golang.org/x/sync/errgroup"
)

var (
	metricsAddr string
	quiet       bool

	loadFlags = withConfigFlags(
		cli.StringFlag{
			Name:        "metrics-addr",
			Usage:       "expose Prometheus metrics on this address while loading",
			EnvVar:      envs.MetricsAddrEnv,
			Destination: &metricsAddr,
		},
		cli.BoolFlag{
			Name:        "quiet, q",
			Usage:       "do not draw progress bars",
			Destination: &quiet,
		},
	)
)

func load(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if !ctx.Args().Present() {
		return common.PrintErrWithCmdHelp(
			ctx,
			errors.New("no bundle name provided"),
		)
	}

	var (
		opts []bundlelib.Option
		reg  *prometheus.Registry
	)
	if metricsAddr != "" {
		reg = prometheus.NewRegistry()
		opts = append(opts, bundlelib.WithMetrics(bundlelib.NewMetrics(reg)))
	}
	m, closeManager, err := newManager(ctx, opts...)
	if err != nil {
		common.PrintRuntimeErr(ctx, "load", "new_manager", err)
		return nil
	}
	defer closeManager()

	if reg != nil {
		addr, stop, err := serveMetrics(metricsAddr, reg)
		if err != nil {
			common.PrintRuntimeErr(ctx, "load", "metrics", err)
			return nil
		}
		defer stop()
		fmt.Printf("%s: serving metrics on http://%s/metrics\n", ctx.App.HelpName, addr)
	}

	if err := waitManifest(m); err != nil {
		common.PrintRuntimeErr(ctx, "load", "manifest", err)
		return nil
	}
	ms, err := m.LoadBundles(ctx.Args()...)
	if err != nil {
		common.PrintRuntimeErr(ctx, "load", "load_bundles", err)
		return nil
	}

	var out io.Writer = os.Stdout
	if quiet {
		out = io.Discard
	}
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(out))
	var eg errgroup.Group
	for _, st := range ms.Statuses() {
		st := st
		names := st.Names()
		bar := common.InitBundleBar(p, names[len(names)-1], len(names))
		eg.Go(func() error {
			return trackStatus(st, bar)
		})
	}
	err = eg.Wait()
	p.Wait()
	if err != nil {
		common.PrintRuntimeErr(ctx, "load", "bundles", errors.New(ms.ErrorText()))
		return nil
	}

	var size int64
	cache := m.Cache()
	names := cache.Names()
	for _, name := range names {
		if b, ok := cache.Get(name); ok {
			size += b.Size()
		}
	}
	fmt.Printf("%s: loaded %d bundles (%s)\n", ctx.App.HelpName, len(names), humanize.Bytes(uint64(size)))
	return nil
}

// trackStatus mirrors st on bar until the operation completes.
func trackStatus(st *bundlelib.LoadStatus, bar *mpb.Bar) error {
	ticker := time.NewTicker(DEF_POLL_INTERVAL)
	defer ticker.Stop()
	for {
		select {
		case <-st.Done():
			if st.Failed() {
				bar.Abort(false)
				return st.Err()
			}
			common.SetBarProgress(bar, 1)
			return nil
		case <-ticker.C:
			common.SetBarProgress(bar, st.Progress())
		}
	}
}
