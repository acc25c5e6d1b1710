package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"
	"github.com/warpdl/warpbundle/cmd/common"
)

var (
	outputPath string
	listAssets bool

	getFlags = withConfigFlags(
		cli.StringFlag{
			Name:        "output, o",
			Usage:       "write the asset to this file instead of stdout",
			Destination: &outputPath,
		},
		cli.BoolFlag{
			Name:        "list",
			Usage:       "list the bundle's assets instead of writing one",
			Destination: &listAssets,
		},
	)
)

func get(ctx *cli.Context) error {
	bundle := ctx.Args().First()
	asset := ctx.Args().Get(1)
	switch {
	case bundle == "help":
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	case bundle == "":
		return common.PrintErrWithCmdHelp(ctx, errors.New("no bundle name provided"))
	case asset == "" && !listAssets:
		return common.PrintErrWithCmdHelp(ctx, errors.New("no asset name provided"))
	}

	m, closeManager, err := newManager(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "get", "new_manager", err)
		return nil
	}
	defer closeManager()

	if err := waitManifest(m); err != nil {
		common.PrintRuntimeErr(ctx, "get", "manifest", err)
		return nil
	}
	st, err := m.LoadBundle(bundle)
	if err != nil {
		common.PrintRuntimeErr(ctx, "get", "load_bundle", err)
		return nil
	}
	if err := st.Wait(context.Background()); err != nil {
		common.PrintRuntimeErr(ctx, "get", "wait", err)
		return nil
	}

	if listAssets {
		b, ok := m.Bundle(bundle)
		if !ok {
			common.PrintRuntimeErr(ctx, "get", "bundle", fmt.Errorf("bundle %s is not loaded", bundle))
			return nil
		}
		txt := fmt.Sprintf("Assets of %s (%s):\n", b.Name(), humanize.Bytes(uint64(b.Size())))
		for _, name := range b.AssetNames() {
			data, _ := b.Asset(name)
			txt += fmt.Sprintf("\n  %-40s %s", common.Truncate(name, 40), humanize.Bytes(uint64(len(data))))
		}
		fmt.Println(txt)
		return nil
	}

	data, ok := m.GetAsset(bundle, asset)
	if !ok {
		common.PrintRuntimeErr(ctx, "get", "asset", fmt.Errorf("asset %q not found in bundle %s", asset, bundle))
		return nil
	}
	if outputPath == "" {
		os.Stdout.Write(data)
		return nil
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		common.PrintRuntimeErr(ctx, "get", "write", err)
		return nil
	}
	fmt.Printf("%s: wrote %s (%s)\n", ctx.App.HelpName, outputPath, humanize.Bytes(uint64(len(data))))
	return nil
}
