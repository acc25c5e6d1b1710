package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli"
	"github.com/warpdl/warpbundle/cmd/common"
)

var depsFlags = withConfigFlags()

func deps(ctx *cli.Context) error {
	bundle := ctx.Args().First()
	if bundle == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	} else if bundle == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no bundle name provided"))
	}

	m, closeManager, err := newManager(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "deps", "new_manager", err)
		return nil
	}
	defer closeManager()

	if err := waitManifest(m); err != nil {
		common.PrintRuntimeErr(ctx, "deps", "manifest", err)
		return nil
	}
	names, err := m.ResolveNames(bundle)
	if err != nil {
		common.PrintRuntimeErr(ctx, "deps", "resolve", err)
		return nil
	}

	txt := fmt.Sprintf("Bundles loaded for %s:", bundle)
	txt += "\n\n-------------------------------------"
	txt += "\n|Num|             Bundle            |"
	txt += "\n|---|-------------------------------|"
	for i, name := range names {
		name = common.Beaut(common.Truncate(name, 29), 29)
		txt += fmt.Sprintf("\n|%s| %s |", common.Beaut(fmt.Sprint(i+1), 3), name)
	}
	txt += "\n-------------------------------------"
	fmt.Println(txt)
	return nil
}
