package common

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
)

func newTestContext() *cli.Context {
	app := cli.NewApp()
	app.Name = "warpbundle"
	app.HelpName = "warpbundle"
	app.Version = "test"
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	ctx := cli.NewContext(app, set, nil)
	ctx.Command = cli.Command{Name: "cmd"}
	return ctx
}

func TestInitBundleBar(t *testing.T) {
	p := mpb.New(mpb.WithOutput(io.Discard))
	bar := InitBundleBar(p, "ui", 3)
	if bar == nil {
		t.Fatal("expected bar")
	}
	SetBarProgress(bar, 0.5)
	if got := bar.Current(); got != BarScale/2 {
		t.Fatalf("expected %d, got %d", BarScale/2, got)
	}
	SetBarProgress(bar, 0.25)
	if got := bar.Current(); got != BarScale/2 {
		t.Fatalf("bar moved backwards to %d", got)
	}
	SetBarProgress(bar, 7)
	p.Wait()
	if !bar.Completed() {
		t.Fatal("expected bar to complete at full progress")
	}
}

func TestBeaut(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hi", 4, " hi "},
		{"hi", 5, " hi  "},
		{"toolong", 3, "toolong"},
	}
	for _, tt := range tests {
		if got := Beaut(tt.in, tt.n); got != tt.want {
			t.Errorf("Beaut(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("environment.hd", 10); got != "environ..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("ui", 10); got != "ui" {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestPrintRuntimeErr(t *testing.T) {
	PrintRuntimeErr(nil, "cmd", "action", nil)
	PrintRuntimeErr(newTestContext(), "cmd", "action", errors.New("boom"))
}

func TestPrintErrWithHelp(t *testing.T) {
	ctx := newTestContext()
	called := false
	orig := showAppHelpAndExit
	showAppHelpAndExit = func(*cli.Context, int) {
		called = true
	}
	defer func() { showAppHelpAndExit = orig }()

	if err := PrintErrWithHelp(ctx, errors.New("oops")); err != nil {
		t.Fatalf("PrintErrWithHelp: %v", err)
	}
	if !called {
		t.Fatalf("expected help to be called")
	}
}

func TestPrintErrWithCmdHelp(t *testing.T) {
	ctx := newTestContext()
	var shown string
	orig := showCommandHelp
	showCommandHelp = func(_ *cli.Context, name string) error {
		shown = name
		return nil
	}
	defer func() { showCommandHelp = orig }()

	if err := PrintErrWithCmdHelp(ctx, errors.New("oops")); err != nil {
		t.Fatalf("PrintErrWithCmdHelp: %v", err)
	}
	if shown != "cmd" {
		t.Fatalf("expected help for cmd, got %q", shown)
	}
}

func TestPrintErrWithCmdHelp_Nil(t *testing.T) {
	if err := PrintErrWithCmdHelp(newTestContext(), nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestUsageErrorCallback(t *testing.T) {
	ctx := newTestContext()
	orig := showCommandHelp
	showCommandHelp = func(*cli.Context, string) error { return nil }
	defer func() { showCommandHelp = orig }()

	if err := UsageErrorCallback(ctx, errors.New("oops"), false); err != nil {
		t.Fatalf("UsageErrorCallback: %v", err)
	}

	ctx.Command = cli.Command{}
	origApp := showAppHelpAndExit
	called := false
	showAppHelpAndExit = func(*cli.Context, int) { called = true }
	defer func() { showAppHelpAndExit = origApp }()
	if err := UsageErrorCallback(ctx, errors.New("oops"), false); err != nil {
		t.Fatalf("UsageErrorCallback: %v", err)
	}
	if !called {
		t.Fatal("expected app help without a command")
	}
}

func TestHelp(t *testing.T) {
	ctx := newTestContext()
	called := false
	orig := showAppHelpAndExit
	showAppHelpAndExit = func(*cli.Context, int) {
		called = true
	}
	defer func() { showAppHelpAndExit = orig }()

	if err := Help(ctx); err != nil {
		t.Fatalf("Help: %v", err)
	}
	if !called {
		t.Fatalf("expected help to be called")
	}
}

func TestHelpWithCommandError(t *testing.T) {
	app := cli.NewApp()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	_ = set.Parse([]string{"load"})
	ctx := cli.NewContext(app, set, nil)
	ctx.Command = cli.Command{Name: "help"}
	orig := showCommandHelp
	showCommandHelp = func(*cli.Context, string) error {
		return errors.New("boom")
	}
	defer func() { showCommandHelp = orig }()

	if err := Help(ctx); err == nil {
		t.Fatalf("expected error from Help")
	}
}

func TestGetVersion(t *testing.T) {
	old := VersionCmdStr
	VersionCmdStr = "v1.2.3"
	defer func() { VersionCmdStr = old }()

	if err := GetVersion(newTestContext()); err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
}
