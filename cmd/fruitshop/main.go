// Fruitshop is a self-service till that recognizes fruit held up to a webcam
// and adds it to the bill.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/teslashibe/fruit-shop/internal/config"
	"github.com/teslashibe/fruit-shop/internal/log"
	"github.com/teslashibe/fruit-shop/pkg/catalog"
	"github.com/teslashibe/fruit-shop/pkg/remote"
	"github.com/teslashibe/fruit-shop/pkg/render"
	"github.com/teslashibe/fruit-shop/pkg/shop"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootFlags := ff.NewFlagSet("fruitshop")
	rootFlags.StringVar(new(string), 0, "config", "", "config file (flag per line: name value)")
	cfg := config.Register(rootFlags)

	root := &ff.Command{
		Name:      "fruitshop",
		Usage:     "fruitshop [FLAGS] <SUBCOMMAND>",
		ShortHelp: "webcam fruit checkout",
		Flags:     rootFlags,
	}

	serveFlags := ff.NewFlagSet("serve").SetParent(rootFlags)
	serve := &ff.Command{
		Name:      "serve",
		Usage:     "fruitshop serve [FLAGS]",
		ShortHelp: "run the till with the browser dashboard",
		Flags:     serveFlags,
		Exec: func(ctx context.Context, _ []string) error {
			closeLog, err := setup(cfg, stderr, false)
			if err != nil {
				return err
			}
			defer closeLog()
			return serveTill(ctx, cfg)
		},
	}

	tuiFlags := ff.NewFlagSet("tui").SetParent(rootFlags)
	dashboard := tuiFlags.BoolLong("dashboard", "also serve the browser dashboard on --listen")
	tuiCmd := &ff.Command{
		Name:      "tui",
		Usage:     "fruitshop tui [FLAGS]",
		ShortHelp: "run the till in the terminal",
		Flags:     tuiFlags,
		Exec: func(ctx context.Context, _ []string) error {
			closeLog, err := setup(cfg, stderr, true)
			if err != nil {
				return err
			}
			defer closeLog()
			return terminalTill(ctx, cfg, *dashboard)
		},
	}

	watchFlags := ff.NewFlagSet("watch").SetParent(rootFlags)
	watchURL := watchFlags.StringLong("url", "localhost"+config.DefaultListen, "dashboard address or status websocket URL")
	retry := watchFlags.DurationLong("retry", 2*time.Second, "wait between reconnects")
	once := watchFlags.BoolLong("once", "print the current bill and exit")
	watch := &ff.Command{
		Name:      "watch",
		Usage:     "fruitshop watch [FLAGS]",
		ShortHelp: "print the bill of a running dashboard",
		Flags:     watchFlags,
		Exec: func(ctx context.Context, _ []string) error {
			closeLog, err := setup(cfg, stderr, false)
			if err != nil {
				return err
			}
			defer closeLog()
			url, err := remote.StatusURL(*watchURL)
			if err != nil {
				return err
			}
			opts := render.Options{Prompt: "Waiting for the next customer"}
			if *once {
				snap, err := remote.First(ctx, url)
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, render.View(snap, opts))
				return nil
			}
			log.Info("watching dashboard", "url", url)
			return remote.Follow(ctx, url, *retry, func(snap shop.Snapshot) {
				fmt.Fprintln(stdout, render.View(snap, opts))
				fmt.Fprintln(stdout)
			})
		},
	}

	catalogCmd := &ff.Command{
		Name:      "catalog",
		Usage:     "fruitshop catalog [FLAGS]",
		ShortHelp: "print the price table",
		Flags:     ff.NewFlagSet("catalog").SetParent(rootFlags),
		Exec: func(context.Context, []string) error {
			cat, err := catalog.Load(cfg.CatalogFile)
			if err != nil {
				return err
			}
			fmt.Fprint(stdout, render.Catalog(cat))
			return nil
		},
	}

	root.Subcommands = []*ff.Command{serve, tuiCmd, watch, catalogCmd}

	err := root.Parse(args,
		ff.WithEnvVarPrefix(config.EnvPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithConfigIgnoreUndefinedFlags(),
	)
	switch {
	case errors.Is(err, ff.ErrHelp):
		fmt.Fprintf(stderr, "%s\n", ffhelp.Command(root.GetSelected()))
		return nil
	case err != nil:
		fmt.Fprintf(stderr, "%s\n", ffhelp.Command(root.GetSelected()))
		return err
	}

	err = root.Run(ctx)
	if errors.Is(err, ff.ErrNoExec) {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Command(root))
		return nil
	}
	return err
}

// setup validates the configuration and initializes logging. The terminal UI
// owns the screen, so its logs go to a file. The returned func closes that
// file.
func setup(cfg *config.Config, stderr io.Writer, terminal bool) (func() error, error) {
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	out, closeLog := stderr, func() error { return nil }
	path := cfg.LogFile
	if terminal && path == "" {
		path = config.DefaultLogFile
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out, closeLog = f, f.Close
	}
	log.Init(cfg.Log(out))
	return closeLog, nil
}
