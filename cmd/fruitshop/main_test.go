package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterbourgon/ff/v4"

	"github.com/teslashibe/fruit-shop/internal/config"
)

func TestCatalogCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"catalog"}, &stdout, &stderr); err != nil {
		t.Fatalf("catalog: %v (%s)", err, stderr.String())
	}
	for _, want := range []string{"Banana", "$0.75", "(banana)", "Apple", "Lemon"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("output missing %q:\n%s", want, stdout.String())
		}
	}
}

func TestCatalogCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := "items:\n  - label: kiwi\n    name: Kiwi\n    price: \"0.40\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--catalog", path, "catalog"}, &stdout, &stderr); err != nil {
		t.Fatalf("catalog: %v (%s)", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Kiwi") || strings.Contains(stdout.String(), "Banana") {
		t.Errorf("output:\n%s", stdout.String())
	}
}

func TestHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--help"}, &stdout, &stderr); err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, want := range []string{"serve", "tui", "watch", "catalog", "--model-url"} {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("help missing %q:\n%s", want, stderr.String())
		}
	}
}

func TestNoSubcommandPrintsHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), nil, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stderr.String(), "SUBCOMMAND") {
		t.Errorf("expected usage:\n%s", stderr.String())
	}
}

func TestUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--no-such-flag", "catalog"}, &stdout, &stderr); err == nil {
		t.Error("expected an error for an unknown flag")
	}
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--tick=-1s", "serve"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "tick") {
		t.Errorf("got %v, want a tick validation error", err)
	}
}

func TestSetupClosesLogFile(t *testing.T) {
	cfg := config.Register(ff.NewFlagSet("fruitshop"))
	cfg.LogFile = filepath.Join(t.TempDir(), "till.log")

	closeLog, err := setup(cfg, &bytes.Buffer{}, false)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := os.Stat(cfg.LogFile); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := closeLog(); !errors.Is(err, os.ErrClosed) {
		t.Errorf("second close: got %v, want os.ErrClosed", err)
	}
}

func TestSetupWithoutLogFile(t *testing.T) {
	cfg := config.Register(ff.NewFlagSet("fruitshop"))
	closeLog, err := setup(cfg, &bytes.Buffer{}, false)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := closeLog(); err != nil {
		t.Errorf("close: %v", err)
	}
}
