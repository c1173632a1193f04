package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func mapLookup(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestParseOptions_DSNFallsBackToEnv(t *testing.T) {
	opts, err := parseOptions([]string{"-direction", " STATUS "}, mapLookup(map[string]string{
		dsnEnv: " postgres://tpoints@localhost/tpoints ",
	}))
	if err != nil {
		t.Fatalf("parse options: %v", err)
	}
	if opts.command != "status" || opts.dsn != "postgres://tpoints@localhost/tpoints" {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestParseOptions_FlagWinsOverEnv(t *testing.T) {
	opts, err := parseOptions([]string{"-dsn", "postgres://flag", "-steps", "2", "-direction", "down"},
		mapLookup(map[string]string{dsnEnv: "postgres://env"}))
	if err != nil {
		t.Fatalf("parse options: %v", err)
	}
	if opts.dsn != "postgres://flag" || opts.steps != 2 || opts.command != "down" {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestParseOptions_Errors(t *testing.T) {
	if _, err := parseOptions(nil, mapLookup(nil)); err == nil {
		t.Fatal("expected missing dsn error")
	}
	if _, err := parseOptions([]string{"-direction", "sideways"}, mapLookup(map[string]string{dsnEnv: "x"})); err == nil {
		t.Fatal("expected unsupported direction error")
	}
	if _, err := parseOptions([]string{"-unknown"}, mapLookup(map[string]string{dsnEnv: "x"})); err == nil {
		t.Fatal("expected unknown flag error")
	}
}

func TestRun_PostgresUpListStatus(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("TPOINTS_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("TPOINTS_POSTGRES_TEST_DSN is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := run(ctx, options{command: "up", dsn: dsn}, &out); err != nil {
		t.Skipf("postgres is not available: %v", err)
	}
	if !strings.Contains(out.String(), "migrate up ok") {
		t.Fatalf("unexpected up output: %q", out.String())
	}

	out.Reset()
	if err := run(ctx, options{command: "list", dsn: dsn}, &out); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "0001_init") || strings.Contains(out.String(), "pending") {
		t.Fatalf("unexpected list output: %q", out.String())
	}
}
