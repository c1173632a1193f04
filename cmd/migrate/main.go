package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vladislavdragonenkov/tpoints/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	dsnEnv         = "TPOINTS_POSTGRES_DSN"
)

type options struct {
	command string
	steps   int
	dsn     string
}

func parseOptions(args []string, lookup func(string) string) (options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts options
	fs.StringVar(&opts.command, "direction", "up", "migration command: up|down|status|list")
	fs.IntVar(&opts.steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	fs.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (fallback: "+dsnEnv+")")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.command = strings.ToLower(strings.TrimSpace(opts.command))
	opts.dsn = strings.TrimSpace(opts.dsn)
	if opts.dsn == "" {
		opts.dsn = strings.TrimSpace(lookup(dsnEnv))
	}
	if opts.dsn == "" {
		return options{}, fmt.Errorf("%s (or -dsn) is required", dsnEnv)
	}
	switch opts.command {
	case "up", "down", "status", "list":
	default:
		return options{}, fmt.Errorf("unsupported direction: %s (use up|down|status|list)", opts.command)
	}
	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	store, err := postgres.Open(ctx, opts.dsn)
	if err != nil {
		return fmt.Errorf("open postgres store: %w", err)
	}
	defer store.Close()

	switch opts.command {
	case "up":
		if err := store.MigrateUp(ctx, opts.steps); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
	case "down":
		if err := store.MigrateDown(ctx, opts.steps); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
	case "list":
		states, err := store.Migrations(ctx)
		if err != nil {
			return fmt.Errorf("list migrations failed: %w", err)
		}
		for _, state := range states {
			applied := "pending"
			if state.Applied() {
				applied = state.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(out, "%04d_%s\t%s\n", state.Version, state.Name, applied)
		}
		return nil
	}

	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	fmt.Fprintf(out, "migrate %s ok: version=%d applied=%d\n", opts.command, version, count)
	return nil
}

func main() {
	_ = godotenv.Load()

	opts, err := parseOptions(os.Args[1:], os.Getenv)
	if err != nil {
		fail("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fail("%v", err)
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
