package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	pubchem "github.com/bachi55/local-pubchem-db"
)

func main() {
	gzipped := flag.Bool("gzip", false, "Source files are gzip-compressed (*.sdf.gz)")
	reset := flag.Bool("reset", false, "Drop and recreate all tables before ingesting")
	layout := flag.String("layout", "default_db_layout.yaml", "Database layout file (YAML or JSON)")
	dbPath := flag.String("db", "", "Database file (default <base_dir>/db/pubchem.sqlite)")
	maxAttempts := flag.Int("max-attempts", 5, "Retry budget per source file")
	quiet := flag.Bool("quiet", false, "Disable the progress bar")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <base_dir>\n\nbase_dir must contain the sdf/ and db/ folders.\n\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	loadDotEnv()

	cfg := pubchem.DefaultConfig()
	cfg.BaseDir = flag.Arg(0)
	cfg.Gzip = *gzipped
	cfg.Reset = *reset
	cfg.LayoutPath = *layout
	cfg.DBPath = *dbPath
	cfg.MaxAttempts = *maxAttempts
	if cfg.DBPath == "" {
		cfg.DBPath = os.Getenv("PUBCHEM_DB_PATH")
	}

	var bar *progressbar.ProgressBar
	if !*quiet {
		cfg.Progress = func(done, total int, file string) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription("ingesting sdf files"),
					progressbar.OptionShowCount(),
				)
			}
			bar.Set(done)
		}
	}

	b, err := pubchem.New(cfg)
	if err != nil {
		slog.Error("creating builder", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := b.Run(ctx)
	if summary != nil {
		for _, f := range summary.Failed {
			slog.Error("file permanently failed",
				"file", f.Filename, "attempts", f.Attempts, "error", f.Err)
		}
		slog.Info("build: run complete",
			"ingested", len(summary.Ingested),
			"failed", len(summary.Failed),
			"already_ingested", summary.Skipped)
	}
	if err != nil {
		if !errors.Is(err, pubchem.ErrFilesFailed) {
			slog.Error("build aborted", "error", err)
		}
		os.Exit(1)
	}
}

// loadDotEnv reads an optional .env file without overwriting variables that
// are already set in the process environment.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	m, err := godotenv.Read(".env")
	if err != nil {
		slog.Warn("ignoring unreadable .env file", "error", err)
		return
	}
	for k, v := range m {
		if os.Getenv(k) == "" {
			os.Setenv(k, v)
		}
	}
}
