// Command addcolumn extends an already-built compounds table by a single
// text column and backfills it from the source files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	pubchem "github.com/bachi55/local-pubchem-db"
	"github.com/bachi55/local-pubchem-db/schema"
)

func main() {
	gzipped := flag.Bool("gzip", false, "Source files are gzip-compressed (*.sdf.gz)")
	layout := flag.String("layout", "default_db_layout.yaml", "Database layout file used for the original build")
	dbPath := flag.String("db", "", "Database file (default <base_dir>/db/pubchem.sqlite)")
	name := flag.String("name", "", "Name of the column to add")
	tag := flag.String("tag", "", "SD tag holding the column's value")
	transform := flag.String("transform", "", "Optional named transform to apply")
	flag.Parse()

	if flag.NArg() != 1 || *name == "" || *tag == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -name <column> -tag <sd_tag> [flags] <base_dir>\n\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	col := schema.Column{
		Name:   *name,
		DType:  schema.Text,
		SDTags: []string{*tag},
	}
	if *transform != "" {
		t, err := schema.LookupTransform(*transform)
		if err != nil {
			slog.Error("invalid transform", "error", err)
			os.Exit(1)
		}
		col.Transform = t
		col.TransformName = *transform
	}

	cfg := pubchem.DefaultConfig()
	cfg.BaseDir = flag.Arg(0)
	cfg.Gzip = *gzipped
	cfg.LayoutPath = *layout
	cfg.DBPath = *dbPath

	b, err := pubchem.New(cfg)
	if err != nil {
		slog.Error("creating builder", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.AddColumn(ctx, col); err != nil {
		slog.Error("adding column", "column", col.Name, "error", err)
		os.Exit(1)
	}
	slog.Info("addcolumn: done", "column", col.Name)
}
