package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wadjakorntonsri/linkgate/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/linkgate/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/linkgate/pkg/config"
	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
	"github.com/wadjakorntonsri/linkgate/pkg/core/services"
	"github.com/wadjakorntonsri/linkgate/pkg/logging"
)

const usage = "expected 'export', 'import' or 'seed' subcommands"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, closer := logging.New(logging.Options{Level: cfg.LogLevel, Output: os.Stderr})
	defer closer.Close()

	if err := run(context.Background(), cfg, logger, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		logger.Error("command failed", "cmd", os.Args[1], "err", err)
		closer.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd string, args []string, stdout io.Writer) error {
	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "JSON file to import")
	overwrite := importCmd.Bool("overwrite", false, "replace links whose slug already exists")
	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)

	var fs *flag.FlagSet
	switch cmd {
	case "export":
		fs = exportCmd
	case "import":
		fs = importCmd
	case "seed":
		fs = seedCmd
	default:
		return fmt.Errorf("unknown command %q: %s", cmd, usage)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer repo.Close()

	switch cmd {
	case "export":
		return doExport(ctx, repo, stdout)
	case "import":
		if *importFile == "" {
			importCmd.PrintDefaults()
			return fmt.Errorf("import: -file is required")
		}
		file, err := os.Open(*importFile)
		if err != nil {
			return fmt.Errorf("open file: %w", err)
		}
		defer file.Close()

		svc := services.NewLinkService(services.LinkServiceConfig{CaseSensitive: cfg.CaseSensitive}, repo, nil, logger)
		n, err := doImport(ctx, repo, svc, cfg.CaseSensitive, file, *overwrite, logger)
		if err != nil {
			return err
		}
		logger.Info("import finished", "imported", n)
		return nil
	default:
		if err := memory.Seed(ctx, repo, time.Now()); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("seeded sample links", "count", len(memory.SampleLinks(time.Now())))
		return nil
	}
}

func doExport(ctx context.Context, repo *sqlite.SQLiteRepository, w io.Writer) error {
	links, err := repo.Dump(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(links); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// doImport writes every valid link under its canonical key and returns how
// many were written. Invalid and already present links are skipped.
func doImport(ctx context.Context, repo *sqlite.SQLiteRepository, svc *services.LinkService, caseSensitive bool, r io.Reader, overwrite bool, logger *slog.Logger) (int, error) {
	var links []domain.Link
	if err := json.NewDecoder(r).Decode(&links); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	count := 0
	for i := range links {
		l := &links[i]

		if err := validate.Struct(l); err != nil {
			logger.Warn("skipping invalid link", "slug", l.Slug, "err", err)
			continue
		}

		if !overwrite {
			existing, err := repo.Get(ctx, services.CanonicalKey(l.Slug, caseSensitive), 0)
			if err != nil {
				return count, fmt.Errorf("check %s: %w", l.Slug, err)
			}
			if existing != nil {
				logger.Info("skipping existing slug", "slug", l.Slug)
				continue
			}
		}

		if err := svc.Save(ctx, l); err != nil {
			logger.Warn("failed to import link", "slug", l.Slug, "err", err)
			continue
		}
		count++
	}

	return count, nil
}
