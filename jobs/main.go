package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/case-framework/case-backend/pkg/db"
)

type storeOpener func(ctx context.Context, conf storeConfig) (CityStatsStore, error)

func main() {
	if err := run(context.Background(), os.Stdout, newStore); err != nil {
		slog.Error("Seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, openStore storeOpener) error {
	conf, err := loadConfig(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		return err
	}

	initLogger(conf)

	slog.Info("Start city stats seed job", slog.String("driver", conf.Store.Driver), slog.Bool("dry_run", conf.DryRun))
	start := time.Now()

	if err := checkInputFiles(conf); err != nil {
		return err
	}

	cities, err := ReadCityNames(conf.Source)
	if err != nil {
		return fmt.Errorf("failed to load city names from %s: %w", conf.Source.Path, err)
	}
	slog.Info("City names loaded", slog.Int("count", len(cities)))

	if duplicates := FindDuplicates(cities); len(duplicates) > 0 {
		if conf.FailOnDuplicates {
			return fmt.Errorf("%d duplicate city names in %s: %s", len(duplicates), conf.Source.Path, strings.Join(duplicates, ", "))
		}
		slog.Warn("City names listed more than once", slog.Int("count", len(duplicates)), slog.String("names", strings.Join(duplicates, ", ")))
	}

	store, err := openStore(ctx, conf.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close store", slog.String("error", err.Error()))
		}
	}()

	result, err := NewSeeder(store, conf.ChunkSize, conf.DryRun).Run(ctx, cities)
	if err != nil {
		return fmt.Errorf("%w (chunks done: %d, updated: %d, skipped: %d)", err, result.Chunks, result.Updated, result.Skipped)
	}

	fmt.Fprintln(out, summaryLine(conf.Store.Collection, result))
	slog.Info("City stats seed job completed",
		slog.Int("chunks", result.Chunks),
		slog.Int("commits", result.Commits),
		slog.String("duration", time.Since(start).String()))
	return nil
}

func summaryLine(collection string, result SeedResult) string {
	return fmt.Sprintf("%s seed complete. created/updated: %d, skipped: %d", collection, result.Updated, result.Skipped)
}

func newStore(ctx context.Context, conf storeConfig) (CityStatsStore, error) {
	if conf.Driver == storeDriverMongoDB {
		store, err := NewMongoStore(db.DBConfigFromYamlObj(conf.MongoDB, nil), conf.Collection)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := NewFirestoreStore(ctx, conf.Firestore, conf.Collection)
	if err != nil {
		return nil, err
	}
	return store, nil
}
