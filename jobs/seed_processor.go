package main

import (
	"context"
	"fmt"
	"log/slog"
)

const onlineCountField = "onlineCount"

// CityStatsRecord is the current state of one city_stats document.
type CityStatsRecord struct {
	Name   string
	Exists bool
	Data   map[string]interface{}
}

// HasNumericOnlineCount reports whether the record already carries a number
// in onlineCount.
func (r CityStatsRecord) HasNumericOnlineCount() bool {
	if !r.Exists || r.Data == nil {
		return false
	}
	switch r.Data[onlineCountField].(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}

// CityStatsStore is the document store holding the city_stats collection.
type CityStatsStore interface {
	// GetMany reads the documents for names concurrently. Results follow the
	// order of names; missing documents come back with Exists set to false.
	GetMany(ctx context.Context, names []string) ([]CityStatsRecord, error)
	// CommitDefaults merge-writes onlineCount = 0 for every name in one
	// atomic batch.
	CommitDefaults(ctx context.Context, names []string) error
	Close() error
}

type SeedResult struct {
	Updated int
	Skipped int
	Chunks  int
	Commits int
}

// Seeder backfills missing onlineCount values chunk by chunk.
type Seeder struct {
	store     CityStatsStore
	chunkSize int
	dryRun    bool
}

func NewSeeder(store CityStatsStore, chunkSize int, dryRun bool) *Seeder {
	if chunkSize < 1 || chunkSize > maxChunkSize {
		chunkSize = maxChunkSize
	}
	return &Seeder{
		store:     store,
		chunkSize: chunkSize,
		dryRun:    dryRun,
	}
}

// Run processes names in sequential chunks. The first read or commit error
// stops the run; chunks committed before it stay applied.
func (s *Seeder) Run(ctx context.Context, names []string) (SeedResult, error) {
	var result SeedResult

	for start := 0; start < len(names); start += s.chunkSize {
		end := min(start+s.chunkSize, len(names))
		chunk := names[start:end]
		chunkIndex := result.Chunks

		records, err := s.store.GetMany(ctx, chunk)
		if err != nil {
			return result, fmt.Errorf("chunk %d: failed to read city stats: %w", chunkIndex, err)
		}

		toWrite := make([]string, 0, len(records))
		skipped := 0
		for _, record := range records {
			if record.HasNumericOnlineCount() {
				skipped++
				continue
			}
			toWrite = append(toWrite, record.Name)
		}

		if len(toWrite) > 0 {
			if s.dryRun {
				slog.Info("Would commit city stats defaults", slog.Int("chunk", chunkIndex), slog.Int("writes", len(toWrite)))
			} else {
				if err := s.store.CommitDefaults(ctx, toWrite); err != nil {
					return result, fmt.Errorf("chunk %d: failed to commit city stats batch: %w", chunkIndex, err)
				}
				result.Commits++
			}
		}

		result.Chunks++
		result.Updated += len(toWrite)
		result.Skipped += skipped

		slog.Debug("Chunk processed",
			slog.Int("chunk", chunkIndex),
			slog.Int("size", len(chunk)),
			slog.Int("updated", len(toWrite)),
			slog.Int("skipped", skipped),
		)
	}

	return result, nil
}
