package main

import (
	"context"
	"errors"
)

// memoryStore is an in-process CityStatsStore used by the seeder tests.
type memoryStore struct {
	docs        map[string]map[string]interface{}
	commitSizes []int
	readErr     error
	commitErr   error
	// failCommitAt makes the n-th commit (0-based) return commitErr.
	failCommitAt int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		docs:         map[string]map[string]interface{}{},
		failCommitAt: -1,
	}
}

func (m *memoryStore) GetMany(_ context.Context, names []string) ([]CityStatsRecord, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	records := make([]CityStatsRecord, len(names))
	for i, name := range names {
		data, ok := m.docs[name]
		records[i] = CityStatsRecord{Name: name, Exists: ok, Data: copyDoc(data)}
	}
	return records, nil
}

func (m *memoryStore) CommitDefaults(_ context.Context, names []string) error {
	if m.commitErr != nil && (m.failCommitAt < 0 || m.failCommitAt == len(m.commitSizes)) {
		return m.commitErr
	}
	if len(names) == 0 {
		return errors.New("no writes to commit")
	}
	for _, name := range names {
		if m.docs[name] == nil {
			m.docs[name] = map[string]interface{}{}
		}
		m.docs[name][onlineCountField] = 0
	}
	m.commitSizes = append(m.commitSizes, len(names))
	return nil
}

func (m *memoryStore) Close() error { return nil }

func copyDoc(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// sameField compares a stored field against want, treating every numeric
// type as its float64 value since drivers pick their own integer widths.
func sameField(got, want interface{}) bool {
	if g, ok := toFloat(got); ok {
		w, ok := toFloat(want)
		return ok && g == w
	}
	return got == want
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
