package ratestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/valutatrade/hub/internal/entities"
)

// Store owns the on-disk rates snapshot and measurement history. Every write
// is a full-document replace through a temp file and os.Rename, so a reader
// sees either the old or the new document, never a mix. The mutex serializes
// the read-modify-write sequences of the aggregator and the lookup path.
type Store struct {
	mu          sync.Mutex
	ratesPath   string
	historyPath string
}

func New(dataDir, ratesFile, historyFile string) (*Store, error) {
	const op = "ratestore.New"

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return &Store{
		ratesPath:   filepath.Join(dataDir, ratesFile),
		historyPath: filepath.Join(dataDir, historyFile),
	}, nil
}

// LoadSnapshot returns the current-rate document, or an empty one when no
// prior data exists (first run, not an error).
func (s *Store) LoadSnapshot() (entities.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadSnapshotLocked()
}

// SaveSnapshot replaces the whole snapshot with the given pairs, each entry
// stamped with lastRefresh and its own provider source.
func (s *Store) SaveSnapshot(pairs map[string]entities.RateInfo, lastRefresh time.Time, source string) error {
	const op = "ratestore.SaveSnapshot"

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := entities.NewSnapshot()
	for key, info := range pairs {
		snapshot.Pairs[key] = entities.SnapshotEntry{
			Rate:      info.Rate,
			UpdatedAt: lastRefresh,
			Source:    info.Source,
		}
	}
	snapshot.LastRefresh = lastRefresh
	snapshot.Source = source

	if err := atomicWrite(s.ratesPath, snapshot); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

// UpdatePair rewrites the snapshot with a single pair replaced: the lookup
// path's fallback write-back. The whole read-modify-write runs under the
// store lock so it cannot interleave with an aggregation cycle.
func (s *Store) UpdatePair(key string, entry entities.SnapshotEntry, source string) error {
	const op = "ratestore.UpdatePair"

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.loadSnapshotLocked()
	if err != nil {
		return errors.Wrap(err, op)
	}

	snapshot.Pairs[key] = entry
	snapshot.LastRefresh = entry.UpdatedAt
	snapshot.Source = source

	if err := atomicWrite(s.ratesPath, snapshot); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Store) LoadHistory() ([]entities.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadHistoryLocked()
}

// AppendHistory adds entries to the audit log. The log is rewritten whole;
// acceptable because history is an audit trail, not a hot path.
func (s *Store) AppendHistory(entries []entities.HistoryEntry) error {
	const op = "ratestore.AppendHistory"

	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistoryLocked()
	if err != nil {
		return errors.Wrap(err, op)
	}

	history = append(history, entries...)

	if err := atomicWrite(s.historyPath, history); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Store) loadSnapshotLocked() (entities.Snapshot, error) {
	const op = "ratestore.loadSnapshot"

	data, err := os.ReadFile(s.ratesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return entities.NewSnapshot(), nil
		}
		return entities.Snapshot{}, errors.Wrap(err, op)
	}

	var snapshot entities.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return entities.Snapshot{}, errors.Wrap(err, op)
	}

	return snapshot, nil
}

func (s *Store) loadHistoryLocked() ([]entities.HistoryEntry, error) {
	const op = "ratestore.loadHistory"

	data, err := os.ReadFile(s.historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []entities.HistoryEntry{}, nil
		}
		return nil, errors.Wrap(err, op)
	}

	var history []entities.HistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return history, nil
}

func atomicWrite(path string, v any) error {
	const op = "ratestore.atomicWrite"

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, op)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return errors.Wrap(err, op)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}
