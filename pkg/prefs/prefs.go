// Package prefs persists which strategies the user actually picked across
// runs, so later rankings can favor the organization styles they prefer.
// The store is a single JSON file, rewritten atomically on flush.
package prefs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/sortd-ai/sortd/pkg/logger"
	"github.com/sortd-ai/sortd/pkg/types/organizer"
)

const recordVersion = 1

// maxHistory bounds the decision log so the file stays small.
const maxHistory = 200

// Decision is one confirmed strategy, kept for history.
type Decision struct {
	Timestamp    time.Time              `json:"timestamp"`
	StrategyType organizer.StrategyType `json:"strategy_type"`
	FileCount    int                    `json:"file_count"`
}

// Stats accumulates lifetime totals.
type Stats struct {
	TotalRuns           int `json:"total_runs"`
	TotalFilesOrganized int `json:"total_files_organized"`
}

// Record is the on-disk preference document. Counts only ever grow; the
// user edits or deletes the file out-of-band to forget things.
type Record struct {
	Version             int                            `json:"version"`
	StrategyPreferences map[organizer.StrategyType]int `json:"strategy_preferences"`
	FolderNames         map[string]int                 `json:"folder_name_preferences"`
	History             []Decision                     `json:"history"`
	Stats               Stats                          `json:"stats"`
}

func newRecord() Record {
	return Record{
		Version:             recordVersion,
		StrategyPreferences: map[organizer.StrategyType]int{},
		FolderNames:         map[string]int{},
	}
}

// Store is the in-memory preference record bound to its file path. A run
// loads it once, records at most one decision, and flushes at the end;
// concurrent runs against the same file are not supported.
type Store struct {
	path string
	data Record
}

// Load reads the store at path. A missing file yields an empty store. A
// corrupt or incompatible file also yields an empty store, with a warning,
// so a damaged preference file never blocks a run.
func Load(ctx context.Context, path string) *Store {
	s := &Store{path: path, data: newRecord()}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s
	}
	if err != nil {
		logger.G(ctx).WithError(err).WithField("path", path).Warn("preference store unreadable, starting fresh")
		return s
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Version != recordVersion {
		logger.G(ctx).WithField("path", path).Warn("preference store corrupt or incompatible, starting fresh")
		return s
	}

	if rec.StrategyPreferences == nil {
		rec.StrategyPreferences = map[organizer.StrategyType]int{}
	}
	if rec.FolderNames == nil {
		rec.FolderNames = map[string]int{}
	}
	s.data = rec
	return s
}

// RecordDecision logs the strategy the user picked: bumps its type count,
// credits its destination folder names, and appends a history entry.
func (s *Store) RecordDecision(strategy organizer.Strategy) {
	s.data.StrategyPreferences[strategy.Type]++
	for _, name := range strategy.FolderNames() {
		s.data.FolderNames[name]++
	}
	s.data.Stats.TotalFilesOrganized += len(strategy.Assignments)

	s.data.History = append(s.data.History, Decision{
		Timestamp:    time.Now().UTC(),
		StrategyType: strategy.Type,
		FileCount:    len(strategy.Assignments),
	})
	if len(s.data.History) > maxHistory {
		s.data.History = s.data.History[len(s.data.History)-maxHistory:]
	}
}

// RecordRun bumps the lifetime run counter.
func (s *Store) RecordRun() {
	s.data.Stats.TotalRuns++
}

// TypeCount returns how many times a strategy type was picked.
func (s *Store) TypeCount(t organizer.StrategyType) int {
	return s.data.StrategyPreferences[t]
}

// FolderCount returns how many times a destination folder name was part of
// a picked strategy.
func (s *Store) FolderCount(name string) int {
	return s.data.FolderNames[name]
}

// TotalDecisions returns the number of recorded decisions, the normalizer
// for preference boosts.
func (s *Store) TotalDecisions() int {
	var total int
	for _, n := range s.data.StrategyPreferences {
		total += n
	}
	return total
}

// Snapshot returns a copy of the current record, for display.
func (s *Store) Snapshot() Record {
	raw, _ := json.Marshal(s.data)
	var out Record
	_ = json.Unmarshal(raw, &out)
	return out
}

// Flush writes the record to disk via temp file and rename, creating the
// parent directory if needed.
func (s *Store) Flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create preference directory")
	}

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal preference record")
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write preference temp file")
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return errors.Wrap(err, "failed to replace preference file")
	}
	return nil
}

// Reset discards all learned preferences and removes the file.
func (s *Store) Reset() error {
	s.data = newRecord()
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove preference file")
	}
	return nil
}
