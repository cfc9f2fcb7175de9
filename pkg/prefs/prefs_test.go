package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sortd-ai/sortd/pkg/types/organizer"
)

func sampleStrategy() organizer.Strategy {
	return organizer.Strategy{
		ID:          "s1",
		Type:        organizer.StrategyByDate,
		Description: "Group photos by capture date",
		Assignments: []organizer.FileAssignment{
			{Source: "/in/a.jpg", Dest: "2024-07-15/a.jpg"},
			{Source: "/in/b.jpg", Dest: "2024-07-15/b.jpg"},
		},
	}
}

func TestLoadMissingFileYieldsEmptyStore(t *testing.T) {
	s := Load(context.Background(), filepath.Join(t.TempDir(), "prefs.json"))
	assert.Equal(t, 0, s.TypeCount(organizer.StrategyByDate))
	assert.Equal(t, 0, s.TotalDecisions())
	assert.Equal(t, 0, s.FolderCount("2024-07-15"))
}

func TestRecordDecisionAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	ctx := context.Background()

	s := Load(ctx, path)
	s.RecordRun()
	s.RecordDecision(sampleStrategy())
	require.NoError(t, s.Flush())

	reloaded := Load(ctx, path)
	assert.Equal(t, 1, reloaded.TypeCount(organizer.StrategyByDate))
	assert.Equal(t, 1, reloaded.TotalDecisions())
	assert.Equal(t, 1, reloaded.FolderCount("2024-07-15"))

	snap := reloaded.Snapshot()
	assert.Equal(t, 1, snap.Stats.TotalRuns)
	assert.Equal(t, 2, snap.Stats.TotalFilesOrganized)
	require.Len(t, snap.History, 1)
	assert.Equal(t, organizer.StrategyByDate, snap.History[0].StrategyType)
	assert.Equal(t, 2, snap.History[0].FileCount)
	assert.False(t, snap.History[0].Timestamp.IsZero())
}

func TestCountsAreMonotonic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	ctx := context.Background()

	s := Load(ctx, path)
	for i := 0; i < 3; i++ {
		before := s.TypeCount(organizer.StrategyByDate)
		historyBefore := len(s.Snapshot().History)

		s.RecordDecision(sampleStrategy())
		assert.Equal(t, before+1, s.TypeCount(organizer.StrategyByDate))
		assert.Equal(t, historyBefore+1, len(s.Snapshot().History))

		require.NoError(t, s.Flush())
		reloaded := Load(ctx, path)
		assert.Equal(t, i+1, reloaded.TypeCount(organizer.StrategyByDate))
	}
}

func TestLoadCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := Load(context.Background(), path)
	assert.Equal(t, 0, s.TotalDecisions())

	// A fresh store still flushes over the corrupt file.
	s.RecordDecision(sampleStrategy())
	require.NoError(t, s.Flush())
	assert.Equal(t, 1, Load(context.Background(), path).TypeCount(organizer.StrategyByDate))
}

func TestFlushCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "prefs.json")
	s := Load(context.Background(), path)
	require.NoError(t, s.Flush())
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestHistoryIsBounded(t *testing.T) {
	s := Load(context.Background(), filepath.Join(t.TempDir(), "prefs.json"))
	for i := 0; i < maxHistory+25; i++ {
		s.RecordDecision(sampleStrategy())
	}
	assert.Len(t, s.Snapshot().History, maxHistory)
	// The counts keep the full tally even after history trimming.
	assert.Equal(t, maxHistory+25, s.TypeCount(organizer.StrategyByDate))
}

func TestReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	s := Load(context.Background(), path)
	s.RecordDecision(sampleStrategy())
	require.NoError(t, s.Flush())

	require.NoError(t, s.Reset())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, s.TotalDecisions())
}
