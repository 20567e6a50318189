package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "surfstat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndRecent(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Insert(Snapshot{
			TakenAt:          base.Add(time.Duration(i) * time.Hour),
			Email:            "dev@example.com",
			MonthlyCredits:   50000,
			AvailableCredits: float64(500 * (i + 1)),
			UsedPercent:      99 - i,
			ModelsJSON:       `[{"label":"SWE-1"}]`,
		}))
	}

	snaps, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	// Newest first
	assert.Equal(t, 97, snaps[0].UsedPercent)
	assert.Equal(t, 99, snaps[2].UsedPercent)
	assert.Equal(t, "dev@example.com", snaps[0].Email)
	assert.Equal(t, 50000.0, snaps[0].MonthlyCredits)
	assert.Equal(t, `[{"label":"SWE-1"}]`, snaps[0].ModelsJSON)
	assert.True(t, snaps[0].TakenAt.Equal(base.Add(2*time.Hour)))
}

func TestRecentLimit(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Insert(Snapshot{TakenAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	snaps, err := store.Recent(2)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestRecentEmpty(t *testing.T) {
	store := openTestStore(t)

	snaps, err := store.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
