package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLite(filepath.Join(t.TempDir(), "logs", "energy_data.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func TestSQLiteAppendLoad(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	at := time.UnixMilli(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).UnixMilli())
	want := Sample{Time: at, Power: 1520.5, Energy: 12.25, Voltage: 230.1, Battery: 87}

	require.NoError(t, store.Append(ctx, Day, want))
	require.NoError(t, store.Append(ctx, Week, Sample{Time: at, Power: 1}))

	got, err := store.Load(ctx, Day, at.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, want.Time.Equal(got[0].Time))
	assert.Equal(t, want.Power, got[0].Power)
	assert.Equal(t, want.Energy, got[0].Energy)
	assert.Equal(t, want.Voltage, got[0].Voltage)
	assert.Equal(t, want.Battery, got[0].Battery)
}

func TestSQLiteLoadOrdersAndFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, h := range []int{5, 1, 3, 0} {
		require.NoError(t, store.Append(ctx, Week, Sample{Time: start.Add(time.Duration(h) * time.Hour), Power: float64(h)}))
	}

	got, err := store.Load(ctx, Week, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{1, 3, 5}, []float64{got[0].Power, got[1].Power, got[2].Power})
}

func TestSQLitePrune(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for h := 0; h < 4; h++ {
		require.NoError(t, store.Append(ctx, Day, Sample{Time: start.Add(time.Duration(h) * time.Hour)}))
		require.NoError(t, store.Append(ctx, Week, Sample{Time: start.Add(time.Duration(h) * time.Hour)}))
	}

	require.NoError(t, store.Prune(ctx, Day, start.Add(2*time.Hour)))

	day, err := store.Load(ctx, Day, time.Time{})
	require.NoError(t, err)
	assert.Len(t, day, 2)

	week, err := store.Load(ctx, Week, time.Time{})
	require.NoError(t, err)
	assert.Len(t, week, 4, "pruning one window leaves the other intact")
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "energy.db")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, Day, Sample{Time: time.Now(), Power: 42}))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Load(ctx, Day, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 42.0, got[0].Power)
}
