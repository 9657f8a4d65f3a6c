package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-qa/qagmire/internal/dataset"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrationsApply(t *testing.T) {
	s := openTestStore(t)
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// Reapplying on an up-to-date schema is a no-op.
	require.NoError(t, s.MigrateUp())
}

func TestHeaderCacheRoundTrip(t *testing.T) {
	s := openTestStore(t)

	h := &CachedHeader{
		Exposure: dataset.Exposure{
			File: "/data/raw/20160908/r1002813.fit", Run: 1002813, OBID: 3133,
			Camera: dataset.CameraRed, MJD: 57639.8653, Night: "20160908",
			ObsTemp: "DACBC", SkyBrTel: 21.2, SeeingB: 0.93,
		},
		Mtime: 1000,
	}
	require.NoError(t, s.Put(h))

	got, hit, err := s.Cached(h.File, 1000)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, h.Run, got.Run)
	assert.Equal(t, dataset.CameraRed, got.Camera)
	assert.Equal(t, "20160908", got.Night)
	assert.Equal(t, 21.2, got.SkyBrTel)

	// A changed mtime invalidates the entry.
	_, hit, err = s.Cached(h.File, 2000)
	require.NoError(t, err)
	assert.False(t, hit)

	// Re-putting with the new mtime replaces the row.
	h.Mtime = 2000
	h.SeeingB = 1.04
	require.NoError(t, s.Put(h))
	got, hit, err = s.Cached(h.File, 2000)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 1.04, got.SeeingB)

	require.NoError(t, s.Invalidate(h.File))
	_, hit, err = s.Cached(h.File, 2000)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCachedMiss(t *testing.T) {
	s := openTestStore(t)
	_, hit, err := s.Cached("/nowhere.fit", 1)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRunRecords(t *testing.T) {
	s := openTestStore(t)

	r := &RunRecord{
		ID: "f0b9c5f2-0000-4000-8000-000000000001", Check: "conditions",
		Selection: "raw 20160908", NTests: 4, NElements: 12, NFailures: 3,
		Report: []byte(`{"tests":["sky_too_bright"]}`),
	}
	require.NoError(t, s.SaveRun(r))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, r.ID, runs[0].ID)
	assert.Equal(t, int64(3), runs[0].NFailures)
	assert.Empty(t, runs[0].Report, "listing omits reports")

	got, err := s.GetRun(r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, string(r.Report), string(got.Report))

	missing, err := s.GetRun("no-such-run")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	for i, night := range []string{"20160908", "20160908", "20160909"} {
		require.NoError(t, s.Put(&CachedHeader{
			Exposure: dataset.Exposure{
				File: filepath.Join("/data", night, string(rune('a'+i))+".fit"),
				Run: int64(i), Camera: dataset.CameraBlue, Night: night,
			},
			Mtime: 1,
		}))
	}
	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Headers)
	assert.Equal(t, int64(2), st.Nights)
	assert.Equal(t, int64(0), st.Runs)
}
