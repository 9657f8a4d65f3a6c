// Package store is the SQLite-backed cache behind the survey loaders. FITS
// headers are converted once and reused on later runs keyed by source path
// and modification time; completed diagnostic runs are persisted for the
// report server. Deleting a row (or the whole database) simply forces
// reconversion on the next read.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/weave-qa/qagmire/internal/dataset"
)

// Store wraps the cache database.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the cache database at path and brings its schema
// up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	s := &Store{db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// CachedHeader is one converted primary header plus its cache key.
type CachedHeader struct {
	dataset.Exposure
	Mtime int64
}

// Cached looks up the converted header for path, valid only if the stored
// modification time still matches mtime.
func (s *Store) Cached(path string, mtime int64) (*CachedHeader, bool, error) {
	row := s.QueryRow(`
		SELECT mtime_unix, run, obid, camera, mjd, night, obstemp, skybrtel, seeingb
		FROM header_cache WHERE path = ?`, path)

	var h CachedHeader
	var camera string
	err := row.Scan(&h.Mtime, &h.Run, &h.OBID, &camera, &h.MJD, &h.Night, &h.ObsTemp, &h.SkyBrTel, &h.SeeingB)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: lookup %s: %w", path, err)
	}
	if h.Mtime != mtime {
		// Source file changed since conversion; treat as a miss.
		return nil, false, nil
	}
	h.File = path
	h.Camera = dataset.Camera(camera)
	return &h, true, nil
}

// Put records a converted header, replacing any stale entry for the path.
func (s *Store) Put(h *CachedHeader) error {
	_, err := s.Exec(`
		INSERT INTO header_cache (path, mtime_unix, run, obid, camera, mjd, night, obstemp, skybrtel, seeingb)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime_unix = excluded.mtime_unix,
			run = excluded.run,
			obid = excluded.obid,
			camera = excluded.camera,
			mjd = excluded.mjd,
			night = excluded.night,
			obstemp = excluded.obstemp,
			skybrtel = excluded.skybrtel,
			seeingb = excluded.seeingb,
			converted_at = CURRENT_TIMESTAMP`,
		h.File, h.Mtime, h.Run, h.OBID, string(h.Camera), h.MJD, h.Night, h.ObsTemp, h.SkyBrTel, h.SeeingB)
	if err != nil {
		return fmt.Errorf("store: put %s: %w", h.File, err)
	}
	return nil
}

// Invalidate removes the cached conversion for path.
func (s *Store) Invalidate(path string) error {
	_, err := s.Exec(`DELETE FROM header_cache WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("store: invalidate %s: %w", path, err)
	}
	return nil
}

// CacheStats summarises the conversion cache.
type CacheStats struct {
	Headers int64
	Nights  int64
	Runs    int64
}

// Stats reports cache occupancy.
func (s *Store) Stats() (CacheStats, error) {
	var st CacheStats
	err := s.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT night) FROM header_cache`).Scan(&st.Headers, &st.Nights)
	if err != nil {
		return st, fmt.Errorf("store: stats: %w", err)
	}
	if err := s.QueryRow(`SELECT COUNT(*) FROM diagnostic_runs`).Scan(&st.Runs); err != nil {
		return st, fmt.Errorf("store: stats: %w", err)
	}
	return st, nil
}

// Vacuum compacts the database file.
func (s *Store) Vacuum() error {
	_, err := s.Exec("VACUUM")
	return err
}
