package survey

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weave-qa/qagmire/internal/dataset"
	"github.com/weave-qa/qagmire/internal/fits"
	"github.com/weave-qa/qagmire/internal/fsutil"
	"github.com/weave-qa/qagmire/internal/monitoring"
	"github.com/weave-qa/qagmire/internal/store"
	"github.com/weave-qa/qagmire/internal/timeutil"
)

// Loader turns a selection into a loaded dataset. Implementations differ in
// which extensions they pull alongside the header metadata.
type Loader interface {
	Load(ctx context.Context, sel Selection) (*dataset.Dataset, error)
}

// HeaderLoader loads only primary-header metadata, one dataset row per
// file. Headers go through the store cache when one is attached: a file
// whose path and mtime match a cached conversion is served from SQLite
// without touching the FITS file.
type HeaderLoader struct {
	Locator *Locator
	Store   *store.Store // optional
	Workers int          // parallel readers; <1 means sequential
}

func (hl *HeaderLoader) Load(ctx context.Context, sel Selection) (*dataset.Dataset, error) {
	files, err := hl.Locator.Locate(sel)
	if err != nil {
		return nil, err
	}
	exps, err := hl.loadExposures(ctx, files)
	if err != nil {
		return nil, err
	}
	return dataset.New(exps), nil
}

// loadExposures reads header metadata for every file, cache first.
func (hl *HeaderLoader) loadExposures(ctx context.Context, files []string) ([]dataset.Exposure, error) {
	start := time.Now()
	exps := make([]dataset.Exposure, len(files))
	var misses []int

	for i, f := range files {
		if hl.Store == nil {
			misses = append(misses, i)
			continue
		}
		mtime, err := fileMtime(hl.Locator.fs, f)
		if err != nil {
			return nil, err
		}
		cached, hit, err := hl.Store.Cached(f, mtime)
		if err != nil {
			return nil, err
		}
		if hit {
			exps[i] = cached.Exposure
			continue
		}
		misses = append(misses, i)
	}

	workers := hl.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, i := range misses {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := fits.ReadPrimaryHeader(files[i])
			if err != nil {
				return err
			}
			exp, err := ExposureFromHeader(files[i], h)
			if err != nil {
				return err
			}
			exps[i] = exp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if hl.Store != nil {
		for _, i := range misses {
			mtime, err := fileMtime(hl.Locator.fs, files[i])
			if err != nil {
				return nil, err
			}
			if err := hl.Store.Put(&store.CachedHeader{Exposure: exps[i], Mtime: mtime}); err != nil {
				return nil, err
			}
		}
	}

	monitoring.Logf("located %d files: %d cached, %d converted; took %.2f s",
		len(files), len(files)-len(misses), len(misses), time.Since(start).Seconds())
	return exps, nil
}

func fileMtime(fsys fsutil.FileSystem, path string) (int64, error) {
	fi, err := fsys.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("survey: stat %s: %w", path, err)
	}
	return fi.ModTime().Unix(), nil
}

// ExposureFromHeader maps the primary-header keywords of one file onto a
// dataset row. RUN, CAMERA and MJD-OBS are required; constraint and
// measured-condition keywords default to zero values when absent.
func ExposureFromHeader(path string, h *fits.Header) (dataset.Exposure, error) {
	run, err := h.Int("RUN")
	if err != nil {
		return dataset.Exposure{}, fmt.Errorf("survey: %s: %w", path, err)
	}
	camera, err := h.Str("CAMERA")
	if err != nil {
		return dataset.Exposure{}, fmt.Errorf("survey: %s: %w", path, err)
	}
	cam, err := parseCamera(camera)
	if err != nil {
		return dataset.Exposure{}, fmt.Errorf("survey: %s: %w", path, err)
	}
	mjd, err := h.Float("MJD-OBS")
	if err != nil {
		return dataset.Exposure{}, fmt.Errorf("survey: %s: %w", path, err)
	}

	obid, _ := h.Int("OBID")
	return dataset.Exposure{
		File:     path,
		Run:      run,
		OBID:     obid,
		Camera:   cam,
		MJD:      mjd,
		Night:    timeutil.MJDToNight(mjd),
		ObsTemp:  h.StrDefault("OBSTEMP", ""),
		SkyBrTel: h.FloatDefault("SKYBRTEL", 0),
		SeeingB:  h.FloatDefault("SEEINGB", 0),
	}, nil
}

func parseCamera(v string) (dataset.Camera, error) {
	switch {
	case v == "RED" || v == "WEAVERED":
		return dataset.CameraRed, nil
	case v == "BLUE" || v == "WEAVEBLUE":
		return dataset.CameraBlue, nil
	}
	return "", fmt.Errorf("unknown CAMERA %q", v)
}
