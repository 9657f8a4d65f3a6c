package survey

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weave-qa/qagmire/internal/dataset"
	"github.com/weave-qa/qagmire/internal/fits"
	"github.com/weave-qa/qagmire/internal/monitoring"
)

// RawExtensions are the detector-amplifier count arrays of a raw exposure.
var RawExtensions = []string{"COUNTS1", "COUNTS2"}

// RawLoader loads raw exposures: header metadata plus both amplifier count
// images.
type RawLoader struct {
	Headers HeaderLoader
}

func (rl *RawLoader) Load(ctx context.Context, sel Selection) (*dataset.Dataset, error) {
	files, err := rl.Headers.Locator.Locate(sel)
	if err != nil {
		return nil, err
	}
	exps, err := rl.Headers.loadExposures(ctx, files)
	if err != nil {
		return nil, err
	}
	ds := dataset.New(exps)

	images := make(map[string][][][]float64, len(RawExtensions))
	for _, name := range RawExtensions {
		images[name] = make([][][]float64, len(files))
	}

	start := time.Now()
	workers := rl.Headers.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := fits.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			for _, name := range RawExtensions {
				im, err := f.Image(name)
				if err != nil {
					return err
				}
				images[name][i] = im.Pixels
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, name := range RawExtensions {
		if err := ds.AddMatrix(name, images[name]); err != nil {
			return nil, err
		}
	}
	monitoring.Logf("read %d raw count arrays from %d files; took %.2f s",
		len(RawExtensions)*len(files), len(files), time.Since(start).Seconds())
	return ds, nil
}
