package survey

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weave-qa/qagmire/internal/dataset"
	"github.com/weave-qa/qagmire/internal/fits"
	"github.com/weave-qa/qagmire/internal/monitoring"
)

// L1Extensions are the spectral arrays of an L1 product, each one fibre
// spectrum per row.
var L1Extensions = []string{"FLUX", "FLUX_NOSS", "IVAR", "IVAR_NOSS", "SENSFUNC"}

// L1Loader loads L1 products: header metadata, the selected spectral
// extensions and, when FibreTable is set, the per-fibre TARGUSE flags.
type L1Loader struct {
	Headers    HeaderLoader
	Extensions []string // defaults to L1Extensions
	FibreTable bool
}

func (ll *L1Loader) Load(ctx context.Context, sel Selection) (*dataset.Dataset, error) {
	files, err := ll.Headers.Locator.Locate(sel)
	if err != nil {
		return nil, err
	}
	exps, err := ll.Headers.loadExposures(ctx, files)
	if err != nil {
		return nil, err
	}
	ds := dataset.New(exps)

	exts := ll.Extensions
	if exts == nil {
		exts = L1Extensions
	}
	images := make(map[string][][][]float64, len(exts))
	for _, name := range exts {
		images[name] = make([][][]float64, len(files))
	}
	targuse := make([][]string, len(files))

	start := time.Now()
	workers := ll.Headers.Workers
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
			for _, name := range exts {
				im, err := f.Image(name)
				if err != nil {
					return err
				}
				images[name][i] = im.Pixels
			}
			if ll.FibreTable {
				tab, err := f.Table("FIBTABLE")
				if err != nil {
					return err
				}
				use, err := tab.Strings("TARGUSE")
				if err != nil {
					return err
				}
				targuse[i] = use
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, name := range exts {
		if err := ds.AddMatrix(name, images[name]); err != nil {
			return nil, err
		}
	}
	if ll.FibreTable {
		if err := ds.AddLabels("TARGUSE", targuse); err != nil {
			return nil, err
		}
	}
	monitoring.Logf("read %d L1 extensions from %d files; took %.2f s",
		len(exts)*len(files), len(files), time.Since(start).Seconds())
	return ds, nil
}
