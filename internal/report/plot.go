package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/weave-qa/qagmire/internal/diagnostics"
)

// SaveStatPlot writes a PNG of one statistic column against element index.
// The file extension of path selects the output format, as in plot.Save.
func SaveStatPlot(path, check, column string, st *diagnostics.Stats) error {
	if st == nil {
		return fmt.Errorf("report: run has no statistics to plot")
	}
	values, ok := st.Values[column]
	if !ok {
		return fmt.Errorf("report: no statistic column %q", column)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s", check, column)
	p.X.Label.Text = "element"
	p.Y.Label.Text = column

	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("report: building line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("report: building scatter: %w", err)
	}
	scatter.Radius = vg.Points(2)
	p.Add(scatter)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("report: saving plot: %w", err)
	}
	return nil
}
