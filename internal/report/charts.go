package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/weave-qa/qagmire/internal/diagnostics"
)

// failureBar charts the per-test failure counts of one run.
func failureBar(check string, tc *diagnostics.TestCounts) *charts.Bar {
	y := make([]opts.BarData, len(tc.Counts))
	for i, n := range tc.Counts {
		y[i] = opts.BarData{Value: n}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s failures per test", check),
			Subtitle: fmt.Sprintf("%d tests", len(tc.Names)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(tc.Names).
		AddSeries("failures", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

// statScatter charts one auxiliary statistic against element index.
func statScatter(column string, elements []string, values []float64) *charts.Scatter {
	data := make([]opts.ScatterData, len(values))
	for i, v := range values {
		data[i] = opts.ScatterData{Value: []interface{}{elements[i], v}}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: column}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "element"}),
		charts.WithYAxisOpts(opts.YAxis{Name: column}),
	)
	scatter.AddSeries(column, data,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter
}

// RenderHTML writes a standalone chart page for an evaluated run: the
// failure bar chart plus one scatter per statistic column.
func RenderHTML(w io.Writer, r *diagnostics.Runner) error {
	doc, err := r.Report()
	if err != nil {
		return err
	}
	return RenderReportHTML(w, doc)
}

// RenderReportHTML writes the same chart page from a stored report
// document, so the server can chart past runs.
func RenderReportHTML(w io.Writer, doc *diagnostics.Report) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s %s", doc.Check, doc.RunID)
	page.AddCharts(failureBar(doc.Check, doc.TestCounts()))

	if st := doc.Statistics(); st != nil {
		for _, col := range st.Columns {
			page.AddCharts(statScatter(col, doc.Elements, st.Values[col]))
		}
	}
	return page.Render(w)
}
