// Package report renders evaluated diagnostic runs: terminal tables,
// standalone HTML chart pages and PNG plots.
package report

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/weave-qa/qagmire/internal/diagnostics"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// failMark is what a failing cell renders as; passing cells stay blank so
// failures stand out in a wide table.
const failMark = "x"

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func mark(fail bool) string {
	if fail {
		return failMark
	}
	return ""
}

// SummaryTable renders the filtered failure table: one row per failing
// element, one column per failing test, totals last.
func SummaryTable(s *diagnostics.Summary) string {
	headers := append([]string{"element"}, s.Tests...)
	headers = append(headers, "total fails")
	aligns := make([]columnAlignment, len(headers))
	aligns[len(headers)-1] = alignRight

	rows := make([][]string, len(s.Elements))
	for i, el := range s.Elements {
		row := []string{el}
		for _, f := range s.Fails[i] {
			row = append(row, mark(f))
		}
		row = append(row, strconv.Itoa(s.Totals[i]))
		rows[i] = row
	}
	return renderTable(headers, rows, aligns)
}

// PerTestTable renders the unfiltered per-test failure counts.
func PerTestTable(tc *diagnostics.TestCounts) string {
	rows := make([][]string, len(tc.Names))
	for i, name := range tc.Names {
		rows[i] = []string{name, tc.Descriptions[i], strconv.Itoa(tc.Counts[i])}
	}
	return renderTable(
		[]string{"test", "description", "failures"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight})
}

// MatrixTable renders the complete element x test boolean matrix.
func MatrixTable(m *diagnostics.Matrix) string {
	headers := append([]string{"element"}, m.Tests...)
	rows := make([][]string, len(m.Elements))
	for i, el := range m.Elements {
		row := []string{el}
		for _, f := range m.Fail[i] {
			row = append(row, mark(f))
		}
		rows[i] = row
	}
	return renderTable(headers, rows, make([]columnAlignment, len(headers)))
}

// StatsTable renders the auxiliary per-element statistics.
func StatsTable(elements []string, st *diagnostics.Stats) string {
	if st == nil {
		return ""
	}
	headers := append([]string{"element"}, st.Columns...)
	aligns := make([]columnAlignment, len(headers))
	for i := 1; i < len(aligns); i++ {
		aligns[i] = alignRight
	}

	rows := make([][]string, len(elements))
	for i, el := range elements {
		row := []string{el}
		for _, col := range st.Columns {
			row = append(row, fmt.Sprintf("%.4g", st.Values[col][i]))
		}
		rows[i] = row
	}
	return renderTable(headers, rows, aligns)
}
