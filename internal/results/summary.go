package results

import (
	"fmt"
	"io"

	"todoperf/internal/measure"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteSummary renders one row per sample, grouped by size in insertion
// order, followed by a count of the samples per operation.
func WriteSummary(w io.Writer, kind string, samples []measure.Sample) {
	if len(samples) == 0 {
		fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint("⚠️"), text.FgYellow.Sprintf("No samples recorded for %s", kind))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.SetTitle(text.FgHiCyan.Sprint(kind))
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("SIZE"),
		text.FgHiCyan.Sprint("OPERATION"),
		text.FgHiCyan.Sprint("TIME (ms)"),
		text.FgHiCyan.Sprint("CPU (%)"),
		text.FgHiCyan.Sprint("MEMORY (MB)"),
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	counts := make(map[measure.Operation]int)
	for _, s := range samples {
		counts[s.Operation]++
		t.AppendRow(table.Row{
			s.Size,
			operationColor(s.Operation).Sprint(s.Operation),
			fmt.Sprintf("%.2f", s.DurationMs()),
			fmt.Sprintf("%.2f", s.CPUPercent),
			fmt.Sprintf("%.3f", s.MemoryDeltaMB),
		})
	}

	t.AppendFooter(table.Row{
		"",
		text.FgHiBlue.Sprint("Total"),
		fmt.Sprintf("%d create", counts[measure.OpCreate]),
		fmt.Sprintf("%d update", counts[measure.OpUpdate]),
		fmt.Sprintf("%d delete", counts[measure.OpDelete]),
	})
	t.Render()
}

func operationColor(op measure.Operation) text.Colors {
	switch op {
	case measure.OpCreate:
		return text.Colors{text.FgHiGreen}
	case measure.OpUpdate:
		return text.Colors{text.FgHiYellow}
	case measure.OpDelete:
		return text.Colors{text.FgHiRed}
	default:
		return text.Colors{text.FgHiWhite}
	}
}
