package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	scmd "github.com/ehrlich-b/go-scmd"
)

// renderStats lays the host counters out as a two-column table. Rounded
// borders are used only when w is a terminal.
func renderStats(w io.Writer, s scmd.MetricsSnapshot, submitted, rejected int, stalled uint64) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	if isTerminal(w) {
		tw.SetStyle(table.StyleRounded)
	}
	tw.AppendHeader(table.Row{"Counter", "Value"})

	rows := []table.Row{
		{"submitted", humanize.Comma(int64(submitted))},
		{"rejected (no tag)", humanize.Comma(int64(rejected))},
		{"completed", humanize.Comma(int64(s.TotalOps))},
		{"reads", humanize.Comma(int64(s.ReadOps))},
		{"writes", humanize.Comma(int64(s.WriteOps))},
		{"flushes", humanize.Comma(int64(s.FlushOps))},
		{"read bytes", humanize.IBytes(s.ReadBytes)},
		{"write bytes", humanize.IBytes(s.WriteBytes)},
		{"failed", fmt.Sprintf("%s (%.1f%%)", humanize.Comma(int64(s.Failed)), s.FailRate)},
		{"timeouts", humanize.Comma(int64(s.Timeouts))},
		{"retries", humanize.Comma(int64(s.Retries))},
		{"eh failures", humanize.Comma(int64(s.EHFailures))},
		{"backend stalls", humanize.Comma(int64(stalled))},
		{"max queue depth", humanize.Comma(int64(s.MaxQueueDepth))},
		{"latency p50", time.Duration(s.LatencyP50Ns).String()},
		{"latency p99", time.Duration(s.LatencyP99Ns).String()},
	}
	for _, r := range rows {
		tw.AppendRow(r)
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
