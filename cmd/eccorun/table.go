package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// shardTable describes a table of per-shard numbers. Columns not listed in
// right are left aligned; the footer, when set, sits below a separator.
type shardTable struct {
	headers []string
	rows    [][]string
	footer  []string
	right   map[int]bool
}

func (t shardTable) render() string {
	width := len(t.headers)
	if width == 0 {
		return ""
	}
	row := func(values []string) table.Row {
		out := make(table.Row, width)
		for i := range out {
			out[i] = ""
			if i < len(values) {
				out[i] = values[i]
			}
		}
		return out
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(row(t.headers))
	for _, r := range t.rows {
		tw.AppendRow(row(r))
	}
	if len(t.footer) > 0 {
		tw.AppendFooter(row(t.footer))
	}

	configs := make([]table.ColumnConfig, width)
	for i := range configs {
		align := text.AlignLeft
		if t.right[i] {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignFooter: align, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}
