package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"owlrules/internal/bridge"
	"owlrules/internal/engine"
	"owlrules/internal/result"
	"owlrules/internal/term"
)

func cell(p *term.Prefixes, v term.Term) string {
	switch {
	case v.IsZero():
		return ""
	case v.IsLiteral():
		return v.Lexical
	default:
		return p.ShortForm(v.IRI)
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	return table
}

func renderTable(w io.Writer, p *term.Prefixes, t *result.Table) {
	fmt.Fprintf(w, "%s (%d rows)\n", t.Name(), t.NumRows())
	table := newTable(w, t.ColumnNames())
	for _, row := range t.Rows() {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(p, v)
		}
		table.Append(cells)
	}
	table.Render()
}

func renderDiagnostics(w io.Writer, diags []engine.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintf(w, "%d diagnostics\n", len(diags))
	table := newTable(w, []string{"rule", "built-in", "kind", "message"})
	for _, d := range diags {
		table.Append([]string{d.Rule, d.BuiltIn, d.Kind.String(), d.Message})
	}
	table.Render()
}

func renderReport(w io.Writer, p *term.Prefixes, rep *bridge.Report) {
	fmt.Fprintf(w, "run %s: %d passes, %d new facts\n", rep.RunID, rep.Passes, rep.NewFacts)
	renderDiagnostics(w, rep.Diagnostics)
	names := make([]string, 0, len(rep.Tables))
	for name := range rep.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		renderTable(w, p, rep.Tables[name])
	}
}
