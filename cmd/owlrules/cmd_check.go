package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// checkCmd loads documents without running inference
var checkCmd = &cobra.Command{
	Use:   "check [documents...]",
	Short: "Load documents and report problems without running inference",
	Long: `Parses every document, asserts its facts into a scratch store, and
registers its rules and queries, so syntax errors, unsafe rules and ill-kinded
facts surface. Built-ins that no library registers are reported too.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d documents: %d facts, %d rules, %d queries\n",
			a.summary.Documents, a.summary.Facts, a.summary.Rules, a.summary.Queries)

		unknown := 0
		report := func(owner string, names []string) {
			for _, name := range names {
				if _, ok := a.builtIns.Lookup(name); !ok {
					fmt.Fprintf(out, "%s: unknown built-in %s\n", owner, a.prefixes.ShortForm(name))
					unknown++
				}
			}
		}
		for _, r := range a.bridge.Rules() {
			report(r.Name(), r.BuiltIns())
		}
		for _, q := range a.bridge.Queries() {
			report(q.Name(), q.BuiltIns())
		}
		if unknown > 0 {
			return fmt.Errorf("%d unknown built-in references", unknown)
		}
		fmt.Fprintln(out, "ok")
		return nil
	},
}

// rulesCmd lists the loaded rules and queries
var rulesCmd = &cobra.Command{
	Use:   "rules [documents...]",
	Short: "List rules and queries in short form",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, args)
		if err != nil {
			return err
		}
		table := newTable(cmd.OutOrStdout(), []string{"name", "kind", "active", "text"})
		for _, r := range a.bridge.Rules() {
			table.Append([]string{r.Name(), "rule", strconv.FormatBool(r.Active()), r.Render(a.prefixes)})
		}
		for _, q := range a.bridge.Queries() {
			table.Append([]string{q.Name(), "query", strconv.FormatBool(q.Active()), q.Render(a.prefixes)})
		}
		table.Render()
		return nil
	},
}
