package main

import (
	"github.com/spf13/cobra"
)

// queryCmd runs inference and prints one query
var queryCmd = &cobra.Command{
	Use:   "query [name] [documents...]",
	Short: "Run the rules to a fixpoint and print one query's table",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, args[1:])
		if err != nil {
			return err
		}
		tbl, err := a.bridge.Query(ctx, args[0])
		if err != nil {
			return err
		}
		renderTable(cmd.OutOrStdout(), a.prefixes, tbl)
		return nil
	},
}
