package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"owlrules/internal/config"
	"owlrules/internal/logging"
	"owlrules/internal/ontology"
	"owlrules/internal/watch"
)

var (
	showFacts bool
	watchDocs bool
)

// inferCmd runs every active rule to the fixpoint
var inferCmd = &cobra.Command{
	Use:   "infer [documents...]",
	Short: "Run the rules to a fixpoint and print query results",
	Long: `Loads the documents in order, runs inference until a pass adds no facts,
then prints the run summary, built-in diagnostics, and one table per active
query. With --watch, the run repeats whenever a document changes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		if err := runInfer(ctx, out, cfg, args); err != nil {
			if !watchDocs {
				return err
			}
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if !watchDocs {
			return nil
		}
		return watchAndInfer(ctx, out, cfg, args)
	},
}

func runInfer(ctx context.Context, out io.Writer, cfg *config.Config, paths []string) error {
	a, err := newApp(ctx, cfg, paths)
	if err != nil {
		return err
	}
	before, err := a.store.ListFacts(ctx)
	if err != nil {
		return err
	}
	rep, err := a.bridge.Infer(ctx)
	if err != nil {
		return err
	}
	renderReport(out, a.prefixes, rep)
	if showFacts {
		after, err := a.store.ListFacts(ctx)
		if err != nil {
			return err
		}
		inferred := after[len(before):]
		ontology.SortFacts(inferred)
		fmt.Fprintf(out, "%d inferred facts\n", len(inferred))
		for _, f := range inferred {
			fmt.Fprintln(out, factText(a, f))
		}
	}
	return nil
}

// factText renders f with the loaded prefixes.
func factText(a *app, f ontology.Fact) string {
	switch f.Kind {
	case ontology.ClassAssertion:
		return fmt.Sprintf("%s(%s)", cell(a.prefixes, f.Object), cell(a.prefixes, f.Subject))
	case ontology.PropertyAssertion:
		return fmt.Sprintf("%s(%s, %s)", cell(a.prefixes, f.Predicate), cell(a.prefixes, f.Subject), cell(a.prefixes, f.Object))
	}
	return f.String()
}

// watchAndInfer rebuilds the store and re-runs inference on every settled
// batch of document changes until ctx ends.
func watchAndInfer(ctx context.Context, out io.Writer, cfg *config.Config, paths []string) error {
	seen := map[string]bool{}
	var dirs []string
	for _, p := range paths {
		dir := filepath.Dir(p)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)

	w, err := watch.New(func(ctx context.Context, changed []string) error {
		fmt.Fprintf(out, "changed: %v\n", changed)
		return runInfer(ctx, out, cfg, paths)
	}, dirs)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	logging.Get(logging.CategoryWatch).Info("watching %d directories, interrupt to stop", len(dirs))
	<-ctx.Done()
	return nil
}
