package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"owlrules/internal/config"
	"owlrules/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	engineName string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "owlrules",
	Short: "owlrules - SWRL rules and SQWRL queries over OWL ontologies",
	Long: `owlrules loads ontology documents (YAML: prefixes, declarations, facts,
axioms, SWRL rules and SQWRL queries), runs the rules to a fixpoint with a
pluggable rule engine, writes the inferred facts back, and prints query
results as tables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if engineName != "" {
			cfg.Bridge.Engine = engineName
		}
		if verbose {
			cfg.Logging.DebugMode = true
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := logging.Initialize(cfg.Logging.Options()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Get(logging.CategoryBoot).Debug("config loaded from %s: engine=%s max_passes=%d", configPath, cfg.Bridge.Engine, cfg.Bridge.MaxPasses)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "owlrules.yaml", "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().StringVar(&engineName, "engine", "", "Rule engine (native, mangle); overrides the config")

	inferCmd.Flags().BoolVar(&showFacts, "facts", false, "Print every inferred fact")
	inferCmd.Flags().BoolVarP(&watchDocs, "watch", "w", false, "Re-run when documents change")

	rootCmd.AddCommand(inferCmd, queryCmd, checkCmd, rulesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
