package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cocursor/ontosync/internal/wire"
)

var validate bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print node and relation counts of the persisted ontology",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&validate, "validate", false, "also report import cycles and orphan nodes")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, app *wire.App) error {
		stats, err := app.Orchestrator.GetStats(ctx)
		if err != nil {
			return err
		}
		if !validate {
			return printJSON(stats)
		}

		report, err := app.Orchestrator.ValidateOntology(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"stats":      stats,
			"validation": report,
		})
	})
}
