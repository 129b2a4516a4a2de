package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cocursor/ontosync/internal/wire"
)

var indexCmd = &cobra.Command{
	Use:   "index [root...]",
	Short: "Build the ontology for the given roots once and exit",
	Long: `Walk every root, ingest all files and remove graph nodes for files that
no longer exist. Without arguments the configured watch.roots are used.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, app *wire.App) error {
		report, err := app.Orchestrator.BuildInitialOntology(ctx, args)
		if err != nil {
			return err
		}
		return printJSON(report)
	})
}
