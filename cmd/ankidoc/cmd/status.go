package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <document-id>",
	Short: "Show per-stage progress for a document",
	Long: `Read the tracking ledgers of one analysis run into a single view: the
detected modules plus the per-module state of restructure, generate and
optimize for both card types.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

var statusRun string

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusRun, "run", "",
		"Analysis run to inspect (default: latest)")
}

func runStatus(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()

	view, err := app.pipeline.Status(ctx, args[0], statusRun)
	if err != nil {
		return err
	}
	return printJSON(view)
}
