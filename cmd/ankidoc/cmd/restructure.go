package cmd

import (
	"github.com/spf13/cobra"
)

var restructureCmd = &cobra.Command{
	Use:   "restructure <document-id>",
	Short: "Extract structured items for each detected module",
	Long: `Run the second pipeline stage: for every module the analysis detected,
ask the reasoning engine to restructure the document content into items
and persist them one file per item.

Progress is tracked per module. If a previous attempt was interrupted,
only the modules that did not complete are reprocessed. Use --force to
discard the stage output and start over.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestructure,
}

var (
	restructureRun     string
	restructureModules []string
	restructureForce   bool
)

func init() {
	rootCmd.AddCommand(restructureCmd)

	restructureCmd.Flags().StringVar(&restructureRun, "run", "",
		"Analysis run to operate on (default: latest)")
	restructureCmd.Flags().StringSliceVar(&restructureModules, "modules", nil,
		"Restrict to these modules (default: all detected)")
	restructureCmd.Flags().BoolVar(&restructureForce, "force", false,
		"Discard previous stage output and reprocess every module")
}

func runRestructure(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := app.pipeline.Restructure(ctx, args[0], restructureRun, restructureModules, restructureForce)
	if err != nil {
		return err
	}
	return printJSON(result)
}
