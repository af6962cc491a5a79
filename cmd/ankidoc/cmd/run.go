package cmd

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <document-id>",
	Short: "Run the full pipeline for one document",
	Long: `Execute all five stages in sequence: analyze, restructure, generate,
optimize and format. An existing analysis is reused unless --force is
given. The combined result of every stage is printed at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runType  string
	runForce bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runType, "type", "t", "basic",
		"Card type (basic, cloze)")
	runCmd.Flags().BoolVar(&runForce, "force", false,
		"Discard existing output at every stage")
}

func runRun(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := app.pipeline.Run(ctx, args[0], runType, runForce)
	if err != nil {
		return err
	}
	return printJSON(result)
}
