package cmd

import (
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <document-id>",
	Short: "Detect content modules in a document",
	Long: `Run the first pipeline stage: send the document to the reasoning engine
and record which content modules it contains (themes, vocabulary, tables,
math formulas, code, images).

A document that was already analyzed is refused unless --force is given,
in which case a new analysis run is created and becomes the latest. Older
runs stay addressable by their run id.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var analyzeForce bool

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false,
		"Start a new analysis run even if one exists")
}

func runAnalyze(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()

	analysis, err := app.pipeline.Analyze(ctx, args[0], analyzeForce)
	if err != nil {
		return err
	}
	return printJSON(analysis)
}
