package cmd

import (
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <document-id>",
	Short: "Generate flashcards from restructured items",
	Long: `Run the third pipeline stage: turn each module's restructured items into
flashcards of the requested type (basic or cloze).

Image modules are skipped unless named explicitly with --modules. A rate
limited engine call is retried once after the usage window resets. Like
restructure, the stage resumes from incomplete modules unless --force is
given.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

var (
	generateRun     string
	generateType    string
	generateModules []string
	generateForce   bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generateRun, "run", "",
		"Analysis run to operate on (default: latest)")
	generateCmd.Flags().StringVarP(&generateType, "type", "t", "basic",
		"Card type (basic, cloze)")
	generateCmd.Flags().StringSliceVar(&generateModules, "modules", nil,
		"Restrict to these modules (overrides the default image exclusion)")
	generateCmd.Flags().BoolVar(&generateForce, "force", false,
		"Discard previous stage output and reprocess every module")
}

func runGenerate(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := app.pipeline.Generate(ctx, args[0], generateRun, generateType, generateModules, generateForce)
	if err != nil {
		return err
	}
	return printJSON(result)
}
