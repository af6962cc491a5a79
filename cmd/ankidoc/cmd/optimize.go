package cmd

import (
	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <document-id>",
	Short: "Optimize generated cards for their content type",
	Long: `Run the fourth pipeline stage: rework each module's cards with a prompt
picked for the dominant content type (math, code, tables, images or
generic). Detection inspects the cards themselves; --content-type pins
the choice for every module instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

var (
	optimizeRun         string
	optimizeType        string
	optimizeContentType string
	optimizeForce       bool
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVar(&optimizeRun, "run", "",
		"Analysis run to operate on (default: latest)")
	optimizeCmd.Flags().StringVarP(&optimizeType, "type", "t", "basic",
		"Card type (basic, cloze)")
	optimizeCmd.Flags().StringVar(&optimizeContentType, "content-type", "",
		"Pin the content type (generic, math, code, tables, images)")
	optimizeCmd.Flags().BoolVar(&optimizeForce, "force", false,
		"Discard previous stage output and reprocess every module")
}

func runOptimize(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := app.pipeline.Optimize(ctx, args[0], optimizeRun, optimizeType, optimizeContentType, optimizeForce)
	if err != nil {
		return err
	}
	return printJSON(result)
}
