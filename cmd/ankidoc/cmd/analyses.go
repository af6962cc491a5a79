package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Antoine93/anki-doc-master/internal/core"
)

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Inspect analysis runs",
}

var analysesListCmd = &cobra.Command{
	Use:   "list <document-id>",
	Short: "List a document's analysis runs, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalysesList,
}

var analysesDeleteCmd = &cobra.Command{
	Use:   "delete <document-id> <run-id>",
	Short: "Delete one analysis run and its stage output",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalysesDelete,
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the content modules the analyzer can detect",
	Args:  cobra.NoArgs,
	RunE:  runModules,
}

func init() {
	rootCmd.AddCommand(analysesCmd)
	analysesCmd.AddCommand(analysesListCmd)
	analysesCmd.AddCommand(analysesDeleteCmd)
	rootCmd.AddCommand(modulesCmd)
}

func runAnalysesList(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	runs, err := app.pipeline.ListAnalyses(args[0])
	if err != nil {
		return err
	}
	return printJSON(runs)
}

func runAnalysesDelete(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	existed, err := app.pipeline.DeleteAnalysis(args[0], args[1])
	if err != nil {
		return err
	}
	if !existed {
		return core.ErrNotFound("analysis", args[1])
	}
	fmt.Printf("deleted run %s\n", args[1])
	return nil
}

func runModules(_ *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	return printJSON(app.pipeline.AvailableModules())
}
