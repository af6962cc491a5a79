package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage registered source documents",
}

var documentsRegisterCmd = &cobra.Command{
	Use:   "register <path>",
	Short: "Register a PDF so the pipeline can process it",
	Long: `Register a source document by path. Registration is idempotent: a path
already present in the index keeps its identifier and refreshes its size.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentsRegister,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document and all of its pipeline output",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	rootCmd.AddCommand(documentsCmd)
	documentsCmd.AddCommand(documentsRegisterCmd)
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
}

func runDocumentsRegister(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	doc, err := app.pipeline.RegisterDocument(args[0])
	if err != nil {
		return err
	}
	return printJSON(doc)
}

func runDocumentsList(_ *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	docs, err := app.pipeline.ListDocuments()
	if err != nil {
		return err
	}
	return printJSON(docs)
}

func runDocumentsDelete(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.pipeline.DeleteDocument(args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted document %s\n", args[0])
	return nil
}
