package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var formatCmd = &cobra.Command{
	Use:   "format <document-id>",
	Short: "Format optimized cards as an importable Anki deck",
	Long: `Run the fifth pipeline stage: flatten the optimized cards into a single
semicolon separated text deck with Anki import headers. The deck path is
printed with the formatting summary; 'ankidoc deck' prints the deck
itself.`,
	Args: cobra.ExactArgs(1),
	RunE: runFormat,
}

var (
	formatRun   string
	formatType  string
	formatForce bool
)

func init() {
	rootCmd.AddCommand(formatCmd)

	formatCmd.Flags().StringVar(&formatRun, "run", "",
		"Analysis run to operate on (default: latest)")
	formatCmd.Flags().StringVarP(&formatType, "type", "t", "basic",
		"Card type (basic, cloze)")
	formatCmd.Flags().BoolVar(&formatForce, "force", false,
		"Discard the previous deck and reformat")
}

func runFormat(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := app.pipeline.Format(ctx, args[0], formatRun, formatType, formatForce)
	if err != nil {
		return err
	}
	return printJSON(result)
}

var deckCmd = &cobra.Command{
	Use:   "deck <document-id>",
	Short: "Print a formatted deck to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeck,
}

var (
	deckRun  string
	deckType string
)

func init() {
	rootCmd.AddCommand(deckCmd)

	deckCmd.Flags().StringVar(&deckRun, "run", "",
		"Analysis run to read from (default: latest)")
	deckCmd.Flags().StringVarP(&deckType, "type", "t", "basic",
		"Card type (basic, cloze)")
}

func runDeck(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	deck, err := app.pipeline.ReadDeck(args[0], deckRun, deckType)
	if err != nil {
		return err
	}
	fmt.Print(deck)
	return nil
}
