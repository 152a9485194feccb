package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/highlight"
)

var (
	highlightOpen  string
	highlightClose string
)

var highlightCmd = &cobra.Command{
	Use:   "highlight [text] [filter]",
	Short: "Mark the words of a filter inside a text",
	Long: `Marks every occurrence of the filter's words inside the text. Words
match by stem unless quoted. Markup tags in the text are never marked.`,
	Args: cobra.ExactArgs(2),
	RunE: runHighlight,
}

func init() {
	highlightCmd.Flags().StringVar(&highlightOpen, "open", "[", "string inserted before each match")
	highlightCmd.Flags().StringVar(&highlightClose, "close", "]", "string inserted after each match")
	rootCmd.AddCommand(highlightCmd)
}

type highlightOutput struct {
	highlight.MarkedText
	Rendered string `json:"rendered"`
}

func runHighlight(cmd *cobra.Command, args []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}
	marked := svc.Highlighter.MarkMatches(args[0], args[1])
	rendered := marked.Render(highlightOpen, highlightClose)
	if jsonOutput {
		return writeJSON(cmd, highlightOutput{MarkedText: marked, Rendered: rendered})
	}
	fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return nil
}
