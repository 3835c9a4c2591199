package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askQuestion string
	askSources  bool
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Answer a question about the repository",
	Long: `Retrieve the segments nearest to the question and ask the generation model
to answer from them.

Examples:
  repologic ask "where are retries configured"
  repologic ask -q "how is the index published" --sources`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question (alternative to positional words)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "list the segments used as context")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := questionArg(args, askQuestion)

	return withReadOnlyApp(func(a *app) error {
		uc, err := a.AskUseCase()
		if err != nil {
			return err
		}

		answer, err := uc.Ask(cmd.Context(), currentRepo(), question)
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}

		if askJSON {
			output, _ := json.MarshalIndent(answer, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Println(answer.Text)
		if askSources && len(answer.Sources) > 0 {
			fmt.Printf("\nSources:\n")
			for _, s := range answer.Sources {
				fmt.Printf("  - %s:%d-%d (distance: %.4f)\n", s.Segment.FilePath, s.Segment.StartLine, s.Segment.EndLine, s.Distance)
			}
		}
		return nil
	})
}

// questionArg joins positional words into one question, falling back to flag.
func questionArg(args []string, flag string) string {
	if flag != "" {
		return flag
	}
	return strings.Join(args, " ")
}
