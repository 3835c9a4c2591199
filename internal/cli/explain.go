package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"repologic/internal/usecase"
)

var (
	explainCodeFile string
	explainJSON     bool
)

var explainCmd = &cobra.Command{
	Use:   "explain <file> <start-line> <end-line>",
	Short: "Explain a selected line range using related code as context",
	Long: `Retrieve the segments covering a selection and the most similar segments
elsewhere in the repository, then ask the generation model to explain the
selected code.

Examples:
  repologic explain internal/app.go 40 60
  repologic explain internal/app.go 40 60 --code-file /tmp/edited.go`,
	Args: cobra.ExactArgs(3),
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
	explainCmd.Flags().StringVar(&explainCodeFile, "code-file", "", "file holding the selected code (default: cut from stored segments)")
	explainCmd.Flags().BoolVar(&explainJSON, "json", false, "output as JSON")
}

func runExplain(cmd *cobra.Command, args []string) error {
	path, start, end, err := parseSelection(args)
	if err != nil {
		return err
	}

	req := usecase.ExplainRequest{
		RepoID:    currentRepo(),
		FilePath:  path,
		StartLine: start,
		EndLine:   end,
	}
	if explainCodeFile != "" {
		code, err := os.ReadFile(explainCodeFile)
		if err != nil {
			return fmt.Errorf("failed to read selected code: %w", err)
		}
		req.SelectedCode = string(code)
	}

	return withReadOnlyApp(func(a *app) error {
		uc, err := a.ExplainUseCase()
		if err != nil {
			return err
		}

		explanation, err := uc.Explain(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("explain failed: %w", err)
		}

		if explainJSON {
			output, _ := json.MarshalIndent(explanation, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("%s:%d-%d (%d context segments)\n\n", explanation.FilePath, explanation.StartLine, explanation.EndLine, explanation.ContextUsed)
		fmt.Println(explanation.Text)
		return nil
	})
}
