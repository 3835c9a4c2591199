package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"repologic/internal/domain"
)

var (
	relatedExtraK int
	relatedJSON   bool
	relatedNoCode bool
)

var relatedCmd = &cobra.Command{
	Use:   "related <file> <start-line> <end-line>",
	Short: "Show segments at and near a line range",
	Long: `Print the stored segments overlapping a line range of a file, followed by
the most similar segments elsewhere in the repository.

Examples:
  repologic related internal/app.go 40 60
  repologic related internal/app.go 40 60 --extra-k 5 --json`,
	Args: cobra.ExactArgs(3),
	RunE: runRelated,
}

func init() {
	rootCmd.AddCommand(relatedCmd)
	relatedCmd.Flags().IntVarP(&relatedExtraK, "extra-k", "k", -1, "number of related segments (default from config)")
	relatedCmd.Flags().BoolVar(&relatedJSON, "json", false, "output as JSON")
	relatedCmd.Flags().BoolVar(&relatedNoCode, "no-code", false, "print locations only")
}

// parseSelection reads the <file> <start-line> <end-line> arguments.
func parseSelection(args []string) (string, int, int, error) {
	path, err := repoPath(args[0])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid file path: %w", err)
	}
	start, err := strconv.Atoi(args[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: invalid start line %q", domain.ErrConfiguration, args[1])
	}
	end, err := strconv.Atoi(args[2])
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: invalid end line %q", domain.ErrConfiguration, args[2])
	}
	if start < 1 || end < start {
		return "", 0, 0, fmt.Errorf("%w: invalid line range %d-%d", domain.ErrConfiguration, start, end)
	}
	return path, start, end, nil
}

func runRelated(cmd *cobra.Command, args []string) error {
	path, start, end, err := parseSelection(args)
	if err != nil {
		return err
	}

	return withReadOnlyApp(func(a *app) error {
		r, err := a.Retriever()
		if err != nil {
			return err
		}

		extraK := a.cfg.Retrieve.ExtraK
		if relatedExtraK >= 0 {
			extraK = relatedExtraK
		}

		result, err := r.RetrieveBySelection(cmd.Context(), currentRepo(), path, start, end, extraK)
		if err != nil {
			return fmt.Errorf("retrieval failed: %w", err)
		}

		if relatedJSON {
			output, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		if len(result.Exact) == 0 {
			fmt.Printf("No segments cover %s:%d-%d.\n", path, start, end)
			return nil
		}

		fmt.Printf("Segments covering %s:%d-%d:\n\n", path, start, end)
		for _, seg := range result.Exact {
			printSegment(seg, "", !relatedNoCode)
		}

		if len(result.Related) > 0 {
			fmt.Printf("Related segments:\n\n")
			for _, rel := range result.Related {
				printSegment(rel.Segment, fmt.Sprintf(" (distance: %.4f)", rel.Distance), !relatedNoCode)
			}
		}
		return nil
	})
}

func printSegment(seg domain.Segment, suffix string, withCode bool) {
	fmt.Printf("%s:%d-%d [%s]%s\n", seg.FilePath, seg.StartLine, seg.EndLine, seg.Language, suffix)
	if !withCode {
		return
	}
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println(strings.TrimRight(seg.Content, "\n"))
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println()
}
