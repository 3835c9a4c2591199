package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var chunkJSON bool

var chunkCmd = &cobra.Command{
	Use:   "chunk [path]",
	Short: "Segment a repository into overlapping line windows",
	Long: `Walk the repository, split every selected file into overlapping line
segments and replace the stored segment set of the repository.

Examples:
  repologic chunk .                      # Segment current directory
  repologic chunk /src/api --repo api    # Segment under an explicit repo id`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "output as JSON")
}

func runChunk(cmd *cobra.Command, args []string) error {
	path := rootDir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
		if repoFlag == "" {
			repoFlag = filepath.Base(path)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	return withApp(func(a *app) error {
		uc, err := a.SegmentUseCase()
		if err != nil {
			return err
		}

		if !chunkJSON {
			fmt.Printf("Scanning %s...\n", path)
		}
		result, err := uc.SegmentRepository(cmd.Context(), currentRepo(), path)
		if err != nil {
			return fmt.Errorf("segmenting failed: %w", err)
		}

		if chunkJSON {
			output, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("\nSegmenting complete for %s:\n", result.RepoID)
		fmt.Printf("  Files segmented: %d\n", result.FilesSegmented)
		fmt.Printf("  Files skipped:   %d (empty, binary or too large)\n", result.FilesSkipped)
		fmt.Printf("  Segments:        %d\n", result.Segments)
		if len(result.Errors) > 0 {
			fmt.Printf("\nWarnings:\n")
			for _, e := range result.Errors {
				fmt.Printf("  - %s\n", e)
			}
		}
		fmt.Printf("\nNext: repologic embed --repo %s\n", result.RepoID)
		return nil
	})
}
