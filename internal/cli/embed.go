package cli

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var embedJSON bool

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Build the vector index from stored segments",
	Long: `Embed every stored segment of the repository and publish a new vector
index. A failed batch aborts the build and keeps the previous index.

Examples:
  repologic embed
  repologic embed --repo api`,
	Args: cobra.NoArgs,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
	embedCmd.Flags().BoolVar(&embedJSON, "json", false, "output as JSON")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		uc, err := a.IndexUseCase()
		if err != nil {
			return err
		}

		ec := a.cfg.Embedding
		if !embedJSON {
			fmt.Printf("Embedding %s with %s/%s...\n", currentRepo(), ec.Provider, ec.Model)
		}

		var bar *progressbar.ProgressBar
		var barMu sync.Mutex
		var shown int
		startTime := time.Now()

		progress := func(done, total int) {
			if embedJSON {
				return
			}
			barMu.Lock()
			defer barMu.Unlock()

			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionShowBytes(false),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
					progressbar.OptionSetTheme(progressbar.Theme{
						Saucer:        "[green]=[reset]",
						SaucerHead:    "[green]>[reset]",
						SaucerPadding: " ",
						BarStart:      "[",
						BarEnd:        "]",
					}),
					progressbar.OptionOnCompletion(func() {
						fmt.Println()
					}),
				)
			}

			// batches finish out of order
			if done > shown {
				shown = done
				bar.Set(done)
			}

			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}

		result, err := uc.BuildIndex(cmd.Context(), currentRepo(), progress)
		if err != nil {
			return fmt.Errorf("index build failed: %w", err)
		}

		if embedJSON {
			output, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("\nIndex build complete for %s:\n", result.RepoID)
		fmt.Printf("  Segments:  %d\n", result.Segments)
		fmt.Printf("  Batches:   %d\n", result.Batches)
		fmt.Printf("  Dimension: %d\n", result.Dimension)
		fmt.Printf("  Model:     %s\n", result.Model)
		fmt.Printf("  Took:      %s\n", formatDuration(result.Duration))
		return nil
	})
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
