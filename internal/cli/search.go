package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchText string
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find segments similar to a free-text query",
	Long: `Embed the query and print the nearest segments of the repository index,
closest first.

Examples:
  repologic search -q "retry with backoff"
  repologic search -q "database connection" --top-k 10 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	return withReadOnlyApp(func(a *app) error {
		r, err := a.Retriever()
		if err != nil {
			return err
		}

		topK := a.cfg.Retrieve.TopK
		if searchTopK > 0 {
			topK = searchTopK
		}

		results, err := r.RetrieveByQuery(cmd.Context(), currentRepo(), searchText, topK)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if searchJSON {
			output, _ := json.MarshalIndent(results, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		fmt.Printf("Found %d results for: %s\n\n", len(results), searchText)
		for i, res := range results {
			fmt.Printf("%d. ", i+1)
			printSegment(res.Segment, fmt.Sprintf(" (distance: %.4f)", res.Distance), true)
		}
		return nil
	})
}
