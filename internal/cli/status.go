package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"repologic/internal/domain"
)

var (
	statusJSON bool
	statusAll  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how far a repository has been processed",
	Long: `Report whether a repository is unseen, segmented or indexed, with its
segment count and index header.

Examples:
  repologic status
  repologic status --all --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "report every segmented repository")
}

type statusOutput struct {
	RepoID    string             `json:"repo_id"`
	Readiness string             `json:"readiness"`
	Segments  int                `json:"segments"`
	Index     *domain.IndexStats `json:"index,omitempty"`
	Stale     bool               `json:"stale,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withReadOnlyApp(func(a *app) error {
		repos := []string{currentRepo()}
		if statusAll {
			var err error
			repos, err = a.chunks.Repos()
			if err != nil {
				return fmt.Errorf("failed to list repositories: %w", err)
			}
		}

		uc := a.StatusUseCase()
		var out []statusOutput
		for _, repo := range repos {
			st, err := uc.Status(repo)
			if err != nil {
				return err
			}
			out = append(out, statusOutput{
				RepoID:    st.RepoID,
				Readiness: st.Readiness.String(),
				Segments:  st.Segments,
				Index:     st.Index,
				Stale:     st.Stale,
			})
		}

		if statusJSON {
			output, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		if len(out) == 0 {
			fmt.Println("No repositories segmented yet.")
			return nil
		}
		for _, o := range out {
			fmt.Printf("%s: %s\n", o.RepoID, o.Readiness)
			fmt.Printf("  Segments:  %d\n", o.Segments)
			if o.Index != nil {
				fmt.Printf("  Vectors:   %d (dimension %d)\n", o.Index.Count, o.Index.Dimension)
				fmt.Printf("  Model:     %s\n", o.Index.Model)
				fmt.Printf("  Built at:  %s\n", o.Index.BuiltAt.Local().Format("2006-01-02 15:04:05"))
			}
			switch {
			case o.Stale && o.Readiness == domain.Unseen.String():
				fmt.Printf("  Index has no segment set, run `repologic chunk` then `repologic embed --repo %s`\n", o.RepoID)
			case o.Stale:
				fmt.Printf("  Index is out of date, run `repologic embed --repo %s`\n", o.RepoID)
			}
		}
		return nil
	})
}
