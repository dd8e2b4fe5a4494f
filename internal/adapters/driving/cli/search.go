package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

var (
	searchLimit     int
	searchThreshold float64
	searchJSON      bool
)

// Result styling.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	snippetStyle = lipgloss.NewStyle().Faint(true).PaddingLeft(4)
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested documents by similarity",
	Long: `Embeds the query and returns the most similar stored chunks.
Results below the similarity threshold are excluded.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultRetrievalLimit, "maximum number of results")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", domain.DefaultRetrievalThreshold, "minimum similarity score")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrieverService == nil {
		return errors.New("retriever not configured")
	}

	opts := domain.RetrievalOptions{Limit: searchLimit}
	// An explicit --threshold 0 means no cutoff; only pass the flag value
	// through when the user set it.
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = domain.NewThreshold(searchThreshold)
	}

	results, err := retrieverService.Retrieve(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchText(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SimilarityResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, results []domain.SimilarityResult) error {
	if len(results) == 0 {
		cmd.Println("No results above the similarity threshold.")
		return nil
	}

	for i, r := range results {
		title := documentTitle(r.Document)
		cmd.Printf("%s %s\n",
			titleStyle.Render(fmt.Sprintf("[%d] %s", i+1, title)),
			scoreStyle.Render(fmt.Sprintf("(%.3f)", r.Score)),
		)
		cmd.Println(snippetStyle.Render(snippet(r.Document.Content, 200)))
		cmd.Println()
	}
	return nil
}

// documentTitle prefers metadata title, then filename, then the ID.
func documentTitle(doc domain.Document) string {
	if title, ok := doc.Metadata["title"].(string); ok && title != "" {
		return title
	}
	if name, ok := doc.Metadata["filename"].(string); ok && name != "" {
		return name
	}
	return doc.ID
}

// snippet truncates content on a rune boundary.
func snippet(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "…"
}
