package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcpress/bookchat/internal/core/ports/driving"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Inspect raw retrieval for a query",
	Long: `Runs the retrieval pipeline without the chat layer: shows the
relevance threshold applied, the surviving results with distances,
and the confidence score.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchOutput is the JSON shape for one retrieval pass.
type searchOutput struct {
	Query      string             `json:"query"`
	Threshold  float64            `json:"threshold"`
	Confidence float64            `json:"confidence"`
	Results    []searchResultJSON `json:"results"`
}

type searchResultJSON struct {
	Filename   string  `json:"filename"`
	Page       string  `json:"page"`
	Type       string  `json:"type"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
	TrueVector bool    `json:"true_vector"`
	Content    string  `json:"content"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	retrieval, err := retrievalService.Retrieve(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, query, retrieval)
	}
	return outputSearchTable(cmd, retrieval)
}

func outputSearchJSON(cmd *cobra.Command, query string, retrieval *driving.Retrieval) error {
	out := searchOutput{
		Query:      query,
		Threshold:  retrieval.Threshold,
		Confidence: retrieval.Confidence,
		Results:    make([]searchResultJSON, 0, len(retrieval.Results)),
	}
	for _, r := range retrieval.Results {
		out.Results = append(out.Results, searchResultJSON{
			Filename:   r.Metadata.Filename,
			Page:       r.PageLabel(),
			Type:       string(r.Metadata.Type),
			Distance:   r.Distance,
			Similarity: r.Similarity,
			TrueVector: r.TrueVector,
			Content:    r.Content,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, retrieval *driving.Retrieval) error {
	cmd.Println(mutedStyle.Render(fmt.Sprintf("threshold %.2f", retrieval.Threshold)))

	if len(retrieval.Results) == 0 {
		cmd.Println("No results above the relevance threshold.")
		return nil
	}

	cmd.Println(titleStyle.Render("Results"))
	for i, r := range retrieval.Results {
		cmd.Printf("  [%d] %s, p. %s (%s, distance %.3f)\n",
			i+1, r.Metadata.Filename, r.PageLabel(), r.Metadata.Type, r.Distance)

		snippet := r.Content
		if runes := []rune(snippet); len(runes) > 120 {
			snippet = string(runes[:120]) + "..."
		}
		cmd.Println(mutedStyle.Render("      " + snippet))
	}
	cmd.Println(confidenceStyle.Render(fmt.Sprintf("Confidence: %.3f", retrieval.Confidence)))
	return nil
}
