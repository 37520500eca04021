package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcpress/bookchat/internal/core/ports/driving"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [segments.json]",
	Short: "Index pre-extracted document segments",
	Long: `Reads a JSON array of extracted segments (filename, page, type,
text) produced by the PDF extraction pipeline, chunks and embeds
them, and adds them to the active index.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading segments file: %w", err)
	}

	var segments []driving.Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return fmt.Errorf("parsing segments file: %w", err)
	}
	if len(segments) == 0 {
		return errors.New("segments file contains no segments")
	}

	count, err := ingestService.Ingest(cmd.Context(), segments)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Indexed %d chunks from %d segments\n", count, len(segments))
	return nil
}
