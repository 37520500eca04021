package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage indexed documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [filename]",
	Short: "Delete a document and all its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	summaries, err := ingestService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if len(summaries) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	cmd.Println(titleStyle.Render("Documents"))
	for _, d := range summaries {
		cmd.Printf("  %s (%d chunks)\n", d.Filename, d.ChunkCount)
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	filename := args[0]
	if err := ingestService.Delete(cmd.Context(), filename); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	cmd.Printf("Deleted %s\n", filename)
	return nil
}
