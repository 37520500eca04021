package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mcpress/bookchat/internal/adapters/driving/tui"
	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
)

var chatInteractive bool

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask a question against the book library",
	Long: `Answers a question grounded in the indexed MC Press books,
streaming the reply and citing the books and pages it came from.
With --interactive, starts a conversation loop that keeps history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVarP(&chatInteractive, "interactive", "i", false, "start an interactive conversation")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured (set an LLM provider)")
	}

	if chatInteractive {
		return tui.Run(cmd.Context(), chatService)
	}

	if len(args) == 0 {
		return errors.New("provide a question, or use --interactive")
	}

	_, err := askOnce(cmd, args[0], nil)
	return err
}

// askOnce streams one answer and prints its citations. It returns the
// answer so the interactive loop can extend the history.
func askOnce(cmd *cobra.Command, question string, history []driven.ChatMessage) (*domain.Answer, error) {
	out := cmd.OutOrStdout()

	answer, err := chatService.Ask(cmd.Context(), question, history, func(delta string) error {
		_, werr := io.WriteString(out, delta)
		return werr
	})
	if err != nil {
		return nil, fmt.Errorf("chat failed: %w", err)
	}

	cmd.Println()
	printAnswerMeta(cmd, answer)
	return answer, nil
}

// printAnswerMeta renders sources and confidence under an answer.
func printAnswerMeta(cmd *cobra.Command, answer *domain.Answer) {
	if !answer.UsedContext {
		cmd.Println()
		cmd.Println(warnStyle.Render("Answered from general knowledge; no matching documentation was found."))
		return
	}

	cmd.Println()
	cmd.Println(titleStyle.Render("Sources"))
	for _, src := range answer.Sources {
		line := fmt.Sprintf("  %s, p. %s", src.Title, src.Page)
		if src.Author != "" {
			line += " by " + src.Author
		}
		cmd.Println(line)
		if src.MCPressURL != "" {
			cmd.Println(mutedStyle.Render("    " + src.MCPressURL))
		}
	}
	cmd.Println(confidenceStyle.Render(fmt.Sprintf("Confidence: %.3f", answer.Confidence)))
}

