// Package cli provides the cobra command-line interface for bookchat.
package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mcpress/bookchat/internal/core/ports/driven"
	"github.com/mcpress/bookchat/internal/core/ports/driving"
	"github.com/mcpress/bookchat/internal/logger"
)

// Build metadata, set at build time via ldflags.
var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

// Services injected by the composition root in cmd/bookchat.
var (
	retrievalService driving.RetrievalService
	chatService      driving.ChatService
	ingestService    driving.IngestService
	configStore      driven.ConfigStore
)

// Output styles.
var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
	confidenceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	warnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "bookchat",
	Short: "Chat with the MC Press book library",
	Long: `bookchat answers IBM i development questions grounded in the
MC Press book library. Questions are matched against indexed book
chunks; answers cite the books and pages they came from.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetBuildInfo sets the commit hash and build date printed by the
// version command. Empty values are simply not printed.
func SetBuildInfo(c, date string) {
	commit = c
	buildDate = date
}

// SetServices injects the driving services. Nil services disable the
// commands that need them.
func SetServices(retrieval driving.RetrievalService, chat driving.ChatService, ingest driving.IngestService, cfg driven.ConfigStore) {
	retrievalService = retrieval
	chatService = chat
	ingestService = ingest
	configStore = cfg
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
