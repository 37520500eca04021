package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcpress/bookchat/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage retrieval settings",
	Long: `Shows and edits persisted retrieval settings. Environment
variables override the stored values at startup.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set and persist one setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cfg := services.ConfigFromStore(configStore, services.DefaultConfig())

	cmd.Println(titleStyle.Render("Retrieval settings"))
	cmd.Printf("  %s: %.2f\n", services.KeyRelevanceThreshold, cfg.Relevance.BaselineThreshold)
	cmd.Printf("  %s: %d\n", services.KeyMaxSources, cfg.Relevance.MaxSources)
	cmd.Printf("  %s: %d\n", services.KeyInitialResults, cfg.InitialResults)
	cmd.Printf("  %s: %d\n", services.KeyContextTokenBudget, cfg.ContextTokenBudget)
	cmd.Println(mutedStyle.Render("config file: " + configStore.Path()))
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	val, ok := configStore.Get(args[0])
	if !ok {
		return fmt.Errorf("key %q is not set", args[0])
	}
	cmd.Printf("%v\n", val)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, raw := args[0], args[1]
	if err := configStore.Set(key, parseConfigValue(raw)); err != nil {
		return fmt.Errorf("saving %q: %w", key, err)
	}

	cmd.Printf("Set %s = %s\n", key, raw)
	return nil
}

// parseConfigValue keeps numeric and boolean settings typed in the
// TOML file instead of storing everything as strings.
func parseConfigValue(raw string) any {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return v
	}
	return raw
}
