package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	apiKey  string
)

var rootCmd = &cobra.Command{
	Use:   "wt",
	Short: "workterm CLI - Manage terminal sessions from the command line",
	Long: `workterm CLI (wt) is a command-line tool for workterm servers.

It provides commands to create, list, and kill terminal sessions, inject
commands, attach to a live session, and render captured terminal output.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", getEnvOrDefault("WORKTERM_API_URL", "http://localhost:7070"), "workterm API base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("WORKTERM_API_KEY"), "workterm API key")
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func checkAPIKey() error {
	if apiKey == "" {
		return fmt.Errorf("API key is required. Set WORKTERM_API_KEY environment variable or use --api-key flag")
	}
	return nil
}
