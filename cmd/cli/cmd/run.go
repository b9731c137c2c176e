package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/workterm/workterm/pkg/client"
)

var runCmd = &cobra.Command{
	Use:   "run <session-id> <command> [args...]",
	Short: "Run a command in a terminal session",
	Long: `Inject a command line into a running terminal session as if typed,
terminated by newline. The command goes through the session's input queue,
so it never interleaves with concurrent interactive input.
Example: wt run abc12345 ls -la`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkAPIKey(); err != nil {
			return err
		}

		sessionID := args[0]
		command := strings.Join(args[1:], " ")

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := c.RunCommand(ctx, sessionID, command); err != nil {
			return fmt.Errorf("failed to run command: %w", err)
		}

		fmt.Printf("✓ Command queued on terminal %s\n", sessionID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Stop parsing flags after the first non-flag arg so that
	// arguments like --version are passed to the shell command,
	// not interpreted by Cobra.
	runCmd.Flags().SetInterspersed(false)
}
