package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/workterm/workterm/pkg/client"
	"github.com/workterm/workterm/pkg/types"
)

var terminalCmd = &cobra.Command{
	Use:     "terminal",
	Aliases: []string{"term"},
	Short:   "Manage terminal sessions",
	Long:    `Create, list, inspect, and kill terminal sessions.`,
}

var createCmd = &cobra.Command{
	Use:   "create <workspace-id>",
	Short: "Create a new terminal session",
	Long:  `Spawn a shell in the workspace and register a terminal session for it.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkAPIKey(); err != nil {
			return err
		}

		workspaceID := args[0]
		rows, _ := cmd.Flags().GetInt("rows")
		cols, _ := cmd.Flags().GetInt("cols")
		principal, _ := cmd.Flags().GetString("principal")

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		session, err := c.CreateTerminal(ctx, workspaceID, types.TerminalCreateRequest{
			Rows:      rows,
			Cols:      cols,
			Principal: principal,
		})
		if err != nil {
			return fmt.Errorf("failed to create terminal: %w", err)
		}

		fmt.Printf("✓ Terminal created: %s\n", session.SessionID)
		fmt.Printf("  Workspace: %s\n", session.WorkspaceID)
		fmt.Printf("  Size: %dx%d\n", session.Cols, session.Rows)
		if session.AttachToken != "" {
			fmt.Printf("  Attach token: %s\n", session.AttachToken)
		}

		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list <workspace-id>",
	Aliases: []string{"ls"},
	Short:   "List terminal sessions in a workspace",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkAPIKey(); err != nil {
			return err
		}

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		sessions, err := c.ListTerminals(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to list terminals: %w", err)
		}

		if len(sessions) == 0 {
			fmt.Println("No terminal sessions found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWORKSPACE\tPRINCIPAL\tSIZE\tACTIVE\tCREATED")
		for _, s := range sessions {
			created := ""
			if !s.CreatedAt.IsZero() {
				created = s.CreatedAt.Format("15:04:05")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%t\t%s\n",
				s.SessionID, s.WorkspaceID, s.Principal, s.Cols, s.Rows, s.Active, created)
		}
		w.Flush()

		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <session-id>",
	Short: "Get terminal session details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkAPIKey(); err != nil {
			return err
		}

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		session, err := c.GetTerminal(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get terminal: %w", err)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, _ := json.MarshalIndent(session, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Terminal: %s\n", session.SessionID)
		fmt.Printf("  Workspace: %s\n", session.WorkspaceID)
		if session.Principal != "" {
			fmt.Printf("  Principal: %s\n", session.Principal)
		}
		fmt.Printf("  Size: %dx%d\n", session.Cols, session.Rows)
		fmt.Printf("  Active: %t\n", session.Active)
		if !session.CreatedAt.IsZero() {
			fmt.Printf("  Created: %s\n", session.CreatedAt.Format(time.RFC3339))
		}

		return nil
	},
}

var killCmd = &cobra.Command{
	Use:     "kill <session-id>",
	Aliases: []string{"delete", "rm"},
	Short:   "Kill (delete) a terminal session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkAPIKey(); err != nil {
			return err
		}

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := c.KillTerminal(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to kill terminal: %w", err)
		}

		fmt.Printf("✓ Terminal %s killed\n", args[0])
		return nil
	},
}

var resizeCmd = &cobra.Command{
	Use:   "resize <session-id> <cols> <rows>",
	Short: "Resize a terminal session",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkAPIKey(); err != nil {
			return err
		}

		var cols, rows int
		fmt.Sscanf(args[1], "%d", &cols)
		fmt.Sscanf(args[2], "%d", &rows)

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := c.ResizeTerminal(ctx, args[0], rows, cols); err != nil {
			return fmt.Errorf("failed to resize terminal: %w", err)
		}

		fmt.Printf("✓ Terminal %s resized to %dx%d\n", args[0], cols, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(terminalCmd)

	terminalCmd.AddCommand(createCmd)
	terminalCmd.AddCommand(listCmd)
	terminalCmd.AddCommand(getCmd)
	terminalCmd.AddCommand(killCmd)
	terminalCmd.AddCommand(resizeCmd)

	// Create command flags
	createCmd.Flags().Int("rows", 24, "Terminal rows")
	createCmd.Flags().Int("cols", 80, "Terminal columns")
	createCmd.Flags().String("principal", "", "Principal the session acts for")

	// Get command flags
	getCmd.Flags().Bool("json", false, "Output as JSON")
}
