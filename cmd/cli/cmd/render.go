package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/workterm/workterm/pkg/client"
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a raw terminal capture into styled runs",
	Long: `Interpret the ANSI escape sequences in a captured terminal byte
stream and print the result. Reads from the file argument, or stdin when
no file is given. By default prints plain text with styling stripped;
use --json for the structured styled runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkAPIKey(); err != nil {
			return err
		}

		var data []byte
		var err error
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("read capture: %w", err)
		}

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		runs, err := c.Render(ctx, data)
		if err != nil {
			return fmt.Errorf("failed to render capture: %w", err)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			out, _ := json.MarshalIndent(runs, "", "  ")
			fmt.Println(string(out))
			return nil
		}

		for _, r := range runs {
			fmt.Print(r.Text)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().Bool("json", false, "Output styled runs as JSON")
}
