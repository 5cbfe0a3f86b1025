package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored papers",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output papers as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	papers, err := a.Papers.List(ctx)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if listJSON {
		out, err := json.MarshalIndent(papers, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal papers: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}
	if len(papers) == 0 {
		cmd.Println("No papers stored.")
		return nil
	}
	for _, p := range papers {
		cmd.Printf("%s  %s\n", p.ID, p.Name)
	}
	return nil
}
