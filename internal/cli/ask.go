package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"paperchat/internal/app"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [document-id] [question]",
	Short: "Ask a question about a stored paper",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Query.Answer(ctx, app.AnswerInput{
		DocumentID: args[0],
		Question:   strings.Join(args[1:], " "),
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}
	cmd.Printf("[%s, %s]\n\n", result.Metadata.DocumentName, result.Metadata.Model)
	cmd.Println(result.Answer)
	return nil
}
