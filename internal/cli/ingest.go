package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"paperchat/internal/app"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.pdf]",
	Short: "Extract, embed and store a paper",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s failed: %w", path, err)
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Ingestion.Ingest(ctx, app.IngestInput{
		FileName: filepath.Base(path),
		Data:     data,
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}
	cmd.Printf("Stored %s as %s (%d characters, %d dimensions)\n",
		result.Metadata.FileName, result.DocumentID, result.TextLength, result.Dimensions)
	return nil
}
