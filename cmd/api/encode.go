package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"alfredoptarigan/cv-analyzer/internal/models"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <file> [<cv-file>]",
	Short: "Print the base64 form of a document",
	Long: `With one file, prints its base64 encoding. With two files (job description
first, CV second), prints a JSON input ready to send to the analyzeCV procedure.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return encodeFiles(args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
}

func encodeFiles(paths []string, w io.Writer) error {
	encoded := make([]string, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		encoded[i] = base64.StdEncoding.EncodeToString(data)
	}

	if len(encoded) == 1 {
		_, err := fmt.Fprintln(w, encoded[0])
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(models.AnalyzeCVInput{JobDescription: &encoded[0], CV: &encoded[1]})
}
