package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iziplay/saime-api/pkg/form"
	"github.com/iziplay/saime-api/pkg/identity"
)

var parseFields bool

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Extract the identity record from a saved registry page",
	Long: `Runs the extraction over a registry page saved to a file, or read from
stdin when no file is given, and prints the identity record as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseFields, "fields", false, "also print the extracted form fields")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open page: %w", err)
		}
		defer f.Close()
		in = f
	}

	content, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}

	idx := form.Parse(strings.TrimSpace(string(content)))

	var out any = identity.Normalize(idx)
	if parseFields {
		out = struct {
			Record identity.Record `json:"record"`
			Fields form.Index      `json:"fields"`
		}{identity.Normalize(idx), idx}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
