package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iziplay/saime-api/pkg/cachekey"
	"github.com/iziplay/saime-api/pkg/document"
)

var keyCmd = &cobra.Command{
	Use:   "key TYPE DOCUMENT",
	Short: "Print the cache signature of a document",
	Args:  cobra.ExactArgs(2),
	RunE:  runKey,
}

func init() {
	rootCmd.AddCommand(keyCmd)
}

func runKey(cmd *cobra.Command, args []string) error {
	docType, err := document.ParseType(args[0])
	if err != nil {
		return err
	}
	number, err := document.ParseNumber(args[1])
	if err != nil {
		return err
	}

	key := cachekey.Derive(string(docType), document.Format(number))
	_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
	return err
}
