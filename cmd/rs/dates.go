package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/rankscrape/internal/target"
)

var datesCmd = &cobra.Command{
	Use:   "dates <spec>",
	Short: "Expands a date list (YYYYMMDD, ranges with '-', separated by ',').",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, errs := target.ParseDates(args[0])
		for _, err := range errs {
			fmt.Fprintln(cmd.ErrOrStderr(), "skipped:", err)
		}
		if len(days) == 0 {
			return errors.New("no valid dates")
		}
		for _, key := range target.FormatKeys(days) {
			fmt.Fprintln(cmd.OutOrStdout(), key)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datesCmd)
}
