package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/abelbrown/rankscrape/internal/export"
	"github.com/abelbrown/rankscrape/internal/model"
	"github.com/abelbrown/rankscrape/internal/session"
)

var (
	resultsSort string
	resultsCart bool
	resultsMD   bool
	exportGroup string
	exportAll   bool
)

var resultsCmd = &cobra.Command{
	Use:   "results [--sort mode] [--cart] [--md]",
	Short: "Prints the saved results (or the cart).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := session.ParseSort(resultsSort)
		if err != nil {
			return err
		}
		env, err := openEnv(nil)
		if err != nil {
			return err
		}
		defer env.Close()

		items := env.Ctrl.Session().Results.Items()
		if resultsCart {
			items = env.Ctrl.Session().Cart.Items()
		}
		t := export.NewTable(cmd.OutOrStdout(), session.Sorted(items, mode), export.PDFColumns)
		if resultsMD {
			t.RenderMarkdown()
		} else {
			t.Render()
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:       "export csv|pdf|md [--group name | --all]",
	Short:     "Writes the cart, a group or all results to the export directory.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"csv", "pdf", "md"},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(nil)
		if err != nil {
			return err
		}
		defer env.Close()

		sess := env.Ctrl.Session()
		name, items := "cart", sess.Cart.Items()
		switch {
		case exportGroup != "":
			g, ok := sess.Group(exportGroup)
			if !ok {
				return fmt.Errorf("%w: %s", session.ErrGroupNotFound, exportGroup)
			}
			name, items = g.Name, g.Items
		case exportAll:
			name, items = "results", sess.Results.Items()
		}
		if len(items) == 0 {
			return errors.New("nothing to export")
		}
		path, err := env.Export(args[0], name, items)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Lists, creates and deletes named groups.",
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists groups with their sizes.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(nil)
		if err != nil {
			return err
		}
		defer env.Close()

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Name", "Items", "Created"})
		for _, g := range env.Ctrl.Session().Groups() {
			t.AppendRow(table.Row{g.Name, len(g.Items), humanize.Time(g.Created)})
		}
		t.Render()
		return nil
	},
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create <name> [hash...]",
	Short: "Saves the cart (or the given results) as a group.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(nil)
		if err != nil {
			return err
		}
		defer env.Close()

		sess := env.Ctrl.Session()
		var items []model.Item
		if len(args) > 1 {
			items = sess.Results.Select(args[1:])
		} else {
			items = sess.Cart.Items()
		}
		if err := sess.CreateGroup(args[0], items); err != nil {
			return err
		}
		if err := env.Ctrl.Persist(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "group %q: %d items\n", args[0], len(items))
		return nil
	},
}

var groupsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Deletes a group.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(nil)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Ctrl.Session().DeleteGroup(args[0]); err != nil {
			return err
		}
		return env.Ctrl.Persist()
	},
}

func init() {
	resultsCmd.Flags().StringVar(&resultsSort, "sort", "default", "Sort: default, channel, views-desc, views-asc, subs-desc, subs-asc")
	resultsCmd.Flags().BoolVar(&resultsCart, "cart", false, "Show the cart instead of the results")
	resultsCmd.Flags().BoolVar(&resultsMD, "md", false, "Render as a Markdown table")
	exportCmd.Flags().StringVar(&exportGroup, "group", "", "Export a named group")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every saved result")
	exportCmd.MarkFlagsMutuallyExclusive("group", "all")

	groupsCmd.AddCommand(groupsListCmd, groupsCreateCmd, groupsDeleteCmd)
	rootCmd.AddCommand(resultsCmd, exportCmd, groupsCmd)
}
