// Command rs is the scripting front end: crawl from flags, inspect the saved
// session, export files and manage groups without the TUI.
//
// Usage:
//
//	rs dates 20240101-20240103,20240110
//	rs crawl --mode short --dates 20240101 --max 500 --range 1M-2M
//	rs results --sort views-desc
//	rs export csv [--group name]
//	rs groups list|create|delete
//	rs events --tail 50 --kind crawl
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/abelbrown/rankscrape/internal/app"
	"github.com/abelbrown/rankscrape/internal/config"
	"github.com/abelbrown/rankscrape/internal/crawl"
	"github.com/abelbrown/rankscrape/internal/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "rs",
	Short:         "rs crawls playboard.co ranking charts and curates the results.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := log.WarnLevel
		if verbose {
			level = log.DebugLevel
		}
		logging.InitWriter(os.Stderr, level)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "rs:", err)
		os.Exit(1)
	}
}

// openEnv loads the config and the saved session. echo, when set, receives
// every run event.
func openEnv(echo func(crawl.Event)) (*app.Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, app.Options{Echo: echo})
}
