// Command rankscrape is the terminal UI: pick dates and filters, crawl the
// ranking chart, then curate results into a cart and named groups.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/rankscrape/internal/app"
	"github.com/abelbrown/rankscrape/internal/config"
	"github.com/abelbrown/rankscrape/internal/logging"
	"github.com/abelbrown/rankscrape/internal/model"
	"github.com/abelbrown/rankscrape/internal/ui"
)

func main() {
	if err := logging.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	if err := run(); err != nil {
		logging.Error("Application error", "error", err)
		fmt.Fprintf(os.Stderr, "rankscrape: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	env, err := app.Open(cfg, app.Options{})
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := ui.NewApp(ctx, env.Ctrl, ui.Options{
		Country:  cfg.Crawl.Country,
		MaxItems: cfg.Crawl.MaxItems,
		Ring:     env.Ring,
		Journal:  env.Journal,
		Launch: func() tea.Cmd {
			return func() tea.Msg {
				return ui.BrowserReady{Err: env.Launch(ctx)}
			}
		},
		Export: func(format, name string, items []model.Item) tea.Cmd {
			return func() tea.Msg {
				path, err := env.Export(format, name, items)
				return ui.ExportDone{Path: path, Items: len(items), Err: err}
			}
		},
	})
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// The UI owns the terminal; a signal cancels ctx, which stops both the
	// program and any run started from it.
	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		env.Ctrl.Cancel()
		return nil
	})
	return g.Wait()
}
