// Package app wires configuration, persistence, the journal, the solver and
// the browser into one controller shared by the TUI and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/abelbrown/rankscrape/internal/browser"
	"github.com/abelbrown/rankscrape/internal/captcha"
	"github.com/abelbrown/rankscrape/internal/config"
	"github.com/abelbrown/rankscrape/internal/coord"
	"github.com/abelbrown/rankscrape/internal/crawl"
	"github.com/abelbrown/rankscrape/internal/export"
	"github.com/abelbrown/rankscrape/internal/logging"
	"github.com/abelbrown/rankscrape/internal/model"
	"github.com/abelbrown/rankscrape/internal/otel"
	"github.com/abelbrown/rankscrape/internal/session"
	"github.com/abelbrown/rankscrape/internal/solver"
	"github.com/abelbrown/rankscrape/internal/store"
)

// loginTimeout bounds each wait in the login flow.
const loginTimeout = 20 * time.Second

// releaseWait is the extra time Close gives a run stuck in a page or solver
// call before the process exits anyway.
const releaseWait = 3 * time.Minute

// ringSize is how many journal events the debug overlay keeps.
const ringSize = 512

// Env is a running application: everything a front end needs.
type Env struct {
	Config  *config.Config
	Store   *store.Store // nil when persistence is off
	Journal *otel.Logger
	Ring    *otel.RingBuffer
	Ctrl    *coord.Controller

	journalFile *os.File
}

// Options tweak Open for front ends.
type Options struct {
	// Echo is forwarded to the controller (the CLI prints run events).
	Echo func(crawl.Event)
	// NoJournal discards journal events instead of writing events.jsonl.
	NoJournal bool
}

// Open loads the saved session and builds the controller. The browser is
// not started; call Launch before crawling.
func Open(cfg *config.Config, opts Options) (*Env, error) {
	env := &Env{Config: cfg, Ring: otel.NewRingBuffer(ringSize)}

	if opts.NoJournal {
		env.Journal = otel.NewNullLogger()
	} else {
		if err := os.MkdirAll(config.Dir(), 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(config.Dir(), "events.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		env.journalFile = f
		env.Journal = otel.NewLogger(f)
	}
	env.Journal.SetRingBuffer(env.Ring)

	sess := session.New()
	if cfg.Store.Persist {
		path := cfg.StorePath()
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				env.closeJournal()
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
		st, err := store.Open(path)
		if err != nil {
			env.closeJournal()
			return nil, err
		}
		loaded, err := st.LoadSession()
		if err != nil {
			st.Close()
			env.closeJournal()
			return nil, fmt.Errorf("load session: %w", err)
		}
		env.Store = st
		sess = loaded
		logging.Info("Session loaded", "path", path, "results", sess.Results.Len(), "cart", sess.Cart.Len())
	}

	var sv captcha.Solver
	if cfg.Solver.APIKey != "" {
		c, err := solver.New(cfg.SolverClientConfig())
		if err != nil {
			logging.Warn("Solver disabled", "err", err)
		} else {
			sv = c
		}
	} else {
		logging.Info("No 2Captcha API key; challenges will be reported, not solved")
	}

	env.Ctrl = coord.New(nil, sess, coord.Options{
		Solver:  sv,
		Store:   env.Store,
		Journal: env.Journal,
		Params:  cfg.CrawlParams(),
		Grace:   cfg.Grace(),
		Echo:    opts.Echo,
	})
	env.Journal.Scope("main").Info(otel.KindStartup, logging.Version)
	return env, nil
}

// Launch starts Chrome, attaches it and signs in when credentials are set.
func (e *Env) Launch(ctx context.Context) error {
	chrome, err := browser.Launch(ctx, e.Config.BrowserOptions())
	if err != nil {
		return err
	}
	e.Ctrl.SetPage(chrome)

	creds := e.Config.Credentials()
	if !creds.Valid() {
		e.Ctrl.Log(crawl.LevelInfo, "no account configured; crawling without login")
		return nil
	}
	return e.Ctrl.Login(ctx, creds, loginTimeout)
}

// Export writes items to the export directory and returns the file path.
// format is csv, pdf or md.
func (e *Env) Export(format, name string, items []model.Item) (string, error) {
	dir := e.Config.ExportDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.%s", fileSafe(name), time.Now().Format("20060102-150405"), format))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	switch format {
	case "csv":
		err = export.WriteCSV(f, items)
	case "pdf":
		err = export.WritePDF(f, items, export.PDFOptions{Title: name, FontPath: e.Config.Export.PDFFont})
	case "md":
		export.WriteMarkdown(f, items, export.PDFColumns)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	e.Journal.Scope("main").Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindExport, Count: len(items), Msg: path})
	logging.Info("Exported", "path", path, "items", len(items))
	return path, nil
}

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// fileSafe turns a group name into a file name stem.
func fileSafe(name string) string {
	s := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
	if s == "" {
		return "export"
	}
	return s
}

// Close stops any run (flushing its partial result), then releases the
// browser, the store and the journal.
func (e *Env) Close() {
	switch err := e.Ctrl.Close(30 * time.Second); {
	case errors.Is(err, coord.ErrStillStopping):
		logging.Warn("Run outlived shutdown; waiting for it to release the browser")
		select {
		case <-e.Ctrl.Released():
		case <-time.After(releaseWait):
			logging.Warn("Gave up waiting for the run to stop")
		}
	case err != nil:
		logging.Error("close store", "err", err)
	}
	e.Journal.Scope("main").Info(otel.KindShutdown, "")
	e.closeJournal()
}

func (e *Env) closeJournal() {
	e.Journal.Close()
	if e.journalFile != nil {
		e.journalFile.Close()
		e.journalFile = nil
	}
}
