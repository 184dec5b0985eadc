package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/rankscrape/internal/crawl"
	"github.com/abelbrown/rankscrape/internal/export"
	"github.com/abelbrown/rankscrape/internal/filter"
	"github.com/abelbrown/rankscrape/internal/target"
)

var crawlFlags struct {
	mode    string
	dates   string
	country string
	max     int
	ranges  []string
	min     string
	maxSubs string
	headed  bool
	quiet   bool
}

var crawlCmd = &cobra.Command{
	Use:   "crawl --dates <spec> [--mode short|long] [--max n] [--range name...]",
	Short: "Crawls chart days and merges the kept entries into the saved results.",
	RunE:  runCrawl,
}

func init() {
	f := crawlCmd.Flags()
	f.StringVar(&crawlFlags.mode, "mode", "", "Chart kind: short or long (default from config)")
	f.StringVar(&crawlFlags.dates, "dates", "", "Chart days, e.g. 20240101-20240107,20240115")
	f.StringVar(&crawlFlags.country, "country", "", "Country slug (default from config)")
	f.IntVar(&crawlFlags.max, "max", 0, "Item cap for the whole run (default from config)")
	f.StringSliceVar(&crawlFlags.ranges, "range", nil, "Subscriber range names to keep (repeatable)")
	f.StringVar(&crawlFlags.min, "min", "", "Custom minimum subscribers")
	f.StringVar(&crawlFlags.maxSubs, "max-subs", "", "Custom maximum subscribers")
	f.BoolVar(&crawlFlags.headed, "headed", false, "Show the browser window")
	f.BoolVarP(&crawlFlags.quiet, "quiet", "q", false, "Do not print the result table")
	crawlCmd.MarkFlagRequired("dates")
	rootCmd.AddCommand(crawlCmd)
}

// filterFromFlags turns --range/--min/--max-subs into a filter. No flags
// means no filtering.
func filterFromFlags() (filter.Config, error) {
	sel := filter.NewSelection()
	for _, name := range crawlFlags.ranges {
		if _, ok := filter.Lookup(name); !ok {
			return filter.Config{}, fmt.Errorf("unknown range %q", name)
		}
		sel.Set(name, true)
	}
	if crawlFlags.min != "" || crawlFlags.maxSubs != "" {
		if err := sel.SetCustom(crawlFlags.min, crawlFlags.maxSubs); err != nil {
			return filter.Config{}, err
		}
		sel.UseCustom = true
	}
	sel.Applied = len(crawlFlags.ranges) > 0 || sel.UseCustom
	return sel.Config(), nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	stderr := cmd.ErrOrStderr()
	env, err := openEnv(func(e crawl.Event) { echoEvent(stderr, e) })
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.Config
	if crawlFlags.headed {
		cfg.Browser.Headless = false
	}
	mode := target.Mode(cfg.Crawl.Mode)
	if crawlFlags.mode != "" {
		if mode, err = target.ParseMode(crawlFlags.mode); err != nil {
			return err
		}
	}
	country := cfg.Crawl.Country
	if crawlFlags.country != "" {
		country = crawlFlags.country
	}
	maxItems := cfg.Crawl.MaxItems
	if crawlFlags.max > 0 {
		maxItems = crawlFlags.max
	}

	days, errs := target.ParseDates(crawlFlags.dates)
	for _, err := range errs {
		fmt.Fprintln(stderr, "skipped:", err)
	}
	tgt, err := target.New(mode, country, days, maxItems)
	if err != nil {
		return err
	}
	fcfg, err := filterFromFlags()
	if err != nil {
		return err
	}

	// The run honours cancellation itself; the group only ties the browser
	// launch and the run to the command's context.
	g, ctx := errgroup.WithContext(cmd.Context())
	var res crawl.Result
	g.Go(func() error {
		if err := env.Launch(ctx); err != nil {
			return err
		}
		r, err := env.Ctrl.Run(ctx, tgt, fcfg)
		res = r
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(stderr, "%s in %s; results now hold %d\n",
		res.Summary(), res.Finished.Sub(res.Started).Round(time.Second), env.Ctrl.Session().Results.Len())
	if !crawlFlags.quiet && len(res.Items) > 0 {
		export.NewTable(cmd.OutOrStdout(), res.Items, export.PDFColumns).Render()
	}
	if res.Cancelled {
		return errors.New("run cancelled")
	}
	return nil
}

var levelTags = map[crawl.Level]string{
	crawl.LevelInfo:  "INFO ",
	crawl.LevelWarn:  "WARN ",
	crawl.LevelError: "ERROR",
}

func echoEvent(w io.Writer, e crawl.Event) {
	switch e.Kind {
	case crawl.EventLog:
		fmt.Fprintf(w, "%s %s %s\n", e.Time.Format("15:04:05"), levelTags[e.Level], e.Msg)
	case crawl.EventProgress:
		fmt.Fprintf(w, "%s       %d%%\n", e.Time.Format("15:04:05"), e.Percent)
	}
}
