package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/rankscrape/internal/config"
)

// eventRecord is the subset of the journal line this viewer prints. It is
// decoded independently of otel.Event so old journals stay readable.
type eventRecord struct {
	Time     time.Time `json:"t"`
	Level    string    `json:"level"`
	Kind     string    `json:"kind"`
	Comp     string    `json:"comp"`
	RunID    string    `json:"run_id"`
	Date     string    `json:"date"`
	DurMs    float64   `json:"dur_ms"`
	Count    int       `json:"count"`
	Modality string    `json:"modality"`
	Err      string    `json:"err"`
	Msg      string    `json:"msg"`
}

var eventsFlags struct {
	tail   int
	follow bool
	kind   string
	level  string
	comp   string
	run    string
	json   bool
}

var eventsCmd = &cobra.Command{
	Use:   "events [--tail n] [-f] [--kind prefix] [--level min]",
	Short: "Shows the JSONL event journal.",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func init() {
	f := eventsCmd.Flags()
	f.IntVar(&eventsFlags.tail, "tail", 50, "Number of recent lines to show")
	f.BoolVarP(&eventsFlags.follow, "follow", "f", false, "Keep printing new lines")
	f.StringVar(&eventsFlags.kind, "kind", "", "Filter by kind prefix (e.g. 'captcha')")
	f.StringVar(&eventsFlags.level, "level", "", "Minimum level: debug, info, warn, error")
	f.StringVar(&eventsFlags.comp, "comp", "", "Filter by component")
	f.StringVar(&eventsFlags.run, "run", "", "Filter by run ID")
	f.BoolVar(&eventsFlags.json, "json", false, "Print raw JSON lines")
	rootCmd.AddCommand(eventsCmd)
}

// levelRank orders levels for filtering; higher is more severe.
func levelRank(level string) int {
	switch level {
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

func (r eventRecord) matches() bool {
	if eventsFlags.kind != "" && !strings.HasPrefix(r.Kind, eventsFlags.kind) {
		return false
	}
	if eventsFlags.level != "" && levelRank(r.Level) < levelRank(eventsFlags.level) {
		return false
	}
	if eventsFlags.comp != "" && r.Comp != eventsFlags.comp {
		return false
	}
	return eventsFlags.run == "" || r.RunID == eventsFlags.run
}

func (r eventRecord) format(raw []byte) string {
	if eventsFlags.json {
		return string(raw)
	}
	lvl := strings.ToUpper(r.Level)
	if lvl == "" {
		lvl = "?"
	}
	parts := []string{fmt.Sprintf("%s %-5s [%-7s] %-20s", r.Time.Format("15:04:05.000"), lvl, r.Comp, r.Kind)}
	if r.Msg != "" {
		parts = append(parts, r.Msg)
	}
	if r.Date != "" {
		parts = append(parts, "date="+r.Date)
	}
	if r.Modality != "" {
		parts = append(parts, "via="+r.Modality)
	}
	if r.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(r.DurMs), r.DurMs))
	}
	if r.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", r.Count))
	}
	if r.Err != "" {
		parts = append(parts, "err="+r.Err)
	}
	return strings.Join(parts, " ")
}

func runEvents(cmd *cobra.Command, args []string) error {
	path := filepath.Join(config.Dir(), "events.jsonl")
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w (run a crawl first to create the journal)", err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	for _, l := range readTail(f, eventsFlags.tail) {
		fmt.Fprintln(out, l.ev.format(l.raw))
	}
	if !eventsFlags.follow {
		return nil
	}

	ctx := cmd.Context()
	reader := bufio.NewReader(f)
	for ctx.Err() == nil {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if err != nil {
			return err
		}
		line = trimLine(line)
		var ev eventRecord
		if len(line) == 0 || json.Unmarshal(line, &ev) != nil {
			continue
		}
		if ev.matches() {
			fmt.Fprintln(out, ev.format(line))
		}
	}
	return nil
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTail returns the last n matching lines.
func readTail(r io.Reader, n int) []parsedLine {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	var ring []parsedLine
	for scanner.Scan() {
		raw := scanner.Bytes()
		var ev eventRecord
		if len(raw) == 0 || json.Unmarshal(raw, &ev) != nil || !ev.matches() {
			continue
		}
		l := parsedLine{ev: ev, raw: append([]byte(nil), raw...)}
		if len(ring) < n {
			ring = append(ring, l)
		} else if n > 0 {
			copy(ring, ring[1:])
			ring[n-1] = l
		}
	}
	return ring
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
