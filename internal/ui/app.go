package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/rankscrape/internal/coord"
	"github.com/abelbrown/rankscrape/internal/crawl"
	"github.com/abelbrown/rankscrape/internal/filter"
	"github.com/abelbrown/rankscrape/internal/model"
	"github.com/abelbrown/rankscrape/internal/otel"
	"github.com/abelbrown/rankscrape/internal/session"
	"github.com/abelbrown/rankscrape/internal/target"
)

// pollTimeout bounds each wait for run events.
const pollTimeout = 150 * time.Millisecond

// logPaneLines is the visible height of the log pane.
const logPaneLines = 8

// Controller is what the UI drives. *coord.Controller implements it.
type Controller interface {
	Start(ctx context.Context, tgt target.Target, cfg filter.Config) error
	Cancel() bool
	Running() bool
	Wait(timeout time.Duration) []crawl.Event
	Apply(events []crawl.Event) *crawl.Result
	Progress() int
	Logs(n int) []coord.LogLine
	Log(level crawl.Level, format string, args ...any)
	Session() *session.Session
	Persist() error
	HasPage() bool
}

// ExportFunc writes items in format ("csv" or "pdf") and reports ExportDone.
type ExportFunc func(format, name string, items []model.Item) tea.Cmd

// Options configures the App. Zero values are usable.
type Options struct {
	Country  string
	MaxItems int
	Dates    string

	Export  ExportFunc       // nil disables export keys
	Launch  func() tea.Cmd   // starts the browser; reports BrowserReady
	Ring    *otel.RingBuffer // debug overlay source
	Journal *otel.Logger
}

type tab int

const (
	tabSettings tab = iota
	tabFilters
	tabResults
	tabCart
	tabGroups
	tabCount
)

var tabNames = []string{"Settings", "Filters", "Results", "Cart", "Groups"}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold *store.Store. The controller persists.
type App struct {
	ctx  context.Context
	ctrl Controller
	opts Options
	keys keyMap
	help help.Model

	tab      tab
	settings settings
	filters  filters
	results  itemList
	cart     itemList
	group    int // cursor on the groups tab

	prompt    textinput.Model
	prompting bool

	logs    viewport.Model
	bar     progress.Model
	spin      spinner.Model
	running   bool
	launching bool

	debugVisible bool
	err          error
	status       string
	width        int
	height       int
	ready        bool
}

// NewApp builds the UI around ctrl. ctx bounds crawl runs.
func NewApp(ctx context.Context, ctrl Controller, opts Options) App {
	prompt := textinput.New()
	prompt.Placeholder = "group name"
	prompt.CharLimit = 60
	prompt.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	a := App{
		ctx:      ctx,
		ctrl:     ctrl,
		opts:     opts,
		keys:     defaultKeys(),
		help:     help.New(),
		settings: newSettings(opts.Country, opts.MaxItems, opts.Dates),
		filters:  newFilters(),
		results:  newItemList(),
		cart:     newItemList(),
		prompt:   prompt,
		logs:     viewport.New(80, logPaneLines),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spin:     sp,
	}
	a.launching = opts.Launch != nil
	a.reloadLists()
	a.refreshLogs()
	return a
}

// Init starts the browser if a launcher was given.
func (a App) Init() tea.Cmd {
	if a.opts.Launch != nil {
		return a.opts.Launch()
	}
	return nil
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		a.trace(msg)
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.layout()
		return a, nil

	case RunEvents:
		res := a.ctrl.Apply(msg.Events)
		a.refreshLogs()
		if res != nil {
			a.running = false
			a.status = res.Summary()
			a.reloadLists()
			return a, nil
		}
		if a.ctrl.Running() {
			return a, a.poll()
		}
		a.running = false
		return a, nil

	case spinner.TickMsg:
		if !a.running {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case BrowserReady:
		a.launching = false
		if msg.Err != nil {
			a.err = msg.Err
			a.ctrl.Log(crawl.LevelError, "browser: %v", msg.Err)
		} else {
			a.ctrl.Log(crawl.LevelInfo, "browser ready")
		}
		a.refreshLogs()
		return a, nil

	case ExportDone:
		if msg.Err != nil {
			a.err = msg.Err
			a.ctrl.Log(crawl.LevelError, "export failed: %v", msg.Err)
		} else {
			a.ctrl.Log(crawl.LevelInfo, "exported %d items to %s", msg.Items, msg.Path)
		}
		a.refreshLogs()
		return a, nil
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Clear any existing error on key press
	a.err = nil

	if a.prompting {
		return a.handlePrompt(msg)
	}

	var cmd tea.Cmd
	switch {
	case a.tab == tabSettings && a.settings.editing():
		a.settings, cmd = a.settings.update(msg)
		return a, cmd
	case a.tab == tabFilters && a.filters.editing():
		a.filters, cmd = a.filters.update(msg)
		return a, cmd
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		a.ctrl.Cancel()
		return a, tea.Quit
	case key.Matches(msg, a.keys.NextTab):
		a.tab = (a.tab + 1) % tabCount
		return a, nil
	case key.Matches(msg, a.keys.PrevTab):
		a.tab = (a.tab + tabCount - 1) % tabCount
		return a, nil
	case msg.String() >= "1" && msg.String() <= "5" && len(msg.String()) == 1:
		a.tab = tab(msg.String()[0] - '1')
		return a, nil
	case key.Matches(msg, a.keys.Shorts):
		return a.start(target.ModeShort)
	case key.Matches(msg, a.keys.Long):
		return a.start(target.ModeLong)
	case key.Matches(msg, a.keys.Cancel):
		if !a.ctrl.Cancel() {
			a.status = "no crawl running"
		}
		a.refreshLogs()
		return a, nil
	case key.Matches(msg, a.keys.Debug):
		a.debugVisible = !a.debugVisible
		return a, nil
	case key.Matches(msg, a.keys.Browser):
		return a.relaunch()
	}

	switch a.tab {
	case tabSettings:
		a.settings, cmd = a.settings.update(msg)
	case tabFilters:
		a.filters, cmd = a.filters.update(msg)
	case tabResults:
		return a.handleResultsKey(msg)
	case tabCart:
		return a.handleCartKey(msg)
	case tabGroups:
		return a.handleGroupsKey(msg)
	}
	return a, cmd
}

// start validates the form and launches a run.
func (a App) start(mode target.Mode) (tea.Model, tea.Cmd) {
	tgt, warnings, err := a.settings.target(mode)
	for _, w := range warnings {
		a.ctrl.Log(crawl.LevelWarn, "ignoring date: %v", w)
	}
	if err == nil {
		err = a.ctrl.Start(a.ctx, tgt, a.filters.Config())
	}
	if err != nil {
		a.err = err
		a.ctrl.Log(crawl.LevelError, "cannot start: %v", err)
		a.refreshLogs()
		return a, nil
	}

	a.running = true
	a.status = "crawling " + tgt.String()
	a.refreshLogs()
	return a, tea.Batch(a.poll(), a.spin.Tick)
}

// relaunch starts the browser again after a failed launch or login.
func (a App) relaunch() (tea.Model, tea.Cmd) {
	switch {
	case a.opts.Launch == nil:
		a.status = "no browser launcher"
		return a, nil
	case a.launching:
		a.status = "browser is starting"
		return a, nil
	case a.ctrl.HasPage():
		a.status = "browser already running"
		return a, nil
	}
	a.launching = true
	a.status = "launching browser"
	a.ctrl.Log(crawl.LevelInfo, "relaunching browser")
	a.refreshLogs()
	return a, a.opts.Launch()
}

// poll waits for the next batch of run events off the UI goroutine.
func (a App) poll() tea.Cmd {
	ctrl := a.ctrl
	return func() tea.Msg {
		return RunEvents{Events: ctrl.Wait(pollTimeout)}
	}
}

func (a App) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := a.ctrl.Session()
	switch {
	case key.Matches(msg, a.keys.AddToCart):
		added := sess.AddToCart(a.results.selection())
		a.results.clearMarks()
		a.ctrl.Log(crawl.LevelInfo, "added %d item(s) to cart", added)
		return a.changed()
	case key.Matches(msg, a.keys.Clear):
		n := sess.Results.Len()
		sess.Results.Clear()
		a.ctrl.Log(crawl.LevelInfo, "cleared %d result(s)", n)
		return a.changed()
	}
	var cmd tea.Cmd
	a.results, cmd = a.results.update(msg)
	return a, cmd
}

func (a App) handleCartKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := a.ctrl.Session()
	switch {
	case key.Matches(msg, a.keys.Remove):
		n := sess.Cart.Remove(a.cart.selection()...)
		a.ctrl.Log(crawl.LevelInfo, "removed %d item(s) from cart", n)
		return a.changed()
	case key.Matches(msg, a.keys.Clear):
		sess.Cart.Clear()
		a.ctrl.Log(crawl.LevelInfo, "cart cleared")
		return a.changed()
	case key.Matches(msg, a.keys.Group):
		if sess.Cart.Len() == 0 {
			a.err = session.ErrGroupEmpty
			return a, nil
		}
		a.prompting = true
		a.prompt.SetValue("")
		return a, a.prompt.Focus()
	case key.Matches(msg, a.keys.CSV):
		return a, a.export("csv", "cart", a.cart.items)
	case key.Matches(msg, a.keys.PDF):
		return a, a.export("pdf", "cart", a.cart.items)
	}
	var cmd tea.Cmd
	a.cart, cmd = a.cart.update(msg)
	return a, cmd
}

func (a App) handleGroupsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := a.ctrl.Session()
	groups := sess.Groups()
	if len(groups) == 0 {
		return a, nil
	}
	a.group = min(a.group, len(groups)-1)
	g := groups[a.group]

	switch {
	case msg.String() == "up" || msg.String() == "k":
		if a.group > 0 {
			a.group--
		}
		return a, nil
	case msg.String() == "down" || msg.String() == "j":
		if a.group < len(groups)-1 {
			a.group++
		}
		return a, nil
	case key.Matches(msg, a.keys.Load):
		n := sess.Cart.Merge(g.Items)
		a.ctrl.Log(crawl.LevelInfo, "loaded %d item(s) from group %q into cart", n, g.Name)
		return a.changed()
	case key.Matches(msg, a.keys.Remove):
		if err := sess.DeleteGroup(g.Name); err != nil {
			a.err = err
			return a, nil
		}
		a.ctrl.Log(crawl.LevelInfo, "deleted group %q", g.Name)
		return a.changed()
	case key.Matches(msg, a.keys.CSV):
		return a, a.export("csv", g.Name, g.Items)
	case key.Matches(msg, a.keys.PDF):
		return a, a.export("pdf", g.Name, g.Items)
	}
	return a, nil
}

// handlePrompt collects the name for a new group from the cart.
func (a App) handlePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.prompting = false
		a.prompt.Blur()
		return a, nil
	case "enter":
		a.prompting = false
		a.prompt.Blur()
		name := strings.TrimSpace(a.prompt.Value())
		items := a.cart.markedItems()
		if len(items) == 0 {
			items = a.cart.items
		}
		if err := a.ctrl.Session().CreateGroup(name, items); err != nil {
			a.err = err
			a.ctrl.Log(crawl.LevelWarn, "group not created: %v", err)
			a.refreshLogs()
			return a, nil
		}
		a.cart.clearMarks()
		a.ctrl.Log(crawl.LevelInfo, "saved group %q with %d item(s)", name, len(items))
		return a.changed()
	}
	var cmd tea.Cmd
	a.prompt, cmd = a.prompt.Update(msg)
	return a, cmd
}

func (a App) export(format, name string, items []model.Item) tea.Cmd {
	if a.opts.Export == nil {
		return nil
	}
	if len(items) == 0 {
		a.ctrl.Log(crawl.LevelWarn, "nothing to export")
		return nil
	}
	return a.opts.Export(format, name, items)
}

// changed refreshes views and persists after a session edit.
func (a App) changed() (tea.Model, tea.Cmd) {
	if err := a.ctrl.Persist(); err != nil {
		a.err = err
	}
	a.reloadLists()
	a.refreshLogs()
	return a, nil
}

func (a *App) reloadLists() {
	sess := a.ctrl.Session()
	a.results.setItems(sess.Results.Items())
	a.cart.setItems(sess.Cart.Items())
	if n := len(sess.Groups()); a.group >= n && n > 0 {
		a.group = n - 1
	}
}

func (a *App) refreshLogs() {
	lines := a.ctrl.Logs(300)
	out := make([]string, len(lines))
	for i, l := range lines {
		style := LogInfo
		switch l.Level {
		case crawl.LevelWarn:
			style = LogWarn
		case crawl.LevelError:
			style = LogError
		}
		out[i] = LogTime.Render(l.Time.Format("15:04:05")) + " " + style.Render(l.Msg)
	}
	a.logs.SetContent(strings.Join(out, "\n"))
	a.logs.GotoBottom()
}

// layout sizes the children to the window.
func (a *App) layout() {
	a.logs.Width = a.width - 2
	a.logs.Height = logPaneLines
	a.bar.Width = max(10, a.width/2)
	a.help.Width = a.width

	body := a.bodyHeight()
	a.results.resize(a.width, body-3)
	a.cart.resize(a.width, body-3)
}

// bodyHeight is what is left after tabs, progress, log pane and status bar.
func (a App) bodyHeight() int {
	return max(5, a.height-1-1-(logPaneLines+2)-1)
}

func (a App) trace(msg tea.KeyMsg) {
	if otel.TraceEnabled() {
		a.opts.Journal.Scope("ui").Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Msg: msg.String()})
	}
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var body string
	if a.debugVisible {
		body = debugOverlay(a.opts.Ring, a.width, a.bodyHeight())
		if body == "" {
			body = MutedText.Render("  debug journal not enabled")
		}
	} else {
		body = a.tabView()
	}
	body = lipgloss.NewStyle().Height(a.bodyHeight()).MaxHeight(a.bodyHeight()).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		a.tabBar(),
		body,
		a.progressLine(),
		LogPane.Width(a.width-2).Render(a.logs.View()),
		a.statusBar(),
	)
}

func (a App) tabBar() string {
	parts := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		switch tab(i) {
		case tabResults:
			label += fmt.Sprintf(" (%s)", humanize.Comma(int64(a.ctrl.Session().Results.Len())))
		case tabCart:
			label += fmt.Sprintf(" (%s)", humanize.Comma(int64(a.ctrl.Session().Cart.Len())))
		case tabGroups:
			label += fmt.Sprintf(" (%d)", len(a.ctrl.Session().Groups()))
		}
		if tab(i) == a.tab {
			parts[i] = TabActive.Render(label)
		} else {
			parts[i] = TabInactive.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a App) tabView() string {
	switch a.tab {
	case tabSettings:
		return a.settings.view()
	case tabFilters:
		return a.filters.view(a.bodyHeight())
	case tabResults:
		return a.results.view("Results")
	case tabCart:
		v := a.cart.view("Cart")
		if a.prompting {
			v += "\n" + PromptStyle.Render("Group name: ") + a.prompt.View()
		}
		return v
	case tabGroups:
		return a.groupsView()
	}
	return ""
}

func (a App) groupsView() string {
	groups := a.ctrl.Session().Groups()
	var b strings.Builder
	b.WriteString(SectionHeader.Render("Groups"))
	b.WriteString("\n")
	if len(groups) == 0 {
		b.WriteString(MutedText.Render("  no groups yet; mark items in the cart and press g"))
		return b.String()
	}
	for i, g := range groups {
		line := fmt.Sprintf("%-30s %6s items   created %s", g.Name, humanize.Comma(int64(len(g.Items))), humanize.Time(g.Created))
		if i == a.group {
			b.WriteString(SelectedItem.Render("> "+line) + "\n")
		} else {
			b.WriteString(NormalItem.Render("  "+line) + "\n")
		}
	}
	return b.String()
}

func (a App) progressLine() string {
	pct := a.ctrl.Progress()
	spin := "  "
	if a.running {
		spin = a.spin.View() + " "
	}
	line := spin + a.bar.ViewAs(float64(pct)/100) + fmt.Sprintf(" %3d%%", pct)
	if a.status != "" {
		line += "  " + MutedText.Render(a.status)
	}
	return line
}

// statusBar shows the error, if any, or the key hints for the current tab.
func (a App) statusBar() string {
	if a.err != nil {
		return ErrorStyle.Width(a.width).Render("Error: " + a.err.Error() + " (press any key to dismiss)")
	}
	return StatusBar.Width(a.width).Render(a.help.ShortHelpView(a.keys.hints(a.tab)))
}

// Tab returns the active tab (for testing).
func (a App) Tab() int {
	return int(a.tab)
}

// Err returns the error shown in the status bar (for testing).
func (a App) Err() error {
	return a.err
}

