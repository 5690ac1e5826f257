// Package console renders the four display panels in the terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/term"

	"github.com/jaakkos/statusboard/internal/domain"
)

// Console modes accepted by ShouldEnable.
const (
	ModeAuto = "auto"
	ModeOn   = "on"
	ModeOff  = "off"
)

const logMaxLines = 200

// ShouldEnable reports whether the terminal console should run for mode.
// Auto enables it only when stdout is a terminal.
func ShouldEnable(mode string) bool {
	switch mode {
	case ModeOn:
		return true
	case ModeOff:
		return false
	default:
		return term.IsTerminal(int(os.Stdout.Fd()))
	}
}

// Console shows one bordered text pane per element plus a log pane.
// Text is shown verbatim: tview color tags are disabled so JSON brackets render as-is.
type Console struct {
	app    *tview.Application
	panes  map[string]*tview.TextView
	logs   *tview.TextView
	queue  func(func())
	closed atomic.Bool
	ready  chan struct{}
	done   chan struct{}
}

// Option configures a Console.
type Option func(*Console)

// WithScreen runs the console on screen instead of the process terminal.
func WithScreen(s tcell.Screen) Option {
	return func(c *Console) { c.app.SetScreen(s) }
}

var titles = map[string]string{
	domain.ElementStats:       "Stats",
	domain.ElementAnalyzer:    "Analyzer",
	domain.ElementRandomEvent: "Random Event",
	domain.ElementLastUpdated: "Last Updated",
}

// New builds the layout. Call Run to start drawing.
func New(opts ...Option) *Console {
	makePane := func(title string) *tview.TextView {
		tv := tview.NewTextView().
			SetDynamicColors(false).
			SetWrap(true)
		tv.SetBorder(true).SetTitle(" " + title + " ").SetTitleAlign(tview.AlignLeft)
		return tv
	}

	c := &Console{
		panes: make(map[string]*tview.TextView, 4),
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, id := range domain.Elements() {
		c.panes[id] = makePane(titles[id])
	}
	c.panes[domain.ElementLastUpdated].SetTextColor(tcell.ColorYellow)
	c.logs = makePane("Log")
	c.logs.SetMaxLines(logMaxLines)
	c.logs.SetTextColor(tcell.ColorGray)

	top := tview.NewFlex().
		AddItem(c.panes[domain.ElementStats], 0, 1, false).
		AddItem(c.panes[domain.ElementAnalyzer], 0, 1, false)
	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(top, 0, 3, false).
		AddItem(c.panes[domain.ElementRandomEvent], 0, 2, false).
		AddItem(c.panes[domain.ElementLastUpdated], 3, 0, false).
		AddItem(c.logs, 7, 0, false)

	c.app = tview.NewApplication().SetRoot(layout, true).EnableMouse(false)
	c.queue = func(f func()) { c.app.QueueUpdateDraw(f) }

	var once sync.Once
	c.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		once.Do(func() { close(c.ready) })
		return false
	})
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run draws until Stop is called or the user quits (Ctrl-C inside tview).
func (c *Console) Run() error {
	defer close(c.done)
	return c.app.Run()
}

// Done is closed when Run returns.
func (c *Console) Done() <-chan struct{} {
	return c.done
}

// WaitReady blocks until the first frame has been drawn.
func (c *Console) WaitReady() {
	<-c.ready
}

// Stop ends Run. Safe to call more than once.
func (c *Console) Stop() {
	if c.closed.Swap(true) {
		return
	}
	c.app.Stop()
}

// SetText implements app.Surface. The pane's whole text is replaced.
func (c *Console) SetText(element, text string) {
	pane, ok := c.panes[element]
	if !ok || c.closed.Load() {
		return
	}
	c.queue(func() {
		pane.SetText(text)
		pane.ScrollToBeginning()
	})
}

// Text returns the current text of element's pane.
func (c *Console) Text(element string) string {
	pane, ok := c.panes[element]
	if !ok {
		return ""
	}
	return pane.GetText(false)
}

// LogWriter returns a writer that appends to the log pane.
func (c *Console) LogWriter() io.Writer {
	return &paneWriter{c: c}
}

type paneWriter struct {
	c *Console
}

func (w *paneWriter) Write(p []byte) (int, error) {
	if w.c.closed.Load() {
		return len(p), nil
	}
	text := string(p)
	w.c.queue(func() {
		fmt.Fprint(w.c.logs, text)
		w.c.logs.ScrollToEnd()
	})
	return len(p), nil
}
