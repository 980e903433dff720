// Package terminal renders the chat widget in a text terminal.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"chat-widget/internal/domain"
	"chat-widget/internal/session"
)

// Launcher links shown next to the chat entry point.
var LauncherLinks = []struct {
	Label string
	URL   string
}{
	{Label: "Frequently Asked Questions", URL: "https://locumstory.com/locums-questions"},
	{Label: "Browse All Podcasts", URL: "https://open.spotify.com/show/19XB0IsqqC6CX3FJS1d9Oa"},
}

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorDim   = "\033[2m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
)

// Display prints chat output. It is safe for use from the session's
// notification goroutines.
type Display struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *glamour.TermRenderer
	color    bool
}

// NewDisplay renders bot answers as markdown wrapped at width. style is a
// glamour standard style name; empty picks one from the terminal.
func NewDisplay(out io.Writer, width int, style string) (*Display, error) {
	if out == nil {
		return nil, fmt.Errorf("terminal: output must not be nil")
	}
	if width <= 20 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width-10))
	if err != nil {
		return nil, fmt.Errorf("terminal: create renderer: %w", err)
	}
	return &Display{out: out, renderer: renderer, color: style != "notty"}, nil
}

func (d *Display) paint(code, s string) string {
	if !d.color {
		return s
	}
	return code + s + colorReset
}

// Welcome prints the launcher banner and the quick asks.
func (d *Display) Welcome(quick []session.QuickAsk) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, d.paint(colorBold+colorCyan, "Chat with us"))
	fmt.Fprintln(d.out, d.paint(colorGray, "Powered by locumstory"))
	for _, l := range LauncherLinks {
		fmt.Fprintf(d.out, "  %s %s\n", d.paint(colorGray, l.Label+":"), l.URL)
	}
	fmt.Fprintln(d.out, d.paint(colorGray, "Commands: /quick N | /videos | /history | /exit"))
	d.quickAsksLocked(quick)
}

func (d *Display) QuickAsks(quick []session.QuickAsk) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quickAsksLocked(quick)
}

func (d *Display) quickAsksLocked(quick []session.QuickAsk) {
	if len(quick) == 0 {
		return
	}
	fmt.Fprintln(d.out, d.paint(colorGray, "Quick asks:"))
	for i, qa := range quick {
		fmt.Fprintf(d.out, "  [%d] %s\n", i+1, qa.Label)
	}
}

// Event prints one history change.
func (d *Display) Event(ev session.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch ev.Kind {
	case session.EventReset:
		fmt.Fprintln(d.out, d.paint(colorDim, strings.Repeat("-", 40)))
	case session.EventAppended, session.EventReplaced:
		d.messageLocked(ev.Message)
	}
}

// History prints every message.
func (d *Display) History(msgs []domain.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range msgs {
		d.messageLocked(m)
	}
}

func (d *Display) messageLocked(m domain.Message) {
	switch {
	case m.Role == domain.RoleUser:
		fmt.Fprintf(d.out, "%s %s\n", d.paint(colorBold+colorGreen, "You:"), m.Text)
	case m.Pending:
		fmt.Fprintln(d.out, d.paint(colorDim, m.Text))
	default:
		fmt.Fprintln(d.out, d.paint(colorBold+colorCyan, "Bot:"))
		fmt.Fprint(d.out, d.render(m.Text))
		for _, link := range m.Links {
			fmt.Fprintf(d.out, "  %s %s\n", d.paint(colorGray, "source:"), link)
		}
		for _, ref := range m.RelatedMedia {
			fmt.Fprintf(d.out, "  %s %s\n", d.paint(colorGray, "video:"), ref.Title)
		}
	}
}

func (d *Display) render(text string) string {
	rendered, err := d.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return rendered
}

// Videos lists the learning-video panel.
func (d *Display) Videos(refs []domain.MediaRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, d.paint(colorBold+colorCyan, "Learn from physicians"))
	for _, ref := range refs {
		fmt.Fprintf(d.out, "  %s\n", d.paint(colorBold, ref.Title))
		fmt.Fprintf(d.out, "    %s\n", ref.Description)
		fmt.Fprintf(d.out, "    %s  (%s)\n", d.paint(colorGray, ref.Speaker), ref.Source)
	}
}

// Notice prints a one-line status message.
func (d *Display) Notice(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, d.paint(colorGray, fmt.Sprintf(format, args...)))
}

func (d *Display) Prompt() {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.out, d.paint(colorBold+colorGreen, "> "))
}
