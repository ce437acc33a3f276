package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/Balram04/assigno/internal/lms"
)

// Predefined palette of distinct colors for senders
var colorPalette = []*color.Color{
	color.New(color.FgGreen),
	color.New(color.FgCyan),
	color.New(color.FgMagenta),
	color.New(color.FgYellow),
	color.New(color.FgBlue),
	color.New(color.FgRed),
}

var timeColor = color.New(color.FgHiWhite, color.Faint)
var chatLabel = color.New(color.FgHiMagenta, color.Bold)

// chatPrinter renders group messages. Polls return overlapping windows of recent messages,
// so messages already printed are skipped.
type chatPrinter struct {
	w      io.Writer
	asJSON bool

	mu           sync.Mutex
	seen         map[string]bool
	senderColors map[string]*color.Color
	colorIndex   int
}

func newChatPrinter(w io.Writer) *chatPrinter {
	return &chatPrinter{
		w:            w,
		seen:         make(map[string]bool),
		senderColors: make(map[string]*color.Color),
	}
}

// Print writes the messages not printed before and returns how many that was.
func (p *chatPrinter) Print(msgs []lms.Message) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, m := range msgs {
		if m.ID != "" {
			if p.seen[m.ID] {
				continue
			}
			p.seen[m.ID] = true
		}
		p.printOne(m)
		n++
	}
	return n
}

func (p *chatPrinter) printOne(m lms.Message) {
	if p.asJSON {
		printJSON(p.w, m)
		return
	}
	name := m.SenderName()
	c := p.senderColors[name]
	if c == nil {
		c = colorPalette[p.colorIndex%len(colorPalette)]
		p.senderColors[name] = c
		p.colorIndex++
	}

	stamp := "--:--"
	if !m.CreatedAt.IsZero() {
		stamp = m.CreatedAt.Local().Format("01-02 15:04")
	}
	prefix := fmt.Sprintf("  [%s] %s: ", stamp, name)

	fmt.Fprint(p.w, "  ")
	timeColor.Fprintf(p.w, "[%s]", stamp)
	fmt.Fprint(p.w, " ")
	c.Fprintf(p.w, "%s", name)
	fmt.Fprintf(p.w, ": %s\n", indentMultiline(m.Content, strings.Repeat(" ", len(prefix))))
}

// header introduces a chat transcript.
func (p *chatPrinter) header(group string) {
	chatLabel.Fprintf(p.w, "\nGroup: %s\n\n", group)
}

// indentMultiline adds indentation to all lines except the first in a multiline string
func indentMultiline(text, indent string) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= 1 {
		return text
	}
	for i := 1; i < len(lines); i++ {
		lines[i] = indent + lines[i]
	}
	return strings.Join(lines, "\n")
}
