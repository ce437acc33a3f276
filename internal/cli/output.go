package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Balram04/assigno/internal/lms"
	"github.com/Balram04/assigno/internal/session"
)

var titleCaser = cases.Title(language.English)

// title capitalises headings and role names for display.
func title(s string) string {
	return titleCaser.String(s)
}

func roleTitle(r session.Role) string {
	return title(string(r))
}

// heading prints a section title in the same way list output is introduced.
func heading(w io.Writer, s string) {
	fmt.Fprintf(w, "%s:\n", title(s))
}

// table writes aligned columns. The header row is upper-cased.
type table struct {
	tw *tabwriter.Writer
}

func newTable(w io.Writer, headers ...string) *table {
	t := &table{tw: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)}
	upper := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(h)
	}
	t.row(upper...)
	return t
}

func (t *table) row(cols ...string) {
	fmt.Fprintln(t.tw, strings.Join(cols, "\t"))
}

func (t *table) flush() {
	t.tw.Flush()
}

func formatTime(ts lms.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

func formatGrade(g *float64, max float64) string {
	if g == nil {
		return "-"
	}
	if max > 0 {
		return fmt.Sprintf("%g/%g", *g, max)
	}
	return fmt.Sprintf("%g", *g)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func personName(p *lms.Person) string {
	if p == nil || p.FullName == "" {
		return "-"
	}
	return p.FullName
}

// empty prints the standard line for an empty listing.
func empty(w io.Writer, what string) {
	fmt.Fprintf(w, "No %s found\n", what)
}

func expiresIn(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Until(t).Round(time.Minute)
	if d <= 0 {
		return "expired"
	}
	return t.Local().Format(time.RFC3339) + " (in " + d.String() + ")"
}
