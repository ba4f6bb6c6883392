// Package presenter renders worker events on a terminal.
package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"sjsage522/passoworker/helpers"
	"sjsage522/passoworker/internal/crawler"
	"sjsage522/passoworker/services/worker"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
)

// missing is shown for a detail field the page did not have
const missing = "N/A"

// OutputFormat selects how results are written
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
}

// Presenter writes results to out and progress lines to status
type Presenter struct {
	out    io.Writer
	status io.Writer
	format OutputFormat
}

// New creates a presenter. status may equal out.
func New(out, status io.Writer, format OutputFormat) *Presenter {
	return &Presenter{out: out, status: status, format: format}
}

// NewTable returns a table writer in the house style
func (p *Presenter) NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(p.out)
	return t
}

// Handle renders one worker event
func (p *Presenter) Handle(ev worker.Event) error {
	switch ev.Kind {
	case worker.EventListReady:
		return p.RenderList(ev.Matches)
	case worker.EventDetailReady:
		return p.RenderDetail(ev.Detail)
	case worker.EventErrorOccurred:
		p.RenderAlert(ev.Message)
	case worker.EventLogLine:
		p.RenderLog(ev.Message)
	}
	return nil
}

// RenderList writes the match table
func (p *Presenter) RenderList(matches []crawler.MatchSummary) error {
	if p.format == FormatJSON {
		return p.writeJSON(matches)
	}

	t := p.NewTable()
	t.AppendHeader(table.Row{"Index", "Event Name", "Date", "Location"})
	for _, m := range matches {
		t.AppendRow(table.Row{strconv.Itoa(m.Index), m.Title, m.Date, m.Location})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d matches", len(matches)), "", ""})
	t.Render()
	return nil
}

// RenderDetail writes date, venue and the category list of one match
func (p *Presenter) RenderDetail(detail *crawler.MatchDetail) error {
	if detail == nil {
		return nil
	}
	if p.format == FormatJSON {
		return p.writeJSON(detail)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DATE: %s\n", helpers.OrDefault(detail.Date, missing))
	fmt.Fprintf(&b, "VENUE: %s\n", helpers.OrDefault(detail.Venue, missing))
	b.WriteString(strings.Repeat("-", 30) + "\n")
	b.WriteString("CATEGORIES:\n")

	if len(detail.Categories) == 0 {
		b.WriteString("  " + missing + "\n")
	} else {
		l := list.NewWriter()
		l.SetStyle(list.StyleBulletCircle)
		for _, c := range detail.Categories {
			l.AppendItem(c)
		}
		for _, line := range strings.Split(l.Render(), "\n") {
			b.WriteString("  " + line + "\n")
		}
	}

	_, err := io.WriteString(p.out, b.String())
	return err
}

// RenderLog writes a progress line
func (p *Presenter) RenderLog(msg string) {
	fmt.Fprintf(p.status, "» %s\n", msg)
}

// RenderAlert writes a boxed error the user should not miss
func (p *Presenter) RenderAlert(msg string) {
	t := table.NewWriter()
	t.SetStyle(table.StyleBold)
	t.SetOutputMirror(p.status)
	t.AppendHeader(table.Row{"Error"})
	t.AppendRow(table.Row{"An error occurred:\n" + msg})
	t.Render()
}

func (p *Presenter) writeJSON(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
