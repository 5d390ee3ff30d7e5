package main

import (
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelsmith/internal/store"
)

var statusCaser = cases.Title(language.English)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleLight)
		t.Style().Color = table.ColorOptions{}
	}
	t.Style().Format.Header = text.FormatDefault
	return t
}

func renderSpecTable(out io.Writer, specs []*store.SceneSpec) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Title", "Scenes", "Duration", "Status", "Created"})
	for _, spec := range specs {
		t.AppendRow(table.Row{
			shortID(spec.ID),
			spec.Title,
			len(spec.Scenes),
			(time.Duration(spec.TargetDuration) * time.Second).String(),
			statusCaser.String(string(spec.Status)),
			spec.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	t.Render()
}

func renderSummaryTable(out io.Writer, summary store.HealthSummary) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Status", "Count"})
	t.AppendRows([]table.Row{
		{"Draft", summary.Draft},
		{"Approved", summary.Approved},
		{"Rendering", summary.Rendering},
		{"Rendered", summary.Rendered},
		{"Failed", summary.Failed},
	})
	t.AppendFooter(table.Row{"Total", summary.Total})
	t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
