package web

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/collector/internal/core"
	"github.com/JonMunkholm/collector/internal/store"
)

// DashboardData feeds the dashboard page.
type DashboardData struct {
	Stats       store.Stats
	Runs        []RunView
	Limiter     core.ImportLimiterStatus
	MaxFileSize int64
}

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:60rem;color:#222}
table{border-collapse:collapse;width:100%}th,td{padding:.3rem .6rem;border-bottom:1px solid #ddd;text-align:left}
.stats{display:flex;gap:1rem;flex-wrap:wrap}.stat{border:1px solid #ddd;border-radius:6px;padding:.6rem 1rem}
.stat b{display:block;font-size:1.4rem}.failed{color:#b00}.alert{border:1px solid #b00;color:#b00;padding:.6rem 1rem;border-radius:6px}`

// Dashboard renders the catalog overview: counters, the import form and the
// recent import runs.
func Dashboard(data DashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &htmlWriter{w: w}
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Collector</title><style>`)
		p.raw(pageStyle)
		p.raw(`</style></head><body><h1>Collector</h1>`)

		p.raw(`<section class="stats">`)
		for _, s := range []struct {
			label string
			value int
		}{
			{"Cards", data.Stats.Cards},
			{"Sets", data.Stats.Sets},
			{"Owned", data.Stats.OwnedCards},
			{"Copies", data.Stats.TotalQuantity},
			{"For trade", data.Stats.ForTrade},
			{"Imports", data.Stats.Imports},
		} {
			p.raw(`<div class="stat"><b>`)
			p.text(fmt.Sprint(s.value))
			p.raw(`</b>`)
			p.text(s.label)
			p.raw(`</div>`)
		}
		p.raw(`</section>`)

		p.raw(`<h2>Import CSV</h2>`)
		p.raw(`<form method="post" action="/api/import/csv" enctype="multipart/form-data">`)
		p.raw(`<p><input type="file" name="csv_file" accept=".csv,text/csv"> or server path <input type="text" name="csv_path" placeholder="data/cards.csv"></p>`)
		p.raw(`<p><button type="submit">Import</button> `)
		p.text(fmt.Sprintf("Max %s. Import slots in use: %d of %d.",
			formatBytes(data.MaxFileSize), data.Limiter.Active, data.Limiter.MaxConcurrent))
		p.raw(`</p></form>`)

		p.raw(`<h2>Recent imports</h2>`)
		if len(data.Runs) == 0 {
			p.raw(`<p>No imports yet.</p>`)
		} else {
			p.raw(`<table><thead><tr><th>Started</th><th>Source</th><th>Status</th><th>Created</th><th>Updated</th><th>Skipped</th><th>Duration</th></tr></thead><tbody>`)
			for _, run := range data.Runs {
				p.raw(`<tr><td>`)
				p.text(run.StartedAt.Local().Format(time.DateTime))
				p.raw(`</td><td>`)
				p.text(run.Source)
				p.raw(`</td><td`)
				if run.Status == store.RunFailed {
					p.raw(` class="failed" title="`)
					p.text(run.Message)
					p.raw(`"`)
				}
				p.raw(`>`)
				p.text(run.Status)
				for _, n := range []int{run.Created, run.Updated, run.Skipped} {
					p.raw(`</td><td>`)
					p.text(fmt.Sprint(n))
				}
				p.raw(`</td><td>`)
				p.text((time.Duration(run.DurationMS) * time.Millisecond).String())
				p.raw(`</td></tr>`)
			}
			p.raw(`</tbody></table>`)
		}

		p.raw(`</body></html>`)
		return p.err
	})
}

// ErrorAlert renders an error message as an HTML fragment for HTMX swaps.
func ErrorAlert(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &htmlWriter{w: w}
		p.raw(`<div class="alert" role="alert"><strong>`)
		p.text(msg.Message)
		p.raw(`</strong>`)
		if msg.Action != "" {
			p.raw(` <span>`)
			p.text(msg.Action)
			p.raw(`</span>`)
		}
		p.raw(` <small>(`)
		p.text(msg.Code)
		p.raw(`)</small></div>`)
		return p.err
	})
}

// htmlWriter writes markup and escaped text, keeping the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (p *htmlWriter) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *htmlWriter) text(s string) {
	p.raw(templ.EscapeString(s))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
