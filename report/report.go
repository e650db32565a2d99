package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/xeptore/ytmdl/history"
	"github.com/xeptore/ytmdl/types"
)

const maxCellWidth = 60

var statusColors = map[types.Status]text.Colors{
	types.StatusSucceeded: {text.FgGreen},
	types.StatusSkipped:   {text.FgYellow},
	types.StatusFailed:    {text.FgRed},
	types.StatusCanceled:  {text.FgHiBlack},
}

type Renderer struct {
	w     io.Writer
	color bool
}

// NewRenderer writes tables to w. Colors are only used when color is set,
// which callers derive from whether w is a terminal.
func NewRenderer(w io.Writer, color bool) *Renderer {
	return &Renderer{w: w, color: color}
}

func (r *Renderer) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: maxCellWidth}, //nolint:exhaustruct
		{Number: 5, WidthMax: maxCellWidth}, //nolint:exhaustruct
	})

	return t
}

func (r *Renderer) status(s types.Status) string {
	if !r.color {
		return string(s)
	}

	return statusColors[s].Sprint(string(s))
}

func (r *Renderer) Plans(release types.ReleaseRecord, plans []types.TrackPlan) {
	t := r.newTable(fmt.Sprintf("%s - %s", types.JoinArtists(release.Artists), release.Title))
	t.AppendHeader(table.Row{"#", "Title", "Video", "Score", "File"})
	for _, p := range plans {
		t.AppendRow(table.Row{p.Track.Position, p.Track.Title, p.Entry.VideoID, strconv.FormatFloat(p.Score, 'f', 2, 64), p.FileName})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d planned", len(plans), len(release.Tracks))})
	t.Render()
}

func (r *Renderer) Mismatch(m *types.MismatchError) {
	if nil == m {
		return
	}

	t := r.newTable("Unmatched")
	t.AppendHeader(table.Row{"Kind", "Item", "Reason"})
	for _, track := range m.UnmatchedTracks {
		t.AppendRow(table.Row{"track", fmt.Sprintf("%d. %s", track.Position, track.Title), "no playlist entry"})
	}
	for _, u := range m.UnmatchedEntries {
		t.AppendRow(table.Row{"entry", fmt.Sprintf("#%d %s (%s)", u.Entry.Index+1, u.Entry.Title, u.Entry.VideoID), string(u.Reason)})
	}
	t.Render()
}

func (r *Renderer) Result(result types.PipelineResult) {
	t := r.newTable("Result")
	t.AppendHeader(table.Row{"#", "Title", "Video", "Status", "Detail"})
	for _, o := range result.Outcomes {
		detail := o.Path
		if nil != o.Err {
			detail = o.Err.Error()
		}
		t.AppendRow(table.Row{o.Plan.Track.Position, o.Plan.Track.Title, o.Plan.Entry.VideoID, r.status(o.Status), detail})
	}
	t.AppendFooter(table.Row{
		"",
		fmt.Sprintf(
			"%d succeeded, %d skipped, %d failed, %d canceled",
			result.Succeeded(),
			result.Count(types.StatusSkipped),
			result.Failed(),
			result.Count(types.StatusCanceled),
		),
		"",
		"",
		result.FinishedAt.Sub(result.StartedAt).Round(time.Second).String(),
	})
	t.Render()
}

func (r *Renderer) Runs(runs []history.Run) {
	t := r.newTable("History")
	t.AppendHeader(table.Row{"Started", "Release", "Artist", "OK", "Failed", "ID"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.StartedAt.Local().Format(time.DateTime),
			run.ReleaseTitle,
			run.Artist,
			run.Count(types.StatusSucceeded),
			run.Count(types.StatusFailed),
			run.ID.String(),
		})
	}
	t.Render()
}
