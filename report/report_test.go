package report_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/xeptore/ytmdl/history"
	"github.com/xeptore/ytmdl/report"
	"github.com/xeptore/ytmdl/types"
)

func TestRenderer(t *testing.T) {
	t.Parallel()

	release := types.ReleaseRecord{ //nolint:exhaustruct
		Title:   "Version Up",
		Artists: []types.ArtistRef{{Name: "ODD EYE CIRCLE"}},
		Tracks:  []types.TrackInfo{{Position: 1, Title: "Lucid"}, {Position: 2, Title: "Air Force One"}}, //nolint:exhaustruct
	}
	plan := types.TrackPlan{ //nolint:exhaustruct
		Track:    release.Tracks[0],
		Entry:    types.PlaylistEntry{VideoID: "vid1"}, //nolint:exhaustruct
		FileName: "01. ODD EYE CIRCLE - Lucid.mp3",
		Score:    1,
	}

	var out bytes.Buffer
	r := report.NewRenderer(&out, false)

	r.Plans(release, []types.TrackPlan{plan})
	r.Mismatch(&types.MismatchError{
		UnmatchedTracks:  release.Tracks[1:],
		UnmatchedEntries: []types.UnmatchedEntry{{Entry: types.PlaylistEntry{Title: "[Private video]", Index: 1}, Reason: types.ReasonUnavailable}}, //nolint:exhaustruct
	})
	r.Mismatch(nil)

	started := time.Now()
	r.Result(types.PipelineResult{
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Outcomes: []types.Outcome{
			{Plan: plan, Status: types.StatusSucceeded, Path: "/music/01.mp3"},
			{Plan: plan, Status: types.StatusFailed, Err: errors.New("yt-dlp exited")},
		},
	})
	r.Runs([]history.Run{{ID: uuid.New(), ReleaseTitle: "Version Up", Artist: "ODD EYE CIRCLE", StartedAt: started}}) //nolint:exhaustruct

	s := strings.ToLower(out.String())
	for _, want := range []string{
		"odd eye circle - version up",
		"01. odd eye circle - lucid.mp3",
		"1/2 planned",
		"air force one",
		"[private video]",
		"unavailable",
		"/music/01.mp3",
		"yt-dlp exited",
		"1 succeeded, 0 skipped, 1 failed, 0 canceled",
		"3s",
	} {
		assert.Contains(t, s, want)
	}
	assert.NotContains(t, s, "\x1b[")
}

func TestRendererColors(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	report.NewRenderer(&out, true).Result(types.PipelineResult{
		Outcomes: []types.Outcome{{Status: types.StatusFailed}}, //nolint:exhaustruct
	})

	assert.Contains(t, strings.ToLower(out.String()), "failed")
}
