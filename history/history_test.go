package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/ytmdl/history"
	"github.com/xeptore/ytmdl/types"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()

	s, err := history.Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	return s
}

func sampleResult() (types.ReleaseRecord, types.PipelineResult) {
	release := types.ReleaseRecord{ //nolint:exhaustruct
		URL:     "https://www.discogs.com/release/1",
		Title:   "Version Up",
		Artists: []types.ArtistRef{{Name: "ODD EYE CIRCLE"}},
	}

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	result := types.PipelineResult{
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Outcomes: []types.Outcome{
			{
				Plan: types.TrackPlan{ //nolint:exhaustruct
					Track:    types.TrackInfo{Position: 1, Title: "Did You Wait?"}, //nolint:exhaustruct
					Entry:    types.PlaylistEntry{VideoID: "v1"},                    //nolint:exhaustruct
					FileName: "01. ODD EYE CIRCLE - Did You Wait_.mp3",
				},
				Status: types.StatusSucceeded,
				Path:   "/music/01. ODD EYE CIRCLE - Did You Wait_.mp3",
			},
			{
				Plan: types.TrackPlan{ //nolint:exhaustruct
					Track: types.TrackInfo{Position: 2, Title: "Air Force One"}, //nolint:exhaustruct
					Entry: types.PlaylistEntry{VideoID: "v2"},                  //nolint:exhaustruct
				},
				Status: types.StatusFailed,
				Err:    errors.New("yt-dlp exited"),
			},
		},
	}

	return release, result
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	release, result := sampleResult()

	run, err := history.NewRun(release, "https://www.youtube.com/playlist?list=X", "/music", result)
	require.NoError(t, err)
	assert.Equal(t, "ODD EYE CIRCLE", run.Artist)
	assert.Equal(t, 1, run.Count(types.StatusSucceeded))
	assert.Equal(t, 1, run.Count(types.StatusFailed))
	assert.Equal(t, "yt-dlp exited", run.Tracks[1].Error)

	require.NoError(t, s.Save(context.Background(), run))

	got, err := s.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, *got)
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	release, result := sampleResult()

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		run, err := history.NewRun(release, "p", "/music", result)
		require.NoError(t, err)
		require.NoError(t, s.Save(context.Background(), run))
		ids[i] = run.ID
	}

	runs, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	runs, err = s.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	_, err := s.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, history.ErrRunNotFound)
}
