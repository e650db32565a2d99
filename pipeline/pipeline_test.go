package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/ytmdl/cache"
	"github.com/xeptore/ytmdl/config"
	"github.com/xeptore/ytmdl/download"
	"github.com/xeptore/ytmdl/fetch"
	"github.com/xeptore/ytmdl/history"
	"github.com/xeptore/ytmdl/pipeline"
	"github.com/xeptore/ytmdl/reconcile"
	"github.com/xeptore/ytmdl/types"
)

const (
	releaseURL  = "https://www.discogs.com/release/27651927-Odd-Eye-Circle-Version-Up"
	playlistURL = "https://www.youtube.com/playlist?list=OLAK5uy_mZcxjzRvOZAUa2H6Pf8LVvyLDGeBSdmJQ"
	coverURL    = "https://i.discogs.com/cover.jpeg"
)

var pngCover = []byte{
	0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde,
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()

	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)

	return b
}

type fakeDownloader struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeDownloader) Download(_ context.Context, entry types.PlaylistEntry, dir string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	path := filepath.Join(dir, "track.mp3")
	return path, os.WriteFile(path, []byte(entry.VideoID), 0o600)
}

type coverTagger struct {
	mu     sync.Mutex
	covers []types.Cover
}

func (c *coverTagger) Tag(_ string, _ types.TagSet, cover types.Cover) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.covers = append(c.covers, cover)

	return nil
}

type harness struct {
	pages      map[string][]byte
	downloader *fakeDownloader
	tagger     *coverTagger
	conf       *config.Config
}

func setup(t *testing.T, playlistFixture string) *harness {
	t.Helper()

	return &harness{
		pages: map[string][]byte{
			releaseURL:  fixture(t, "release.html"),
			playlistURL: fixture(t, playlistFixture),
			coverURL:    pngCover,
		},
		downloader: &fakeDownloader{}, //nolint:exhaustruct
		tagger:     &coverTagger{},    //nolint:exhaustruct
		conf: &config.Config{ //nolint:exhaustruct
			Output: config.Output{ //nolint:exhaustruct
				Dir:       filepath.Join(t.TempDir(), "out"),
				Overwrite: lo.ToPtr(true),
				Format:    "mp3",
			},
			Download: config.Download{ //nolint:exhaustruct
				Concurrency: 2,
				TempDir:     t.TempDir(),
				Timeouts:    config.DownloadTimeouts{Track: config.Duration{Duration: time.Minute}},
			},
			Reconcile: config.Reconcile{Window: lo.ToPtr(3), MinScore: 0.5},
		},
	}
}

func (f *harness) pipeline(t *testing.T, opts ...pipeline.Option) *pipeline.Pipeline {
	t.Helper()

	c := cache.New()
	t.Cleanup(c.Stop)

	fetcher := fetch.FetcherFunc(func(_ context.Context, u string) ([]byte, error) {
		b, ok := f.pages[u]
		if !ok {
			return nil, types.FetchFailed("test", u, errors.New("not found"))
		}
		return b, nil
	})

	opts = append(opts, pipeline.WithDownloadOptions(download.WithDownloader(f.downloader), download.WithTagger(f.tagger)))

	return pipeline.New(zerolog.Nop(), f.conf, fetcher, c, opts...)
}

func TestRun(t *testing.T) {
	t.Parallel()

	f := setup(t, "playlist.html")
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var reviewed int
	hooks := pipeline.Hooks{ //nolint:exhaustruct
		Review: func(_ types.ReleaseRecord, report reconcile.Report) { reviewed = len(report.Plans) },
		Confirm: func(context.Context, *types.MismatchError) (bool, error) {
			t.Fatal("no confirmation is needed for a full match")
			return false, nil
		},
	}

	summary, err := f.pipeline(t, pipeline.WithHistory(store)).Run(context.Background(), pipeline.Request{ReleaseURL: releaseURL, PlaylistURL: playlistURL}, hooks) //nolint:exhaustruct
	require.NoError(t, err)

	assert.Equal(t, 6, reviewed)
	assert.Equal(t, "Version Up", summary.Release.Title)
	require.NoError(t, summary.Report.Mismatch())
	assert.Equal(t, 6, summary.Result.Succeeded())
	for _, o := range summary.Result.Outcomes {
		assert.FileExists(t, o.Path)
	}

	require.Len(t, f.tagger.covers, 6)
	for _, cover := range f.tagger.covers {
		assert.Equal(t, "image/png", cover.MIME)
		assert.Equal(t, pngCover, cover.Data)
	}

	runs, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, releaseURL, runs[0].ReleaseURL)
	assert.Equal(t, 6, runs[0].Count(types.StatusSucceeded))
}

func TestRunStrictMismatch(t *testing.T) {
	t.Parallel()

	f := setup(t, "unavailable.html")
	req := pipeline.Request{ReleaseURL: releaseURL, PlaylistURL: playlistURL, Strict: true}

	summary, err := f.pipeline(t).Run(context.Background(), req, pipeline.Hooks{}) //nolint:exhaustruct
	require.ErrorIs(t, err, pipeline.ErrStrictMismatch)
	require.ErrorIs(t, err, types.ErrReconciliationMismatch)
	require.NotNil(t, summary)
	assert.NotEmpty(t, summary.Report.UnmatchedTracks)
	assert.Zero(t, f.downloader.calls)
}

func TestRunDeclinedMismatch(t *testing.T) {
	t.Parallel()

	f := setup(t, "unavailable.html")
	var shown *types.MismatchError
	hooks := pipeline.Hooks{ //nolint:exhaustruct
		Confirm: func(_ context.Context, m *types.MismatchError) (bool, error) {
			shown = m
			return false, nil
		},
	}

	_, err := f.pipeline(t).Run(context.Background(), pipeline.Request{ReleaseURL: releaseURL, PlaylistURL: playlistURL}, hooks) //nolint:exhaustruct
	require.ErrorIs(t, err, pipeline.ErrAborted)
	require.NotNil(t, shown)
	assert.Len(t, shown.UnmatchedEntries, 3)
	assert.Zero(t, f.downloader.calls)
}

func TestRunAcceptedMismatch(t *testing.T) {
	t.Parallel()

	f := setup(t, "unavailable.html")
	hooks := pipeline.Hooks{ //nolint:exhaustruct
		Confirm: func(context.Context, *types.MismatchError) (bool, error) { return true, nil },
	}

	summary, err := f.pipeline(t).Run(context.Background(), pipeline.Request{ReleaseURL: releaseURL, PlaylistURL: playlistURL}, hooks) //nolint:exhaustruct
	require.NoError(t, err)
	assert.Equal(t, len(summary.Report.Plans), summary.Result.Succeeded())
	assert.Equal(t, len(summary.Report.Plans), f.downloader.calls)
}

func TestRunEdit(t *testing.T) {
	t.Parallel()

	f := setup(t, "playlist.html")
	hooks := pipeline.Hooks{ //nolint:exhaustruct
		Edit: func(_ context.Context, r *types.ReleaseRecord) error {
			r.Title = "Version Up (Deluxe)"
			r.Tracks[0].Title = "Did You Wait"
			return nil
		},
	}

	_, report, err := f.pipeline(t).Plan(context.Background(), pipeline.Request{ReleaseURL: releaseURL, PlaylistURL: playlistURL}, hooks) //nolint:exhaustruct
	require.NoError(t, err)
	require.Len(t, report.Plans, 6)
	assert.Equal(t, "Version Up (Deluxe)", report.Plans[0].Tags.Album)
	assert.Equal(t, "01. ODD EYE CIRCLE - Did You Wait.mp3", report.Plans[0].FileName)
	assert.Zero(t, f.downloader.calls)
}

func TestResolveFailure(t *testing.T) {
	t.Parallel()

	f := setup(t, "playlist.html")
	delete(f.pages, releaseURL)

	_, _, err := f.pipeline(t).Resolve(context.Background(), pipeline.Request{ReleaseURL: releaseURL, PlaylistURL: playlistURL}) //nolint:exhaustruct
	require.ErrorIs(t, err, types.ErrFetchFailed)
}

func TestCoverRejectsNonImage(t *testing.T) {
	t.Parallel()

	f := setup(t, "playlist.html")
	f.pages[coverURL] = []byte("<html>not found</html>")

	cover := f.pipeline(t).Cover(context.Background(), types.ReleaseRecord{ImageURL: coverURL}) //nolint:exhaustruct
	assert.True(t, cover.IsZero())
}
