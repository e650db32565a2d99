package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/xeptore/ytmdl/cache"
	"github.com/xeptore/ytmdl/config"
	"github.com/xeptore/ytmdl/discogs"
	"github.com/xeptore/ytmdl/download"
	"github.com/xeptore/ytmdl/fetch"
	"github.com/xeptore/ytmdl/history"
	"github.com/xeptore/ytmdl/reconcile"
	"github.com/xeptore/ytmdl/types"
	"github.com/xeptore/ytmdl/youtube"
)

var (
	ErrAborted        = errors.New("aborted by user")
	ErrStrictMismatch = errors.New("mismatch not allowed in strict mode")
	ErrNotAnImage     = errors.New("cover is not an image")
)

type Request struct {
	ReleaseURL  string
	PlaylistURL string
	// Strict refuses to download anything when reconciliation leaves
	// tracks or entries unpaired.
	Strict bool
}

// Hooks let the caller inspect and amend a run between its stages. Nil hooks
// are skipped.
type Hooks struct {
	// Edit may change the release before plans are derived from it.
	Edit func(ctx context.Context, release *types.ReleaseRecord) error
	// Review is shown the plans before anything is downloaded.
	Review func(release types.ReleaseRecord, report reconcile.Report)
	// Confirm decides whether to go on despite a mismatch.
	Confirm func(ctx context.Context, mismatch *types.MismatchError) (bool, error)
}

type Summary struct {
	Release *types.ReleaseRecord
	Report  reconcile.Report
	Result  types.PipelineResult
}

type Pipeline struct {
	logger  zerolog.Logger
	conf    *config.Config
	fetcher fetch.Fetcher
	cache   *cache.Cache
	discogs *discogs.Client
	youtube *youtube.Client
	history *history.Store
	dlOpts  []download.Option
}

type Option func(*Pipeline)

func WithHistory(s *history.Store) Option {
	return func(p *Pipeline) { p.history = s }
}

// WithDownloadOptions is passed through to every download orchestrator the
// pipeline creates.
func WithDownloadOptions(opts ...download.Option) Option {
	return func(p *Pipeline) { p.dlOpts = append(p.dlOpts, opts...) }
}

func WithLister(l youtube.Lister) Option {
	return func(p *Pipeline) { p.youtube = youtube.NewClient(p.logger, p.fetcher, l) }
}

func New(logger zerolog.Logger, conf *config.Config, f fetch.Fetcher, c *cache.Cache, opts ...Option) *Pipeline {
	p := &Pipeline{ //nolint:exhaustruct
		logger:  logger,
		conf:    conf,
		fetcher: f,
		cache:   c,
		discogs: discogs.NewClient(logger, f),
		youtube: youtube.NewClient(logger, f, youtube.YtdlpLister{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Resolve fetches the release and the playlist concurrently. The first
// failure cancels the other fetch.
func (p *Pipeline) Resolve(ctx context.Context, req Request) (*types.ReleaseRecord, []types.PlaylistEntry, error) {
	var (
		release *types.ReleaseRecord
		entries []types.PlaylistEntry
	)

	wg, wgctx := errgroup.WithContext(ctx)
	wg.Go(func() (err error) {
		release, err = p.discogs.Fetch(wgctx, req.ReleaseURL)
		return err
	})
	wg.Go(func() (err error) {
		entries, err = p.youtube.Fetch(wgctx, req.PlaylistURL)
		return err
	})
	if err := wg.Wait(); nil != err {
		p.logger.Error().Err(err).Str("release_url", req.ReleaseURL).Str("playlist_url", req.PlaylistURL).Msg("Failed to resolve sources")
		return nil, nil, err
	}

	return release, entries, nil
}

func (p *Pipeline) Reconcile(release types.ReleaseRecord, entries []types.PlaylistEntry) reconcile.Report {
	report := reconcile.Reconcile(release, entries, reconcile.OptionsFromConfig(p.conf.Reconcile, p.conf.Output))
	p.logger.Info().Dict("reconciliation", report.ToDict()).Msg("Tracks reconciled")

	return report
}

// Plan resolves both sources and reconciles them without downloading.
func (p *Pipeline) Plan(ctx context.Context, req Request, hooks Hooks) (*types.ReleaseRecord, reconcile.Report, error) {
	release, entries, err := p.Resolve(ctx, req)
	if nil != err {
		return nil, reconcile.Report{}, err
	}

	if nil != hooks.Edit {
		if err := hooks.Edit(ctx, release); nil != err {
			return nil, reconcile.Report{}, fmt.Errorf("failed to edit release: %w", err)
		}
	}

	report := p.Reconcile(*release, entries)
	if nil != hooks.Review {
		hooks.Review(*release, report)
	}

	return release, report, nil
}

func (p *Pipeline) Run(ctx context.Context, req Request, hooks Hooks) (*Summary, error) {
	release, report, err := p.Plan(ctx, req, hooks)
	if nil != err {
		return nil, err
	}

	summary := &Summary{Release: release, Report: report} //nolint:exhaustruct

	var mismatch *types.MismatchError
	if errors.As(report.Mismatch(), &mismatch) {
		p.logger.Warn().
			Int("unmatched_tracks", len(mismatch.UnmatchedTracks)).
			Int("unmatched_entries", len(mismatch.UnmatchedEntries)).
			Msg("Release and playlist do not fully match")

		if req.Strict {
			return summary, errors.Join(ErrStrictMismatch, mismatch)
		}

		if nil != hooks.Confirm {
			ok, err := hooks.Confirm(ctx, mismatch)
			if nil != err {
				return summary, fmt.Errorf("failed to confirm mismatch: %w", err)
			}
			if !ok {
				return summary, ErrAborted
			}
		}
	}

	cover := p.Cover(ctx, *release)

	opts := append([]download.Option{download.WithCover(cover)}, p.dlOpts...)
	summary.Result = download.New(p.logger, p.conf.Download, p.conf.Output, opts...).Run(ctx, report.Plans)

	p.record(ctx, *release, req.PlaylistURL, summary.Result)

	return summary, nil
}

// Cover downloads the release image. A missing or broken cover only loses
// the artwork, so failures are logged and an empty cover is returned.
func (p *Pipeline) Cover(ctx context.Context, release types.ReleaseRecord) types.Cover {
	if release.ImageURL == "" {
		return types.Cover{} //nolint:exhaustruct
	}

	logger := p.logger.With().Str("image_url", release.ImageURL).Logger()

	cover, err := p.cache.Covers.Fetch(release.ImageURL, cache.DefaultCoverTTL, func() (types.Cover, error) {
		b, err := p.fetcher.Fetch(ctx, release.ImageURL)
		if nil != err {
			return types.Cover{}, err //nolint:exhaustruct
		}

		mime := mimetype.Detect(b)
		if !mime.Is("image/jpeg") && !mime.Is("image/png") {
			return types.Cover{}, fmt.Errorf("%w: %s", ErrNotAnImage, mime.String()) //nolint:exhaustruct
		}

		return types.Cover{Data: b, MIME: mime.String()}, nil
	})
	if nil != err {
		logger.Warn().Err(err).Msg("Failed to get cover, tracks will have no artwork")
		return types.Cover{} //nolint:exhaustruct
	}
	logger.Debug().Str("mime", cover.MIME).Int("size", len(cover.Data)).Msg("Cover fetched")

	return cover
}

func (p *Pipeline) record(ctx context.Context, release types.ReleaseRecord, playlistURL string, result types.PipelineResult) {
	if nil == p.history {
		return
	}

	run, err := history.NewRun(release, playlistURL, p.conf.Output.Dir, result)
	if nil != err {
		p.logger.Error().Err(err).Msg("Failed to build history record")
		return
	}

	if err := p.history.Save(ctx, run); nil != err {
		p.logger.Error().Err(err).Msg("Failed to save history record")
		return
	}
	p.logger.Debug().Str("run_id", run.ID.String()).Msg("Run recorded")
}
