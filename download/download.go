package download

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/xeptore/ytmdl/config"
	"github.com/xeptore/ytmdl/ratelimit"
	"github.com/xeptore/ytmdl/types"
)

type Orchestrator struct {
	logger     zerolog.Logger
	conf       config.Download
	out        config.Output
	downloader Downloader
	transcoder Transcoder
	tagger     Tagger
	cover      types.Cover
	removeAll  func(path string) error
}

type Option func(*Orchestrator)

func WithDownloader(d Downloader) Option {
	return func(o *Orchestrator) { o.downloader = d }
}

func WithTranscoder(t Transcoder) Option {
	return func(o *Orchestrator) { o.transcoder = t }
}

func WithTagger(t Tagger) Option {
	return func(o *Orchestrator) { o.tagger = t }
}

// WithCover embeds c as the front cover of every track.
func WithCover(c types.Cover) Option {
	return func(o *Orchestrator) { o.cover = c }
}

func New(logger zerolog.Logger, conf config.Download, out config.Output, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:     logger,
		conf:       conf,
		out:        out,
		downloader: NewYtDlp(logger, conf.YtDlpPath, conf.CookiesFile),
		transcoder: NewFfmpeg(logger, conf.FfmpegPath),
		tagger:     ID3Tagger{},
		cover:      types.Cover{}, //nolint:exhaustruct
		removeAll:  os.RemoveAll,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run processes every plan in playlist order and returns their outcomes
// ordered by track position. A failing track never stops the others. Once ctx is canceled,
// tracks not yet finished are reported as canceled and completed files are
// kept.
func (o *Orchestrator) Run(ctx context.Context, plans []types.TrackPlan) types.PipelineResult {
	result := types.PipelineResult{StartedAt: time.Now()} //nolint:exhaustruct

	var (
		mu     sync.Mutex
		record = func(outcome types.Outcome) {
			mu.Lock()
			defer mu.Unlock()
			result.Outcomes = append(result.Outcomes, outcome)
		}
	)

	if err := os.MkdirAll(o.out.Dir, 0o755); nil != err {
		o.logger.Error().Err(err).Str("dir", o.out.Dir).Msg("Failed to create output directory")
		err = fmt.Errorf("failed to create output directory: %v", err)
		for _, plan := range plans {
			record(types.Outcome{Plan: plan, Status: types.StatusFailed, Err: err}) //nolint:exhaustruct
		}
		return o.finish(result)
	}

	targets := newTargets(o.out.Dir, o.out.ShouldOverwrite())

	wg := new(errgroup.Group)
	wg.SetLimit(max(1, o.conf.Concurrency))
	queue := slices.SortedStableFunc(slices.Values(plans), func(a, b types.TrackPlan) int {
		return cmp.Compare(a.Entry.Index, b.Entry.Index)
	})
	for _, plan := range queue {
		if nil != ctx.Err() {
			record(types.Outcome{Plan: plan, Status: types.StatusCanceled, Err: ctx.Err()}) //nolint:exhaustruct
			continue
		}

		wg.Go(func() error {
			record(o.track(ctx, targets, plan))
			return nil
		})
	}

	_ = wg.Wait()

	return o.finish(result)
}

func (o *Orchestrator) finish(result types.PipelineResult) types.PipelineResult {
	result.SortByPosition()
	result.FinishedAt = time.Now()

	o.logger.Info().
		Int("succeeded", result.Succeeded()).
		Int("skipped", result.Count(types.StatusSkipped)).
		Int("failed", result.Failed()).
		Int("canceled", result.Count(types.StatusCanceled)).
		Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Batch finished")

	return result
}

func (o *Orchestrator) track(ctx context.Context, targets *targets, plan types.TrackPlan) types.Outcome {
	logger := o.logger.With().Dict("plan", plan.ToDict()).Logger()

	if err := ctx.Err(); nil != err {
		return types.Outcome{Plan: plan, Status: types.StatusCanceled, Err: err} //nolint:exhaustruct
	}

	if err := targets.claim(plan.FileName, plan.Track.Position); nil != err {
		if errors.Is(err, types.ErrFilesystemConflict) {
			logger.Warn().Err(err).Msg("Output file already exists, skipping")
			return types.Outcome{Plan: plan, Status: types.StatusSkipped, Err: err} //nolint:exhaustruct
		}
		logger.Error().Err(err).Msg("Failed to claim output file")
		return types.Outcome{Plan: plan, Status: types.StatusFailed, Err: err} //nolint:exhaustruct
	}

	path, err := o.process(ctx, logger, targets, plan)
	switch {
	case nil == err:
		logger.Info().Str("path", path).Msg("Track saved")
		return types.Outcome{Plan: plan, Status: types.StatusSucceeded, Path: path} //nolint:exhaustruct
	case nil != ctx.Err():
		logger.Warn().Err(err).Msg("Track canceled")
		return types.Outcome{Plan: plan, Status: types.StatusCanceled, Err: errors.Join(ctx.Err(), err)} //nolint:exhaustruct
	case errors.Is(err, types.ErrFilesystemConflict):
		logger.Warn().Err(err).Msg("Output file appeared meanwhile, skipping")
		return types.Outcome{Plan: plan, Status: types.StatusSkipped, Err: err} //nolint:exhaustruct
	default:
		logger.Error().Err(err).Msg("Track failed")
		return types.Outcome{Plan: plan, Status: types.StatusFailed, Err: err} //nolint:exhaustruct
	}
}

func (o *Orchestrator) process(ctx context.Context, logger zerolog.Logger, targets *targets, plan types.TrackPlan) (_ string, err error) {
	ws, err := os.MkdirTemp(o.conf.TempDir, "ytmdl-*")
	if nil != err {
		return "", fmt.Errorf("failed to create workspace: %v", err)
	}
	defer func() {
		if removeErr := o.removeAll(ws); nil != removeErr {
			logger.Error().Err(removeErr).Str("workspace", ws).Msg("Failed to remove workspace")
			if nil != err {
				err = errors.Join(err, fmt.Errorf("failed to remove workspace: %v", removeErr))
			}
		}
	}()

	if err := ratelimit.Sleep(ctx, ratelimit.StartJitter(o.conf.Jitter.Duration)); nil != err {
		return "", err
	}

	if timeout := o.conf.Timeouts.Track.Duration; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	src, err := o.downloader.Download(ctx, plan.Entry, ws)
	if nil != err {
		return "", err
	}
	logger.Debug().Str("path", src).Msg("Audio downloaded")

	ext := "." + o.out.Format
	if !strings.EqualFold(filepath.Ext(src), ext) {
		converted := filepath.Join(ws, workspaceFileStem+".converted"+ext)
		if err := o.transcoder.Transcode(ctx, src, converted); nil != err {
			return "", err
		}
		src = converted
		logger.Debug().Str("path", src).Msg("Audio transcoded")
	}

	if err := o.tagger.Tag(src, plan.Tags, o.cover); nil != err {
		return "", fmt.Errorf("failed to tag track: %w", err)
	}

	return targets.move(src, plan.FileName)
}
