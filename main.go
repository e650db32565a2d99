package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/xeptore/ytmdl/cache"
	"github.com/xeptore/ytmdl/config"
	"github.com/xeptore/ytmdl/constant"
	"github.com/xeptore/ytmdl/fetch"
	"github.com/xeptore/ytmdl/history"
	"github.com/xeptore/ytmdl/log"
	"github.com/xeptore/ytmdl/pipeline"
	"github.com/xeptore/ytmdl/prompt"
	"github.com/xeptore/ytmdl/reconcile"
	"github.com/xeptore/ytmdl/report"
	"github.com/xeptore/ytmdl/types"
)

const (
	exitCodeAborted        exitCodeError = 3
	exitCodeStrictMismatch exitCodeError = 4
)

func main() {
	logger := log.NewDefault()

	//nolint:exhaustruct
	app := &cli.Command{
		Name:    "ytmdl",
		Version: constant.Version,
		Metadata: map[string]any{
			"compiled_at": constant.CompileTime,
		},
		Suggest:                    true,
		Usage:                      "Download a YouTube playlist as a tagged album described by Discogs",
		EnableShellCompletion:      true,
		ShellCompletionCommandName: "shell-completion",
		AllowExtFlags:              false,
		Flags: []cli.Flag{
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Config file path",
				Required: false,
			},
		},
		Commands: []*cli.Command{
			//nolint:exhaustruct
			{
				Name:  "run",
				Usage: "Download, convert and tag every matched track",
				Flags: append(
					sourceFlags(),
					//nolint:exhaustruct
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Download matched tracks without asking when release and playlist do not fully match",
					},
					//nolint:exhaustruct
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "Fail without downloading when release and playlist do not fully match",
					},
					//nolint:exhaustruct
					&cli.StringFlag{
						Name:  "out-dir",
						Usage: "Output directory",
					},
					//nolint:exhaustruct
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Replace existing files in the output directory",
					},
					//nolint:exhaustruct
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of tracks processed at once",
					},
				),
				Action: runAction,
			},
			//nolint:exhaustruct
			{
				Name:   "plan",
				Usage:  "Print how tracks would be matched and named without downloading",
				Flags:  sourceFlags(),
				Action: planAction,
			},
			//nolint:exhaustruct
			{
				Name:  "history",
				Usage: "List past runs",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to list",
						Value: 20,
					},
				},
				Action: historyAction,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); nil != err {
		if errors.Is(err, context.Canceled) {
			logger.Trace().Msg("Application was canceled")
			os.Exit(1)
		}

		var exitCode exitCodeError
		if errors.As(err, &exitCode) {
			os.Exit(int(exitCode))
		}

		logger.Error().Err(err).Msg("Application exited with error")
		os.Exit(10)
	}
}

type exitCodeError int

func (e exitCodeError) Error() string {
	return "error with exit code: " + strconv.Itoa(int(e))
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		//nolint:exhaustruct
		&cli.StringFlag{
			Name:     "release",
			Aliases:  []string{"r"},
			Usage:    "Discogs release or master page URL",
			Required: true,
		},
		//nolint:exhaustruct
		&cli.StringFlag{
			Name:     "playlist",
			Aliases:  []string{"p"},
			Usage:    "YouTube or YouTube Music playlist URL",
			Required: true,
		},
		//nolint:exhaustruct
		&cli.BoolFlag{
			Name:  "edit",
			Usage: "Edit album and track metadata before planning",
		},
	}
}

func loadConfig(cmd *cli.Command) (zerolog.Logger, *config.Config, error) {
	logger := log.NewDefault()

	if err := godotenv.Load(); nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			return logger, nil, fmt.Errorf("load .env file: %v", err)
		}
		logger.Debug().Msg(".env file was not found")
	} else {
		logger.Debug().Msg(".env file was loaded")
	}

	conf, err := config.Load(cmd.Root().String("config"))
	if nil != err {
		return logger, nil, fmt.Errorf("load config: %v", err)
	}

	return log.FromConfig(conf.Log), conf, nil
}

func openHistory(logger zerolog.Logger, conf config.History) *history.Store {
	if conf.Disabled {
		logger.Debug().Msg("Run history is disabled")
		return nil
	}

	store, err := history.Open(conf.Path)
	if nil != err {
		logger.Warn().Err(err).Str("path", conf.Path).Msg("Failed to open run history, continuing without it")
		return nil
	}

	return store
}

func closeHistory(logger zerolog.Logger, store *history.Store) {
	if err := store.Close(); nil != err {
		logger.Error().Err(err).Msg("Failed to close run history")
	}
}

func newPipeline(logger zerolog.Logger, conf *config.Config, c *cache.Cache, opts ...pipeline.Option) *pipeline.Pipeline {
	f := fetch.WithRetry(logger, fetch.NewHTTP(logger, conf.Fetch, c), conf.Fetch.Retries, time.Second)
	return pipeline.New(logger, conf, f, c, opts...)
}

func sourceHooks(cmd *cli.Command, renderer *report.Renderer) (pipeline.Hooks, error) {
	hooks := pipeline.Hooks{ //nolint:exhaustruct
		Review: func(release types.ReleaseRecord, rep reconcile.Report) {
			renderer.Plans(release, rep.Plans)

			var mismatch *types.MismatchError
			if errors.As(rep.Mismatch(), &mismatch) {
				renderer.Mismatch(mismatch)
			}
		},
	}

	if cmd.Bool("edit") {
		if !prompt.Interactive() {
			return hooks, errors.New("--edit requires an interactive terminal")
		}
		hooks.Edit = prompt.EditRelease(prompt.DefaultStdio())
	}

	return hooks, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, conf, err := loadConfig(cmd)
	if nil != err {
		return err
	}

	if cmd.IsSet("out-dir") {
		conf.Output.Dir = cmd.String("out-dir")
	}
	if cmd.IsSet("overwrite") {
		conf.Output.Overwrite = lo.ToPtr(cmd.Bool("overwrite"))
	}
	if cmd.IsSet("concurrency") {
		conf.Download.Concurrency = cmd.Int("concurrency")
	}
	if err := conf.Validate(); nil != err {
		return fmt.Errorf("invalid command line flags: %v", err)
	}

	logger.Debug().Dict("config", conf.ToDict()).Msg("Config loaded")

	c := cache.New()
	defer c.Stop()

	var opts []pipeline.Option
	if store := openHistory(logger, conf.History); nil != store {
		defer closeHistory(logger, store)
		opts = append(opts, pipeline.WithHistory(store))
	}

	renderer := report.NewRenderer(os.Stdout, prompt.ColorOutput())
	hooks, err := sourceHooks(cmd, renderer)
	if nil != err {
		return err
	}

	switch {
	case cmd.Bool("yes"):
	case prompt.Interactive():
		hooks.Confirm = prompt.ConfirmMismatch(prompt.DefaultStdio())
	default:
		hooks.Confirm = func(context.Context, *types.MismatchError) (bool, error) {
			logger.Warn().Msg("No TTY detected to confirm the mismatch, downloading the matched tracks")
			return true, nil
		}
	}

	req := pipeline.Request{
		ReleaseURL:  cmd.String("release"),
		PlaylistURL: cmd.String("playlist"),
		Strict:      cmd.Bool("strict"),
	}
	summary, err := newPipeline(logger, conf, c, opts...).Run(ctx, req, hooks)
	if nil != err {
		switch {
		case errors.Is(err, pipeline.ErrStrictMismatch):
			logger.Error().Msg("Release and playlist do not fully match, nothing was downloaded")
			return exitCodeStrictMismatch
		case errors.Is(err, pipeline.ErrAborted), errors.Is(err, prompt.ErrInterrupted):
			logger.Warn().Msg("Aborted by user, nothing was downloaded")
			return exitCodeAborted
		default:
			return fmt.Errorf("run pipeline: %w", err)
		}
	}

	renderer.Result(summary.Result)
	logger.Info().
		Int("succeeded", summary.Result.Succeeded()).
		Int("failed", summary.Result.Failed()).
		Int("skipped", summary.Result.Count(types.StatusSkipped)).
		Int("canceled", summary.Result.Count(types.StatusCanceled)).
		Str("out_dir", conf.Output.Dir).
		Msg("Run finished")

	if err := ctx.Err(); nil != err {
		return err
	}

	return nil
}

func planAction(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, conf, err := loadConfig(cmd)
	if nil != err {
		return err
	}

	logger.Debug().Dict("config", conf.ToDict()).Msg("Config loaded")

	c := cache.New()
	defer c.Stop()

	hooks, err := sourceHooks(cmd, report.NewRenderer(os.Stdout, prompt.ColorOutput()))
	if nil != err {
		return err
	}

	req := pipeline.Request{ //nolint:exhaustruct
		ReleaseURL:  cmd.String("release"),
		PlaylistURL: cmd.String("playlist"),
	}
	if _, _, err := newPipeline(logger, conf, c).Plan(ctx, req, hooks); nil != err {
		if errors.Is(err, prompt.ErrInterrupted) {
			return exitCodeAborted
		}

		return fmt.Errorf("plan: %w", err)
	}

	return nil
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	logger, conf, err := loadConfig(cmd)
	if nil != err {
		return err
	}

	if conf.History.Disabled {
		logger.Warn().Msg("Run history is disabled in the configuration")
		return nil
	}

	store, err := history.Open(conf.History.Path)
	if nil != err {
		return fmt.Errorf("open run history: %v", err)
	}
	defer closeHistory(logger, store)

	runs, err := store.List(ctx, cmd.Int("limit"))
	if nil != err {
		return fmt.Errorf("list runs: %v", err)
	}

	report.NewRenderer(os.Stdout, prompt.ColorOutput()).Runs(runs)

	return nil
}
