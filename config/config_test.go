package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/ytmdl/config"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range []string{"YTMDL_OUT_DIR", "YTMDL_OVERWRITE", "YTMDL_LOG_LEVEL", "YTMDL_LOG_FORMAT"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	conf, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", conf.Log.Level)
	assert.Equal(t, "pretty", conf.Log.Format)
	assert.Equal(t, config.DefaultOutputDir(), conf.Output.Dir)
	assert.True(t, conf.Output.ShouldOverwrite())
	assert.Equal(t, "_", conf.Output.FileNameSubstitute())
	assert.Equal(t, "mp3", conf.Output.Format)
	assert.Equal(t, 4, conf.Download.Concurrency)
	assert.Equal(t, "yt-dlp", conf.Download.YtDlpPath)
	assert.Equal(t, "ffmpeg", conf.Download.FfmpegPath)
	assert.Equal(t, 10*time.Minute, conf.Download.Timeouts.Track.Duration)
	assert.Equal(t, 30*time.Second, conf.Fetch.Timeout.Duration)
	assert.Zero(t, conf.Fetch.Retries)
	assert.Equal(t, 3, conf.Reconcile.SearchWindow())
	assert.InDelta(t, 0.5, conf.Reconcile.MinScore, 1e-9)
	assert.Equal(t, "history.db", filepath.Base(conf.History.Path))
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	out := t.TempDir()
	path := writeConfig(t, `
log:
  level: debug
  format: json
output:
  dir: `+out+`
  overwrite: false
  substitute: "-"
download:
  concurrency: 2
  jitter: 1500ms
  timeouts:
    track: 2m
fetch:
  retries: 3
  timeout: 5s
reconcile:
  window: 5
  min_score: 0.7
history:
  disabled: true
`)

	conf, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", conf.Log.Level)
	assert.Equal(t, "json", conf.Log.Format)
	assert.Equal(t, out, conf.Output.Dir)
	assert.False(t, conf.Output.ShouldOverwrite())
	assert.Equal(t, "-", conf.Output.FileNameSubstitute())
	assert.Equal(t, 2, conf.Download.Concurrency)
	assert.Equal(t, 1500*time.Millisecond, conf.Download.Jitter.Duration)
	assert.Equal(t, 2*time.Minute, conf.Download.Timeouts.Track.Duration)
	assert.Equal(t, 3, conf.Fetch.Retries)
	assert.Equal(t, 5*time.Second, conf.Fetch.Timeout.Duration)
	assert.Equal(t, 5, conf.Reconcile.SearchWindow())
	assert.InDelta(t, 0.7, conf.Reconcile.MinScore, 1e-9)
	assert.True(t, conf.History.Disabled)
}

func TestLoadZeroWindow(t *testing.T) {
	clearEnv(t)

	conf, err := config.Load(writeConfig(t, "reconcile:\n  window: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, conf.Reconcile.SearchWindow())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)

	out := t.TempDir()
	path := writeConfig(t, "output:\n  dir: /should/be/overridden\n  overwrite: true\n")

	t.Setenv("YTMDL_OUT_DIR", out)
	t.Setenv("YTMDL_OVERWRITE", "false")
	t.Setenv("YTMDL_LOG_LEVEL", "warn")

	conf, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, out, conf.Output.Dir)
	assert.False(t, conf.Output.ShouldOverwrite())
	assert.Equal(t, "warn", conf.Log.Level)
}

func TestLoadInvalidOverwriteEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("YTMDL_OVERWRITE", "sometimes")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YTMDL_OVERWRITE")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{name: "bad level", content: "log:\n  level: loud\n", errPart: "level must be one of"},
		{name: "bad format", content: "log:\n  format: xml\n", errPart: "format must be 'json' or 'pretty'"},
		{name: "output dir is a file", content: "output:\n  dir: " + file + "\n", errPart: "dir must be a directory"},
		{name: "illegal substitute", content: "output:\n  substitute: \"/\"\n", errPart: "substitute must not contain"},
		{name: "unsupported output format", content: "output:\n  format: flac\n", errPart: "format must be 'mp3'"},
		{name: "too much concurrency", content: "download:\n  concurrency: 100\n", errPart: "concurrency must be between"},
		{name: "negative retries", content: "fetch:\n  retries: -1\n", errPart: "retries must be between"},
		{name: "negative window", content: "reconcile:\n  window: -1\n", errPart: "window must not be negative"},
		{name: "min score above one", content: "reconcile:\n  min_score: 1.5\n", errPart: "min_score must be in"},
		{name: "bad duration", content: "fetch:\n  timeout: soon\n", errPart: "failed to parse duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}
