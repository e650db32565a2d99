package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/xeptore/ytmdl/sanitize"
)

const defaultFilename = "config.yaml"

type Config struct {
	Log       Log       `yaml:"log"`
	Output    Output    `yaml:"output"`
	Download  Download  `yaml:"download"`
	Fetch     Fetch     `yaml:"fetch"`
	Reconcile Reconcile `yaml:"reconcile"`
	History   History   `yaml:"history"`
}

func (c *Config) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Dict("log", c.Log.ToDict()).
		Dict("output", c.Output.ToDict()).
		Dict("download", c.Download.ToDict()).
		Dict("fetch", c.Fetch.ToDict()).
		Dict("reconcile", c.Reconcile.ToDict()).
		Dict("history", c.History.ToDict())
}

func (c *Config) setDefaults() {
	c.Log.setDefaults()
	c.Output.setDefaults()
	c.Download.setDefaults()
	c.Fetch.setDefaults()
	c.Reconcile.setDefaults()
	c.History.setDefaults()
}

func (c *Config) validate() error {
	if err := c.Log.validate(); nil != err {
		return fmt.Errorf("log config validation failed: %v", err)
	}

	if err := c.Output.validate(); nil != err {
		return fmt.Errorf("output config validation failed: %v", err)
	}

	if err := c.Download.validate(); nil != err {
		return fmt.Errorf("download config validation failed: %v", err)
	}

	if err := c.Fetch.validate(); nil != err {
		return fmt.Errorf("fetch config validation failed: %v", err)
	}

	if err := c.Reconcile.validate(); nil != err {
		return fmt.Errorf("reconcile config validation failed: %v", err)
	}

	return nil
}

// Validate re-checks the configuration after command line flags changed it.
func (c *Config) Validate() error {
	return c.validate()
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("YTMDL_OUT_DIR"); ok && len(v) > 0 {
		c.Output.Dir = v
	}

	if v, ok := os.LookupEnv("YTMDL_OVERWRITE"); ok && len(v) > 0 {
		overwrite, err := strconv.ParseBool(v)
		if nil != err {
			return fmt.Errorf("YTMDL_OVERWRITE must be a boolean, got: %s", v)
		}
		c.Output.Overwrite = &overwrite
	}

	if v, ok := os.LookupEnv("YTMDL_LOG_LEVEL"); ok && len(v) > 0 {
		c.Log.Level = v
	}

	if v, ok := os.LookupEnv("YTMDL_LOG_FORMAT"); ok && len(v) > 0 {
		c.Log.Format = v
	}

	return nil
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Log) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("level", c.Level).
		Str("format", c.Format)
}

func (c *Log) setDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}

	if c.Format == "" {
		c.Format = "pretty"
	}
}

func (c *Log) validate() error {
	if !slices.Contains([]string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}, c.Level) {
		return fmt.Errorf(
			"level must be one of: trace, debug, info, warn, error, fatal, panic, got: %s",
			c.Level,
		)
	}

	if !slices.Contains([]string{"json", "pretty"}, c.Format) {
		return fmt.Errorf("format must be 'json' or 'pretty', got: %s", c.Format)
	}

	return nil
}

type Output struct {
	Dir        string  `yaml:"dir"`
	Overwrite  *bool   `yaml:"overwrite"`
	Substitute *string `yaml:"substitute"`
	Format     string  `yaml:"format"`
}

func (c *Output) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("dir", c.Dir).
		Bool("overwrite", c.ShouldOverwrite()).
		Str("substitute", lo.FromPtr(c.Substitute)).
		Str("format", c.Format)
}

func (c *Output) ShouldOverwrite() bool {
	return lo.FromPtrOr(c.Overwrite, true)
}

func (c *Output) FileNameSubstitute() string {
	return lo.FromPtrOr(c.Substitute, sanitize.DefaultSubstitute)
}

func (c *Output) setDefaults() {
	if c.Dir == "" {
		c.Dir = DefaultOutputDir()
	}

	if nil == c.Overwrite {
		c.Overwrite = lo.ToPtr(true)
	}

	if nil == c.Substitute {
		c.Substitute = lo.ToPtr(sanitize.DefaultSubstitute)
	}

	if c.Format == "" {
		c.Format = "mp3"
	}
}

func (c *Output) validate() error {
	if c.Dir == "" {
		return errors.New("dir is required")
	}

	if i, err := os.Stat(c.Dir); nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat dir: %v", err)
		}
	} else if !i.IsDir() {
		return errors.New("dir must be a directory")
	}

	if !sanitize.ValidSubstitute(c.FileNameSubstitute()) {
		return fmt.Errorf("substitute must not contain characters illegal in filenames, got: %q", c.FileNameSubstitute())
	}

	if c.Format != "mp3" {
		return fmt.Errorf("format must be 'mp3', got: %s", c.Format)
	}

	return nil
}

// DefaultOutputDir is the ytmdl folder inside the user's downloads directory.
func DefaultOutputDir() string {
	if dir := os.Getenv("XDG_DOWNLOAD_DIR"); len(dir) > 0 {
		return filepath.Join(dir, "ytmdl")
	}

	home, err := os.UserHomeDir()
	if nil != err {
		return "ytmdl"
	}

	return filepath.Join(home, "Downloads", "ytmdl")
}

type Download struct {
	Concurrency int              `yaml:"concurrency"`
	YtDlpPath   string           `yaml:"ytdlp_path"`
	FfmpegPath  string           `yaml:"ffmpeg_path"`
	CookiesFile string           `yaml:"cookies_file"`
	TempDir     string           `yaml:"temp_dir"`
	Jitter      Duration         `yaml:"jitter"`
	Timeouts    DownloadTimeouts `yaml:"timeouts"`
}

func (c *Download) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Int("concurrency", c.Concurrency).
		Str("ytdlp_path", c.YtDlpPath).
		Str("ffmpeg_path", c.FfmpegPath).
		Str("cookies_file", c.CookiesFile).
		Str("temp_dir", c.TempDir).
		Str("jitter", c.Jitter.String()).
		Dict("timeouts", c.Timeouts.ToDict())
}

func (c *Download) setDefaults() {
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}

	if c.YtDlpPath == "" {
		c.YtDlpPath = "yt-dlp"
	}

	if c.FfmpegPath == "" {
		c.FfmpegPath = "ffmpeg"
	}

	c.Timeouts.setDefaults()
}

func (c *Download) validate() error {
	if c.Concurrency < 1 || c.Concurrency > 32 {
		return fmt.Errorf("concurrency must be between 1 and 32, got: %d", c.Concurrency)
	}

	if c.CookiesFile != "" {
		if _, err := os.Stat(c.CookiesFile); nil != err {
			return fmt.Errorf("failed to stat cookies_file: %v", err)
		}
	}

	if c.TempDir != "" {
		if i, err := os.Stat(c.TempDir); nil != err {
			return fmt.Errorf("failed to stat temp_dir: %v", err)
		} else if !i.IsDir() {
			return errors.New("temp_dir must be a directory")
		}
	}

	if c.Jitter.Duration < 0 {
		return errors.New("jitter must not be negative")
	}

	if err := c.Timeouts.validate(); nil != err {
		return fmt.Errorf("timeouts config validation failed: %v", err)
	}

	return nil
}

type DownloadTimeouts struct {
	Track Duration `yaml:"track"`
}

func (c *DownloadTimeouts) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("track", c.Track.String())
}

func (c *DownloadTimeouts) setDefaults() {
	if c.Track.Duration == 0 {
		c.Track.Duration = 10 * time.Minute
	}
}

func (c *DownloadTimeouts) validate() error {
	if c.Track.Duration < 0 {
		return errors.New("track must be greater than 0")
	}

	return nil
}

type Fetch struct {
	Timeout       Duration `yaml:"timeout"`
	UserAgent     string   `yaml:"user_agent"`
	Retries       int      `yaml:"retries"`
	RatePerSecond float64  `yaml:"rate_per_second"`
	CacheTTL      Duration `yaml:"cache_ttl"`
}

func (c *Fetch) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("timeout", c.Timeout.String()).
		Str("user_agent", c.UserAgent).
		Int("retries", c.Retries).
		Float64("rate_per_second", c.RatePerSecond).
		Str("cache_ttl", c.CacheTTL.String())
}

func (c *Fetch) setDefaults() {
	if c.Timeout.Duration == 0 {
		c.Timeout.Duration = 30 * time.Second
	}

	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	}

	if c.RatePerSecond == 0 {
		c.RatePerSecond = 2
	}

	if c.CacheTTL.Duration == 0 {
		c.CacheTTL.Duration = 10 * time.Minute
	}
}

func (c *Fetch) validate() error {
	if c.Timeout.Duration < 0 {
		return errors.New("timeout must be greater than 0")
	}

	if c.Retries < 0 || c.Retries > 10 {
		return fmt.Errorf("retries must be between 0 and 10, got: %d", c.Retries)
	}

	if c.RatePerSecond < 0 {
		return errors.New("rate_per_second must not be negative")
	}

	if c.CacheTTL.Duration < 0 {
		return errors.New("cache_ttl must not be negative")
	}

	return nil
}

type Reconcile struct {
	Window   *int    `yaml:"window"`
	MinScore float64 `yaml:"min_score"`
}

func (c *Reconcile) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Int("window", c.SearchWindow()).
		Float64("min_score", c.MinScore)
}

// SearchWindow is how many playlist positions around the expected one a
// track may be matched to. Zero allows only the expected position.
func (c *Reconcile) SearchWindow() int {
	return lo.FromPtrOr(c.Window, 3)
}

func (c *Reconcile) setDefaults() {
	if nil == c.Window {
		c.Window = lo.ToPtr(3)
	}

	if c.MinScore == 0 {
		c.MinScore = 0.5
	}
}

func (c *Reconcile) validate() error {
	if c.SearchWindow() < 0 {
		return errors.New("window must not be negative")
	}

	if c.MinScore <= 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score must be in (0, 1], got: %v", c.MinScore)
	}

	return nil
}

type History struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

func (c *History) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("path", c.Path).
		Bool("disabled", c.Disabled)
}

func (c *History) setDefaults() {
	if c.Path == "" {
		dir, err := os.UserConfigDir()
		if nil != err {
			dir = "."
		}
		c.Path = filepath.Join(dir, "ytmdl", "history.db")
	}
}

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("failed to parse duration: %v", err)
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("failed to parse duration: %v", err)
	}

	d.Duration = parsed

	return nil
}

// Load reads filename, or config.yaml when filename is empty. The default file
// is optional; an explicitly named one is not.
func Load(filename string) (*Config, error) {
	var conf Config

	name := lo.Ternary(len(filename) > 0, filename, defaultFilename)
	data, err := os.ReadFile(name)
	if nil != err {
		if len(filename) > 0 || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %v", name, err)
		}
	} else if err := yaml.Unmarshal(data, &conf); nil != err {
		return nil, fmt.Errorf("failed to parse config file %s: %v", name, err)
	}

	if err := conf.applyEnv(); nil != err {
		return nil, fmt.Errorf("failed to apply environment overrides: %v", err)
	}

	conf.setDefaults()

	if err := conf.validate(); nil != err {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	return &conf, nil
}
