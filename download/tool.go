package download

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/xeptore/ytmdl/types"
)

const (
	toolYtDlp  = "yt-dlp"
	toolFfmpeg = "ffmpeg"

	workspaceFileStem = "track"
)

var ErrNoOutputFile = errors.New("tool reported no output file")

// Downloader fetches the audio of a playlist entry into dir and returns the
// path of the resulting file.
type Downloader interface {
	Download(ctx context.Context, entry types.PlaylistEntry, dir string) (string, error)
}

// Transcoder converts in into the file out.
type Transcoder interface {
	Transcode(ctx context.Context, in, out string) error
}

type YtDlp struct {
	logger  zerolog.Logger
	path    string
	cookies string
}

func NewYtDlp(logger zerolog.Logger, path, cookiesFile string) *YtDlp {
	return &YtDlp{
		logger:  logger.With().Str("tool", toolYtDlp).Logger(),
		path:    path,
		cookies: cookiesFile,
	}
}

func (y *YtDlp) args(entry types.PlaylistEntry, dir string) []string {
	args := []string{
		"-f", "bestaudio",
		"-x",
		"--audio-quality", "0",
		"--no-playlist",
		"--no-progress",
		"-P", dir,
		"-o", workspaceFileStem + ".%(ext)s",
		"--print", "after_move:filepath",
	}
	if y.cookies != "" {
		args = append(args, "--cookies", y.cookies)
	}

	return append(args, entry.URL())
}

func (y *YtDlp) Download(ctx context.Context, entry types.PlaylistEntry, dir string) (string, error) {
	logger := y.logger.With().Str("video_id", entry.VideoID).Logger()

	stdout, err := run(ctx, logger, toolYtDlp, y.path, y.args(entry, dir)...)
	if nil != err {
		return "", err
	}

	path := lastLine(stdout)
	if path == "" {
		return "", types.ExternalToolFailed(toolYtDlp, "", ErrNoOutputFile)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	if _, err := os.Stat(path); nil != err {
		logger.Error().Err(err).Str("path", path).Msg("Reported output file is not accessible")
		return "", types.ExternalToolFailed(toolYtDlp, "", fmt.Errorf("%w: %v", ErrNoOutputFile, err))
	}

	return path, nil
}

func lastLine(b []byte) string {
	var last string
	s := bufio.NewScanner(bytes.NewReader(b))
	for s.Scan() {
		if line := strings.TrimSpace(s.Text()); line != "" {
			last = line
		}
	}

	return last
}

type Ffmpeg struct {
	logger zerolog.Logger
	path   string
}

func NewFfmpeg(logger zerolog.Logger, path string) *Ffmpeg {
	return &Ffmpeg{
		logger: logger.With().Str("tool", toolFfmpeg).Logger(),
		path:   path,
	}
}

func (f *Ffmpeg) Transcode(ctx context.Context, in, out string) error {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", in,
		"-vn",
		"-codec:a", "libmp3lame",
		"-q:a", "0",
		out,
	}

	if _, err := run(ctx, f.logger, toolFfmpeg, f.path, args...); nil != err {
		return err
	}

	if _, err := os.Stat(out); nil != err {
		return types.ExternalToolFailed(toolFfmpeg, "", fmt.Errorf("%w: %v", ErrNoOutputFile, err))
	}

	return nil
}
