package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/ytget/ytdlp/v2"

	"github.com/xeptore/ytmdl/fetch"
	"github.com/xeptore/ytmdl/sanitize"
	"github.com/xeptore/ytmdl/types"
)

const playlistURLFormat = "https://www.youtube.com/playlist?list=%s"

var ErrNotPlaylistURL = errors.New("not a youtube playlist URL")

// Lister enumerates all items of a playlist without the page size limit of
// the playlist page.
type Lister interface {
	List(ctx context.Context, playlistID string) ([]types.PlaylistEntry, error)
}

type ListerFunc func(ctx context.Context, playlistID string) ([]types.PlaylistEntry, error)

func (f ListerFunc) List(ctx context.Context, playlistID string) ([]types.PlaylistEntry, error) {
	return f(ctx, playlistID)
}

type YtdlpLister struct{}

func (YtdlpLister) List(ctx context.Context, playlistID string) ([]types.PlaylistEntry, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if nil != err {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	entries := make([]types.PlaylistEntry, 0, len(items))
	for i, it := range items {
		entries = append(entries, types.PlaylistEntry{ //nolint:exhaustruct
			VideoID:     it.VideoID,
			Title:       string(sanitize.String(it.Title)),
			Index:       i,
			Unavailable: it.VideoID == "",
		})
	}

	return entries, nil
}

type Client struct {
	logger   zerolog.Logger
	fetcher  fetch.Fetcher
	fallback Lister
}

// NewClient returns a client which reads the playlist page through f. A nil
// fallback disables listing beyond the first page.
func NewClient(logger zerolog.Logger, f fetch.Fetcher, fallback Lister) *Client {
	return &Client{
		logger:   logger.With().Str("source", "youtube").Logger(),
		fetcher:  f,
		fallback: fallback,
	}
}

func (c *Client) Fetch(ctx context.Context, rawURL string) ([]types.PlaylistEntry, error) {
	normalized := NormalizeURL(rawURL)
	id, err := PlaylistID(normalized)
	if nil != err {
		return nil, err
	}

	logger := c.logger.With().Str("playlist_id", id).Logger()
	pageURL := fmt.Sprintf(playlistURLFormat, id)

	page, pageErr := fetch.Get(ctx, c.fetcher, pageURL, fetch.ParserFunc[*Page](ParsePlaylistPage))
	switch {
	case nil == pageErr && !page.Truncated:
		logger.Debug().Int("entries", len(page.Entries)).Msg("Playlist page parsed")
		return page.Entries, nil
	case nil == pageErr:
		logger.Info().Int("entries", len(page.Entries)).Msg("Playlist page is truncated, listing all items")
	case nil != ctx.Err():
		if nil != pageErr {
			return nil, pageErr
		}
		return nil, ctx.Err()
	default:
		logger.Warn().Err(pageErr).Msg("Failed to read playlist page, listing items instead")
	}

	if nil == c.fallback {
		if nil != pageErr {
			return nil, pageErr
		}
		logger.Warn().Msg("No playlist lister configured, using truncated page")
		return page.Entries, nil
	}

	entries, err := c.fallback.List(ctx, id)
	if nil != err {
		fallbackErr := types.FetchFailed("playlist fallback", pageURL, err)
		if nil != pageErr {
			return nil, errors.Join(pageErr, fallbackErr)
		}
		logger.Error().Err(err).Msg("Failed to list playlist items, using truncated page")
		return page.Entries, nil
	}
	logger.Debug().Int("entries", len(entries)).Msg("Playlist items listed")

	return entries, nil
}

// NormalizeURL rewrites YouTube Music links to their www equivalent.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if nil != err {
		return rawURL
	}

	if u.Hostname() == "music.youtube.com" {
		u.Host = strings.Replace(u.Host, "music.youtube.com", "www.youtube.com", 1)
		return u.String()
	}

	return rawURL
}

func PlaylistID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if nil != err {
		return "", types.ParseFailed("playlist url", rawURL, "", fmt.Errorf("%w: %v", ErrNotPlaylistURL, err))
	}

	switch host := u.Hostname(); {
	case host == "youtube.com", strings.HasSuffix(host, ".youtube.com"), host == "youtu.be":
	default:
		return "", types.ParseFailed("playlist url", rawURL, "", ErrNotPlaylistURL)
	}

	id := u.Query().Get("list")
	if id == "" {
		return "", types.ParseFailed("playlist url", rawURL, "", ErrNotPlaylistURL)
	}

	return id, nil
}
