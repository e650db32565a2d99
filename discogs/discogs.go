package discogs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xeptore/ytmdl/fetch"
	"github.com/xeptore/ytmdl/httputil"
	"github.com/xeptore/ytmdl/must"
	"github.com/xeptore/ytmdl/sanitize"
	"github.com/xeptore/ytmdl/types"
)

const (
	baseURL     = "https://www.discogs.com"
	snippetSize = 256
)

var base = must.Value(url.Parse(baseURL))

var (
	ErrNotDiscogsURL      = errors.New("not a discogs release or master URL")
	ErrSchemaNotFound     = errors.New("release_schema script not found")
	ErrSchemaMalformed    = errors.New("release_schema is not valid JSON")
	ErrVersionsNotFound   = errors.New("versions section not found")
	ErrReleaseLinkMissing = errors.New("no release link in versions section")
)

type Client struct {
	logger  zerolog.Logger
	fetcher fetch.Fetcher
}

func NewClient(logger zerolog.Logger, f fetch.Fetcher) *Client {
	return &Client{
		logger:  logger.With().Str("source", "discogs").Logger(),
		fetcher: f,
	}
}

// Fetch resolves u to a release page and parses it.
func (c *Client) Fetch(ctx context.Context, u string) (*types.ReleaseRecord, error) {
	releaseURL, err := c.ResolveRelease(ctx, u)
	if nil != err {
		return nil, err
	}

	logger := c.logger.With().Str("release_url", releaseURL).Logger()
	logger.Debug().Msg("Fetching release page")

	rec, err := fetch.Get(ctx, c.fetcher, releaseURL, fetch.ParserFunc[*types.ReleaseRecord](ParseRelease))
	if nil != err {
		logger.Error().Err(err).Msg("Failed to get release")
		return nil, err
	}
	logger.Info().Dict("release", rec.ToDict()).Msg("Release parsed")

	return rec, nil
}

// ResolveRelease maps a master URL to the first release listed on it.
// Release URLs are returned as is.
func (c *Client) ResolveRelease(ctx context.Context, u string) (string, error) {
	kind, err := urlKind(u)
	if nil != err {
		return "", err
	}
	if kind == "release" {
		return u, nil
	}

	c.logger.Debug().Str("master_url", u).Msg("Resolving master to release")

	return fetch.Get(ctx, c.fetcher, u, fetch.ParserFunc[string](ParseMaster))
}

func urlKind(u string) (string, error) {
	parsed, err := url.Parse(u)
	if nil != err {
		return "", types.ParseFailed("url", u, "", fmt.Errorf("%w: %v", ErrNotDiscogsURL, err))
	}

	if host := parsed.Hostname(); host != "discogs.com" && !strings.HasSuffix(host, ".discogs.com") {
		return "", types.ParseFailed("url", u, "", ErrNotDiscogsURL)
	}

	switch segments := strings.Split(strings.Trim(parsed.Path, "/"), "/"); {
	case lo.Contains(segments, "master"):
		return "master", nil
	case lo.Contains(segments, "release"):
		return "release", nil
	default:
		return "", types.ParseFailed("url", u, "", ErrNotDiscogsURL)
	}
}

func ParseMaster(u string, b []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(b))
	if nil != err {
		return "", types.ParseFailed("master", u, httputil.Snippet(b, 0, snippetSize), err)
	}

	versions := findFirst(doc, byID(atom.Section, "versions"))
	if nil == versions {
		return "", types.ParseFailed("master", u, httputil.Snippet(b, 0, snippetSize), ErrVersionsNotFound)
	}

	for _, a := range findAll(versions, func(n *html.Node) bool { return isElement(n, atom.A) }) {
		ref, err := url.Parse(attr(a, "href"))
		if nil != err {
			continue
		}
		if link := base.ResolveReference(ref); link.Host == base.Host && strings.HasPrefix(link.Path, "/release/") {
			link.Scheme = base.Scheme
			return link.String(), nil
		}
	}

	return "", types.ParseFailed("master", u, strings.TrimSpace(httputil.Snippet([]byte(text(versions)), 0, snippetSize)), ErrReleaseLinkMissing)
}

func ParseRelease(u string, b []byte) (*types.ReleaseRecord, error) {
	doc, err := html.Parse(bytes.NewReader(b))
	if nil != err {
		return nil, types.ParseFailed("release", u, httputil.Snippet(b, 0, snippetSize), err)
	}

	script := findFirst(doc, byID(atom.Script, "release_schema"))
	if nil == script {
		return nil, types.ParseFailed("release schema", u, httputil.Snippet(b, 0, snippetSize), ErrSchemaNotFound)
	}

	raw := strings.TrimSpace(text(script))
	if !gjson.Valid(raw) {
		return nil, types.ParseFailed("release schema", u, httputil.Snippet([]byte(raw), 0, snippetSize), ErrSchemaMalformed)
	}
	schema := gjson.Parse(raw)

	title := stringField(schema, "name")
	if title == "" {
		return nil, types.IncompleteRecord(u, "name")
	}

	artists := lo.FilterMap(
		schema.Get("releaseOf.byArtist").Array(),
		func(r gjson.Result, _ int) (types.ArtistRef, bool) {
			a := sanitize.ParseArtist(r.Get("name").String())
			return a, a.Name != ""
		},
	)
	if len(artists) == 0 {
		return nil, types.IncompleteRecord(u, "releaseOf.byArtist")
	}

	tracks := parseTracklist(doc)
	if len(tracks) == 0 {
		return nil, types.IncompleteRecord(u, "tracklist")
	}

	return &types.ReleaseRecord{
		URL:           u,
		Title:         title,
		Artists:       artists,
		Date:          releaseDate(schema),
		Tracks:        tracks,
		Genres:        stringsField(schema, "genre"),
		Styles:        stringsField(schema, "style"),
		Labels:        lo.Uniq(stringsField(schema, "recordLabel.#.name")),
		CatalogNumber: stringField(schema, "catalogNumber"),
		ImageURL:      firstString(schema.Get("image")),
		Country:       stringField(schema, "releasedEvent.location.name"),
		Description:   stringField(schema, "description"),
	}, nil
}

func stringField(r gjson.Result, path string) string {
	v := r.Get(path)
	if v.Type != gjson.String && v.Type != gjson.Number {
		return ""
	}

	return string(sanitize.String(v.String()))
}

func stringsField(r gjson.Result, path string) []string {
	v := r.Get(path)
	if !v.IsArray() {
		if v.Type == gjson.String {
			return sanitize.Strings([]string{v.String()})
		}
		return nil
	}

	return sanitize.Strings(lo.Map(v.Array(), func(e gjson.Result, _ int) string { return e.String() }))
}

func firstString(v gjson.Result) string {
	if v.IsArray() {
		arr := v.Array()
		if len(arr) == 0 {
			return ""
		}
		v = arr[0]
	}
	if v.IsObject() {
		v = v.Get("url")
	}

	return strings.TrimSpace(v.String())
}

func releaseDate(schema gjson.Result) types.ReleaseDate {
	for _, path := range []string{"datePublished", "releasedEvent.startDate", "releaseOf.datePublished"} {
		if d, ok := parseDate(schema.Get(path)); ok {
			return d
		}
	}

	return types.ReleaseDate{}
}

func parseDate(v gjson.Result) (types.ReleaseDate, bool) {
	switch v.Type {
	case gjson.Number:
		if y := int(v.Int()); y > 0 {
			return types.ReleaseDate{Year: y}, true
		}
	case gjson.String:
		if d, err := types.ParseReleaseDate(v.String()); nil == err && !d.IsZero() {
			return d, true
		}
		if s := v.String(); len(s) >= 4 {
			if y, err := strconv.Atoi(s[:4]); nil == err && y > 0 {
				return types.ReleaseDate{Year: y}, true
			}
		}
	}

	return types.ReleaseDate{}, false
}

func parseTracklist(doc *html.Node) []types.TrackInfo {
	section := findFirst(doc, byID(atom.Section, "release-tracklist"))
	rows := findAll(section, func(n *html.Node) bool { return isElement(n, atom.Tr) })

	tracks := make([]types.TrackInfo, 0, len(rows))
	for _, row := range rows {
		cells := children(row, atom.Td)

		var labelCell, artistCell, titleCell, durationCell *html.Node
		switch {
		case len(cells) >= 4:
			labelCell, artistCell, titleCell, durationCell = cells[0], cells[1], cells[2], cells[3]
		case len(cells) == 3:
			labelCell, titleCell, durationCell = cells[0], cells[1], cells[2]
		default:
			continue
		}

		title := cellText(titleCell)
		if title == "" {
			continue
		}

		var artists []types.ArtistRef
		if nil != artistCell {
			artists = lo.FilterMap(
				findAll(artistCell, func(n *html.Node) bool { return isElement(n, atom.A) }),
				func(a *html.Node, _ int) (types.ArtistRef, bool) {
					ref := sanitize.ParseArtist(sanitize.Decoded(text(a)))
					return ref, ref.Name != ""
				},
			)
		}

		tracks = append(tracks, types.TrackInfo{
			Position: len(tracks) + 1,
			Label:    string(sanitize.Decoded(text(labelCell))),
			Title:    title,
			Duration: parseDuration(cellText(durationCell)),
			Artists:  artists,
		})
	}

	return tracks
}

// cellText prefers the first span of a cell, which holds the value without
// the extra credits markup.
func cellText(cell *html.Node) string {
	if span := findFirst(cell, func(n *html.Node) bool { return isElement(n, atom.Span) }); nil != span {
		if s := string(sanitize.Decoded(text(span))); s != "" {
			return s
		}
	}

	return string(sanitize.Decoded(text(cell)))
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}

	var total int
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if nil != err || v < 0 {
			return 0
		}
		total = total*60 + v
	}

	return time.Duration(total) * time.Second
}
