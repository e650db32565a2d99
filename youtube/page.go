package youtube

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xeptore/ytmdl/httputil"
	"github.com/xeptore/ytmdl/sanitize"
	"github.com/xeptore/ytmdl/types"
)

const (
	initialDataPrefix = "var ytInitialData = "
	playlistItemsPath = "contents.twoColumnBrowseResultsRenderer.tabs.0.tabRenderer.content.sectionListRenderer.contents.0.itemSectionRenderer.contents.0.playlistVideoListRenderer.contents"
	snippetSize       = 256
)

var (
	ErrInitialDataNotFound = errors.New("ytInitialData script not found")
	ErrPlaylistNotFound    = errors.New("playlist contents not found in ytInitialData")
)

// Page is the parsed first page of a playlist. Truncated is set when the
// page carries a continuation, meaning more items exist than were served.
type Page struct {
	Entries   []types.PlaylistEntry
	Truncated bool
}

func ParsePlaylistPage(u string, b []byte) (*Page, error) {
	doc, err := html.Parse(bytes.NewReader(b))
	if nil != err {
		return nil, types.ParseFailed("playlist", u, httputil.Snippet(b, 0, snippetSize), err)
	}

	data, ok := initialData(doc)
	if !ok {
		return nil, types.ParseFailed("playlist", u, httputil.Snippet(b, 0, snippetSize), ErrInitialDataNotFound)
	}

	items := data.Get(playlistItemsPath)
	if !items.IsArray() {
		return nil, types.ParseFailed("playlist", u, httputil.Snippet([]byte(data.Raw), 0, snippetSize), ErrPlaylistNotFound)
	}

	page := &Page{} //nolint:exhaustruct
	for _, item := range items.Array() {
		if item.Get("continuationItemRenderer").Exists() {
			page.Truncated = true
			continue
		}

		r := item.Get("playlistVideoRenderer")
		if !r.Exists() {
			continue
		}

		page.Entries = append(page.Entries, entry(r, len(page.Entries)))
	}

	return page, nil
}

func entry(r gjson.Result, index int) types.PlaylistEntry {
	title := r.Get("title.runs.0.text").String()
	if title == "" {
		title = r.Get("title.simpleText").String()
	}

	id := r.Get("videoId").String()
	length := r.Get("lengthSeconds")
	playable := r.Get("isPlayable")

	return types.PlaylistEntry{
		VideoID:     id,
		Title:       string(sanitize.String(title)),
		Index:       index,
		Duration:    time.Duration(length.Int()) * time.Second,
		Unavailable: id == "" || !length.Exists() || (playable.Exists() && !playable.Bool()),
	}
}

func initialData(doc *html.Node) (gjson.Result, bool) {
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.DataAtom != atom.Script || nil == n.FirstChild {
			continue
		}

		raw, ok := strings.CutPrefix(strings.TrimSpace(n.FirstChild.Data), initialDataPrefix)
		if !ok {
			continue
		}

		raw = strings.TrimSuffix(strings.TrimSpace(raw), ";")
		if gjson.Valid(raw) {
			return gjson.Parse(raw), true
		}
	}

	return gjson.Result{}, false
}
