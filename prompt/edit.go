package prompt

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/xeptore/ytmdl/sanitize"
	"github.com/xeptore/ytmdl/types"
)

var ErrInvalidYear = errors.New("year must be a positive number")

// Edits holds the user editable fields of a release as plain text, one
// artist per element.
type Edits struct {
	Title       string
	Artists     []string
	Genre       string
	Year        string
	TrackTitles []string
}

func EditsOf(r types.ReleaseRecord) Edits {
	return Edits{
		Title:       r.Title,
		Artists:     lo.Map(r.Artists, func(a types.ArtistRef, _ int) string { return a.Key() }),
		Genre:       lo.FirstOrEmpty(r.Genres),
		Year:        lo.Ternary(r.Date.IsZero(), "", strconv.Itoa(r.Date.Year)),
		TrackTitles: lo.Map(r.Tracks, func(t types.TrackInfo, _ int) string { return t.Title }),
	}
}

// Apply writes the fields of e that differ from r into r. Typed text is
// taken literally; only its whitespace is normalized. Blank title, artists
// and track titles keep their current values. A blank genre or year clears it.
func (e Edits) Apply(r *types.ReleaseRecord) error {
	current := EditsOf(*r)

	year, err := parseYear(e.Year)
	if nil != err {
		return err
	}

	if e.Title != current.Title {
		if title := sanitize.Decoded(e.Title); title != "" {
			r.Title = string(title)
		}
	}

	if !slices.Equal(e.Artists, current.Artists) {
		artists := lo.FilterMap(e.Artists, func(s string, _ int) (types.ArtistRef, bool) {
			a := sanitize.ParseArtist(sanitize.Decoded(s))
			return a, a.Name != ""
		})
		if len(artists) > 0 {
			r.Artists = artists
		}
	}

	if e.Genre != current.Genre {
		switch genre := string(sanitize.Decoded(e.Genre)); {
		case genre == "":
			r.Genres = nil
		case len(r.Genres) == 0:
			r.Genres = []string{genre}
		default:
			r.Genres = lo.Uniq(append([]string{genre}, r.Genres[1:]...))
		}
	}

	if e.Year != current.Year {
		switch {
		case year == 0:
			r.Date = types.ReleaseDate{}
		case year != r.Date.Year:
			r.Date = types.ReleaseDate{Year: year} //nolint:exhaustruct
		}
	}

	for i, title := range e.TrackTitles {
		if i >= len(r.Tracks) {
			break
		}
		if title == current.TrackTitles[i] {
			continue
		}
		if t := sanitize.Decoded(title); t != "" {
			r.Tracks[i].Title = string(t)
		}
	}

	return nil
}

func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	year, err := strconv.Atoi(s)
	if nil != err || year <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidYear, s)
	}

	return year, nil
}
