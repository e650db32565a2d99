package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type ReleaseRecord struct {
	URL           string
	Title         string
	Artists       []ArtistRef
	Date          ReleaseDate
	Tracks        []TrackInfo
	Genres        []string
	Styles        []string
	Labels        []string
	CatalogNumber string
	ImageURL      string
	Country       string
	Description   string
}

func (r ReleaseRecord) PrimaryArtist() string {
	if len(r.Artists) == 0 {
		return ""
	}

	return r.Artists[0].Name
}

func (r ReleaseRecord) ArtistNames() []string {
	return ArtistNames(r.Artists)
}

func (r ReleaseRecord) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("url", r.URL).
		Str("title", r.Title).
		Strs("artists", r.ArtistNames()).
		Str("date", r.Date.String()).
		Int("tracks", len(r.Tracks)).
		Strs("genres", r.Genres).
		Strs("labels", r.Labels)
}

type ArtistRef struct {
	Name string
	// Disambiguation is the "(n)" index the catalog appends to tell apart
	// distinct artists sharing a name. Nil when the name carries no suffix.
	Disambiguation *int
}

// Key identifies the catalog artist, keeping same-named artists apart.
func (a ArtistRef) Key() string {
	if nil == a.Disambiguation {
		return a.Name
	}

	return a.Name + " (" + strconv.Itoa(*a.Disambiguation) + ")"
}

func ArtistNames(artists []ArtistRef) []string {
	return lo.Map(artists, func(a ArtistRef, _ int) string { return a.Name })
}

func JoinArtists(artists []ArtistRef) string {
	return strings.Join(ArtistNames(artists), ", ")
}

type TrackInfo struct {
	Position int
	Label    string
	Title    string
	Duration time.Duration
	Artists  []ArtistRef
}

func (t TrackInfo) EffectiveArtists(r ReleaseRecord) []ArtistRef {
	if len(t.Artists) > 0 {
		return t.Artists
	}

	return r.Artists
}

type ReleaseDate struct {
	Year  int
	Month int
	Day   int
}

func (d ReleaseDate) IsZero() bool {
	return d.Year == 0
}

func (d ReleaseDate) String() string {
	switch {
	case d.Year == 0:
		return ""
	case d.Month == 0:
		return fmt.Sprintf("%04d", d.Year)
	case d.Day == 0:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
}

// ParseReleaseDate accepts "YYYY", "YYYY-MM" and "YYYY-MM-DD". Unknown
// components ("00") are kept as zero.
func ParseReleaseDate(s string) (ReleaseDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ReleaseDate{}, nil
	}

	parts := strings.Split(s, "-")
	if len(parts) > 3 {
		return ReleaseDate{}, fmt.Errorf("invalid release date: %q", s)
	}

	var out [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if nil != err || v < 0 {
			return ReleaseDate{}, fmt.Errorf("invalid release date component %q in %q", p, s)
		}
		out[i] = v
	}

	d := ReleaseDate{Year: out[0], Month: out[1], Day: out[2]}
	if d.Month > 12 || d.Day > 31 || (d.Month == 0 && d.Day != 0) {
		return ReleaseDate{}, fmt.Errorf("invalid release date: %q", s)
	}

	return d, nil
}
