package types

import (
	"strings"

	"github.com/rs/zerolog"
)

type TagSet struct {
	Title       string
	Artists     []string
	AlbumArtist string
	Album       string
	TrackNumber int
	TrackTotal  int
	Date        string
	Year        int
	Genre       string
	Label       string
}

func (t TagSet) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// TrackPlan binds one release track to one playlist entry. Plans are
// produced by reconciliation and never modified afterwards.
type TrackPlan struct {
	Track    TrackInfo
	Entry    PlaylistEntry
	FileName string
	Tags     TagSet
	Score    float64
}

func (p TrackPlan) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Int("position", p.Track.Position).
		Str("title", p.Track.Title).
		Str("video_id", p.Entry.VideoID).
		Int("playlist_index", p.Entry.Index).
		Str("file_name", p.FileName).
		Float64("score", p.Score)
}

type Cover struct {
	Data []byte
	MIME string
}

func (c Cover) IsZero() bool {
	return len(c.Data) == 0
}
