package reconcile

import (
	"fmt"
	"strconv"

	"github.com/samber/lo"

	"github.com/xeptore/ytmdl/sanitize"
	"github.com/xeptore/ytmdl/types"
)

const fileNameFormat = "%0*d. %s - %s.%s"

// FileName renders the output file name of a track. It depends on the
// track, the release and the options only.
func FileName(release types.ReleaseRecord, track types.TrackInfo, opts Options) string {
	artists := track.EffectiveArtists(release)

	var artist string
	if len(artists) > 0 {
		artist = artists[0].Name
	}

	return fmt.Sprintf(
		fileNameFormat,
		positionWidth(len(release.Tracks)),
		track.Position,
		sanitize.FileName(artist, opts.Substitute),
		sanitize.FileName(track.Title, opts.Substitute),
		opts.Extension,
	)
}

func positionWidth(n int) int {
	return max(2, len(strconv.Itoa(n)))
}

func Tags(release types.ReleaseRecord, track types.TrackInfo) types.TagSet {
	return types.TagSet{
		Title:       track.Title,
		Artists:     types.ArtistNames(track.EffectiveArtists(release)),
		AlbumArtist: types.JoinArtists(release.Artists),
		Album:       release.Title,
		TrackNumber: track.Position,
		TrackTotal:  len(release.Tracks),
		Date:        release.Date.String(),
		Year:        release.Date.Year,
		Genre:       lo.FirstOrEmpty(release.Genres),
		Label:       lo.FirstOrEmpty(release.Labels),
	}
}

func newPlan(release types.ReleaseRecord, track types.TrackInfo, entry types.PlaylistEntry, score float64, opts Options) types.TrackPlan {
	return types.TrackPlan{
		Track:    track,
		Entry:    entry,
		FileName: FileName(release, track, opts),
		Tags:     Tags(release, track),
		Score:    score,
	}
}
