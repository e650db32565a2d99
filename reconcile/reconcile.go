package reconcile

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/xeptore/ytmdl/config"
	"github.com/xeptore/ytmdl/iterutil"
	"github.com/xeptore/ytmdl/sanitize"
	"github.com/xeptore/ytmdl/types"
)

type Options struct {
	Window     int
	MinScore   float64
	Extension  string
	Substitute string
}

func DefaultOptions() Options {
	return Options{
		Window:     3,
		MinScore:   0.5,
		Extension:  "mp3",
		Substitute: sanitize.DefaultSubstitute,
	}
}

func OptionsFromConfig(conf config.Reconcile, out config.Output) Options {
	return Options{
		Window:     conf.SearchWindow(),
		MinScore:   conf.MinScore,
		Extension:  out.Format,
		Substitute: out.FileNameSubstitute(),
	}
}

type Report struct {
	Plans            []types.TrackPlan
	UnmatchedTracks  []types.TrackInfo
	UnmatchedEntries []types.UnmatchedEntry
}

// Mismatch returns a *types.MismatchError describing everything left
// unpaired, or nil if every track and entry was paired.
func (r Report) Mismatch() error {
	if len(r.UnmatchedTracks) == 0 && len(r.UnmatchedEntries) == 0 {
		return nil
	}

	return &types.MismatchError{
		UnmatchedTracks:  r.UnmatchedTracks,
		UnmatchedEntries: r.UnmatchedEntries,
	}
}

func (r Report) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Int("plans", len(r.Plans)).
		Int("unmatched_tracks", len(r.UnmatchedTracks)).
		Int("unmatched_entries", len(r.UnmatchedEntries))
}

// Reconcile pairs release tracks with playlist entries. Equal counts of
// tracks and available entries pair by position. Otherwise each track takes
// the most similar unused entry near where the previous pairs suggest it
// should be. Entries and tracks that find no partner are reported, never
// guessed.
func Reconcile(release types.ReleaseRecord, entries []types.PlaylistEntry, opts Options) Report {
	var report Report

	available := make([]types.PlaylistEntry, 0, len(entries))
	for _, e := range entries {
		if e.Unavailable {
			report.UnmatchedEntries = append(report.UnmatchedEntries, types.UnmatchedEntry{Entry: e, Reason: types.ReasonUnavailable})
			continue
		}
		available = append(available, e)
	}

	if len(available) == len(release.Tracks) {
		for i, track := range release.Tracks {
			report.Plans = append(report.Plans, newPlan(release, track, available[i], 1, opts))
		}
		return report
	}

	used := make([]bool, len(available))
	drift := 0
	for i, track := range release.Tracks {
		best, bestScore := -1, 0.0
		for j := range iterutil.Nearest(i+drift, opts.Window, len(available)) {
			if used[j] {
				continue
			}

			score := similarity(track.Title, available[j].Title)
			if score < opts.MinScore {
				continue
			}
			if score > bestScore {
				best, bestScore = j, score
			}
		}

		if best < 0 {
			report.UnmatchedTracks = append(report.UnmatchedTracks, track)
			continue
		}

		used[best] = true
		drift = best - i
		report.Plans = append(report.Plans, newPlan(release, track, available[best], bestScore, opts))
	}

	for j, e := range available {
		if !used[j] {
			report.UnmatchedEntries = append(report.UnmatchedEntries, types.UnmatchedEntry{Entry: e, Reason: types.ReasonNoMatch})
		}
	}
	slices.SortStableFunc(report.UnmatchedEntries, func(a, b types.UnmatchedEntry) int {
		return a.Entry.Index - b.Entry.Index
	})

	return report
}
