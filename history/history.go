package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.etcd.io/bbolt"

	"github.com/xeptore/ytmdl/types"
)

var runsBucketName = []byte("runs")

var ErrRunNotFound = errors.New("run not found")

type Track struct {
	Position int          `json:"position"`
	Title    string       `json:"title"`
	VideoID  string       `json:"video_id"`
	FileName string       `json:"file_name"`
	Status   types.Status `json:"status"`
	Path     string       `json:"path,omitempty"`
	Error    string       `json:"error,omitempty"`
}

type Run struct {
	ID           uuid.UUID `json:"id"`
	ReleaseURL   string    `json:"release_url"`
	PlaylistURL  string    `json:"playlist_url"`
	ReleaseTitle string    `json:"release_title"`
	Artist       string    `json:"artist"`
	OutputDir    string    `json:"output_dir"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Tracks       []Track   `json:"tracks"`
}

func (r Run) Count(s types.Status) int {
	return lo.CountBy(r.Tracks, func(t Track) bool { return t.Status == s })
}

// NewRun summarizes a finished batch. Run identifiers are time ordered, so
// the store iterates runs chronologically.
func NewRun(release types.ReleaseRecord, playlistURL, outDir string, result types.PipelineResult) (Run, error) {
	id, err := uuid.NewV7()
	if nil != err {
		return Run{}, fmt.Errorf("failed to generate run id: %v", err)
	}

	return Run{
		ID:           id,
		ReleaseURL:   release.URL,
		PlaylistURL:  playlistURL,
		ReleaseTitle: release.Title,
		Artist:       types.JoinArtists(release.Artists),
		OutputDir:    outDir,
		StartedAt:    result.StartedAt.UTC(),
		FinishedAt:   result.FinishedAt.UTC(),
		Tracks: lo.Map(result.Outcomes, func(o types.Outcome, _ int) Track {
			var msg string
			if nil != o.Err {
				msg = o.Err.Error()
			}
			return Track{
				Position: o.Plan.Track.Position,
				Title:    o.Plan.Track.Title,
				VideoID:  o.Plan.Entry.VideoID,
				FileName: o.Plan.FileName,
				Status:   o.Status,
				Path:     o.Path,
				Error:    msg,
			}
		}),
	}, nil
}

type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); nil != err {
		return nil, fmt.Errorf("failed to create history directory: %v", err)
	}

	opts := &bbolt.Options{ //nolint:exhaustruct
		NoFreelistSync: true,
		Timeout:        1 * time.Second,
		FreelistType:   bbolt.FreelistArrayType,
	}
	db, err := bbolt.Open(path, 0o600, opts)
	if nil != err {
		return nil, fmt.Errorf("failed to open history database: %v", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(runsBucketName); nil != err {
			return fmt.Errorf("failed to create runs bucket: %v", err)
		}
		return nil
	})
	if nil != err {
		return nil, errors.Join(err, db.Close())
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); nil != err {
		return fmt.Errorf("failed to close history database: %v", err)
	}

	return nil
}

func (s *Store) Save(_ context.Context, run Run) error {
	b, err := json.Marshal(run)
	if nil != err {
		return fmt.Errorf("failed to marshal run: %v", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(runsBucketName).Put(run.ID[:], b); nil != err {
			return fmt.Errorf("failed to put run: %v", err)
		}
		return nil
	})
	if nil != err {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*Run, error) {
	var run Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(runsBucketName).Get(id[:])
		if nil == b {
			return ErrRunNotFound
		}
		return json.Unmarshal(b, &run)
	})
	if nil != err {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	return &run, nil
}

// List returns up to limit runs, newest first. A non-positive limit returns
// every run.
func (s *Store) List(_ context.Context, limit int) ([]Run, error) {
	var runs []Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(runsBucketName).Cursor()
		for k, v := c.Last(); nil != k; k, v = c.Prev() {
			if limit > 0 && len(runs) == limit {
				break
			}

			var run Run
			if err := json.Unmarshal(v, &run); nil != err {
				return fmt.Errorf("failed to unmarshal run %x: %v", k, err)
			}
			runs = append(runs, run)
		}
		return nil
	})
	if nil != err {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}
