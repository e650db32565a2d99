package types

import (
	"time"
)

type PlaylistEntry struct {
	VideoID     string
	Title       string
	Index       int
	Duration    time.Duration
	Unavailable bool
}

func (e PlaylistEntry) URL() string {
	return "https://youtu.be/" + e.VideoID
}
