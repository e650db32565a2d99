package types

import (
	"slices"
	"time"

	"github.com/samber/lo"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

type Outcome struct {
	Plan   TrackPlan
	Status Status
	Path   string
	Err    error
}

type PipelineResult struct {
	Outcomes   []Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *PipelineResult) SortByPosition() {
	slices.SortStableFunc(r.Outcomes, func(a, b Outcome) int {
		return a.Plan.Track.Position - b.Plan.Track.Position
	})
}

func (r PipelineResult) Count(s Status) int {
	return lo.CountBy(r.Outcomes, func(o Outcome) bool { return o.Status == s })
}

func (r PipelineResult) Succeeded() int {
	return r.Count(StatusSucceeded)
}

func (r PipelineResult) Failed() int {
	return r.Count(StatusFailed)
}
