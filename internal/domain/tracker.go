package domain

import "strings"

type TrackerStatus string

const (
	TrackerOnTrack TrackerStatus = "on_track"
	TrackerBlocked TrackerStatus = "blocked"
	TrackerDone    TrackerStatus = "done"
)

var TrackerStatuses = []TrackerStatus{TrackerOnTrack, TrackerBlocked, TrackerDone}

// TrackerItem is a row of the project status tracker. Position is the
// project's item count at insert time.
type TrackerItem struct {
	ID        int64         `json:"id"`
	ProjectID int64         `json:"projectId"`
	Title     string        `json:"title"`
	Owner     string        `json:"owner"`
	DueDate   string        `json:"dueDate"`
	Status    TrackerStatus `json:"status"`
	Comments  string        `json:"comments"`
	Position  int           `json:"position"`
	CreatedAt int64         `json:"createdAt"`
	UpdatedAt int64         `json:"updatedAt"`
}

type CreateTrackerItemInput struct {
	ProjectID int64         `json:"-" validate:"gt=0"`
	Title     string        `json:"title" validate:"required"`
	Owner     string        `json:"owner"`
	DueDate   string        `json:"dueDate"`
	Status    TrackerStatus `json:"status" validate:"oneof=on_track blocked done"`
	Comments  string        `json:"comments"`
}

func (in *CreateTrackerItemInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Status == "" {
		in.Status = TrackerOnTrack
	}
}

func (in CreateTrackerItemInput) Validate() error { return check(in) }

type UpdateTrackerItemInput struct {
	Title    string        `json:"title" validate:"required"`
	Owner    string        `json:"owner"`
	DueDate  string        `json:"dueDate"`
	Status   TrackerStatus `json:"status" validate:"oneof=on_track blocked done"`
	Comments string        `json:"comments"`
	Position int           `json:"position" validate:"gte=0"`
}

func (in *UpdateTrackerItemInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Status == "" {
		in.Status = TrackerOnTrack
	}
}

func (in UpdateTrackerItemInput) Validate() error { return check(in) }
