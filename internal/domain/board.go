package domain

import "strings"

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

type Swimlane string

const (
	LaneBacklog  Swimlane = "backlog"
	LaneThisWeek Swimlane = "this_week"
	LaneNextWeek Swimlane = "next_week"
	LaneDone     Swimlane = "done"
)

// Swimlanes is the display order of the board.
var Swimlanes = []Swimlane{LaneBacklog, LaneThisWeek, LaneNextWeek, LaneDone}

type BoardStatus string

const (
	BoardTodo       BoardStatus = "todo"
	BoardInProgress BoardStatus = "in_progress"
	BoardReview     BoardStatus = "review"
	BoardBlocked    BoardStatus = "blocked"
	BoardDone       BoardStatus = "done"
)

// BoardItem is a card on the weekly planning board. Position is the lane
// size at insert or move time; deletes leave gaps.
type BoardItem struct {
	ID            int64       `json:"id"`
	ProjectID     int64       `json:"projectId"`
	RequirementID *int64      `json:"requirementId"`
	Title         string      `json:"title"`
	Notes         string      `json:"notes"`
	Priority      Priority    `json:"priority"`
	Swimlane      Swimlane    `json:"swimlane"`
	Position      int         `json:"position"`
	Status        BoardStatus `json:"status"`
	CreatedAt     int64       `json:"createdAt"`
	UpdatedAt     int64       `json:"updatedAt"`
}

type CreateBoardItemInput struct {
	ProjectID     int64       `json:"-" validate:"gt=0"`
	RequirementID *int64      `json:"requirementId"`
	Title         string      `json:"title" validate:"required"`
	Notes         string      `json:"notes"`
	Priority      Priority    `json:"priority" validate:"oneof=critical high medium low"`
	Swimlane      Swimlane    `json:"swimlane" validate:"oneof=backlog this_week next_week done"`
	Status        BoardStatus `json:"status" validate:"oneof=todo in_progress review blocked done"`
}

func (in *CreateBoardItemInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.Swimlane == "" {
		in.Swimlane = LaneBacklog
	}
	if in.Status == "" {
		in.Status = BoardTodo
	}
}

func (in CreateBoardItemInput) Validate() error { return check(in) }

// UpdateBoardItemInput replaces every editable column, position included.
type UpdateBoardItemInput struct {
	Title    string      `json:"title" validate:"required"`
	Notes    string      `json:"notes"`
	Priority Priority    `json:"priority" validate:"oneof=critical high medium low"`
	Swimlane Swimlane    `json:"swimlane" validate:"oneof=backlog this_week next_week done"`
	Position int         `json:"position" validate:"gte=0"`
	Status   BoardStatus `json:"status" validate:"oneof=todo in_progress review blocked done"`
}

func (in *UpdateBoardItemInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.Swimlane == "" {
		in.Swimlane = LaneBacklog
	}
	if in.Status == "" {
		in.Status = BoardTodo
	}
}

func (in UpdateBoardItemInput) Validate() error { return check(in) }

type MoveBoardItemInput struct {
	Swimlane Swimlane `json:"swimlane" validate:"oneof=backlog this_week next_week done"`
}

func (in MoveBoardItemInput) Validate() error { return check(in) }
