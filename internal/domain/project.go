package domain

import "strings"

// Project is the top-level container every other entity hangs off.
type Project struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

type CreateProjectInput struct {
	UserID      int64  `json:"-" validate:"gt=0"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (in *CreateProjectInput) Normalize() { in.Name = strings.TrimSpace(in.Name) }

func (in CreateProjectInput) Validate() error { return check(in) }

type UpdateProjectInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (in *UpdateProjectInput) Normalize() { in.Name = strings.TrimSpace(in.Name) }

func (in UpdateProjectInput) Validate() error { return check(in) }
