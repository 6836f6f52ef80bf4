package domain

import "strings"

type RequirementStatus string

const (
	RequirementDraft    RequirementStatus = "draft"
	RequirementReview   RequirementStatus = "review"
	RequirementApproved RequirementStatus = "approved"
	RequirementRejected RequirementStatus = "rejected"
)

// Gherkin holds the three ordered clause lists of a scenario. Step text may
// carry "@Domain.attribute" tokens; they are plain text to the store.
type Gherkin struct {
	Given []string `json:"given"`
	When  []string `json:"when"`
	Then  []string `json:"then"`
}

// Normalized returns a copy with nil clauses replaced by empty lists.
func (g Gherkin) Normalized() Gherkin {
	if g.Given == nil {
		g.Given = []string{}
	}
	if g.When == nil {
		g.When = []string{}
	}
	if g.Then == nil {
		g.Then = []string{}
	}
	return g
}

// Steps returns every clause in given, when, then order.
func (g Gherkin) Steps() []string {
	out := make([]string, 0, len(g.Given)+len(g.When)+len(g.Then))
	out = append(out, g.Given...)
	out = append(out, g.When...)
	return append(out, g.Then...)
}

type Requirement struct {
	ID          int64             `json:"id"`
	ProjectID   int64             `json:"projectId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Gherkin     Gherkin           `json:"gherkin"`
	DataBagIDs  []int64           `json:"dataBagIds"`
	Status      RequirementStatus `json:"status"`
	CreatedAt   int64             `json:"createdAt"`
	UpdatedAt   int64             `json:"updatedAt"`
}

type CreateRequirementInput struct {
	ProjectID   int64             `json:"-" validate:"gt=0"`
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description"`
	Gherkin     Gherkin           `json:"gherkin"`
	DataBagIDs  []int64           `json:"dataBagIds"`
	Status      RequirementStatus `json:"status" validate:"oneof=draft review approved rejected"`
}

func (in *CreateRequirementInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Gherkin = in.Gherkin.Normalized()
	if in.DataBagIDs == nil {
		in.DataBagIDs = []int64{}
	}
	if in.Status == "" {
		in.Status = RequirementDraft
	}
}

func (in CreateRequirementInput) Validate() error { return check(in) }

type UpdateRequirementInput struct {
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description"`
	Gherkin     Gherkin           `json:"gherkin"`
	DataBagIDs  []int64           `json:"dataBagIds"`
	Status      RequirementStatus `json:"status" validate:"oneof=draft review approved rejected"`
}

func (in *UpdateRequirementInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Gherkin = in.Gherkin.Normalized()
	if in.DataBagIDs == nil {
		in.DataBagIDs = []int64{}
	}
	if in.Status == "" {
		in.Status = RequirementDraft
	}
}

func (in UpdateRequirementInput) Validate() error { return check(in) }
