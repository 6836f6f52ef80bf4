package domain

// GeneratedSpec is an LLM-produced document. It is never updated.
type GeneratedSpec struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"projectId"`
	Content   string `json:"content"`
	Model     string `json:"model"`
	SpecType  string `json:"specType"`
	Prompt    string `json:"prompt"`
	CreatedAt int64  `json:"createdAt"`
}

type CreateGeneratedSpecInput struct {
	ProjectID int64  `json:"-" validate:"gt=0"`
	Content   string `json:"content" validate:"required"`
	Model     string `json:"model"`
	SpecType  string `json:"specType"`
	Prompt    string `json:"prompt"`
}

func (in CreateGeneratedSpecInput) Validate() error { return check(in) }
