package domain

import "strings"

// SchemaColumn describes one column of a data bag. Records are not checked
// against it.
type SchemaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// DataBag is a set of test data rows, usually imported from CSV or JSON.
type DataBag struct {
	ID          int64            `json:"id"`
	ProjectID   int64            `json:"projectId"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Records     []map[string]any `json:"records"`
	Schema      []SchemaColumn   `json:"schema"`
	CreatedAt   int64            `json:"createdAt"`
}

type CreateDataBagInput struct {
	ProjectID   int64            `json:"-" validate:"gt=0"`
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Records     []map[string]any `json:"records"`
	Schema      []SchemaColumn   `json:"schema"`
}

func (in *CreateDataBagInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	if in.Records == nil {
		in.Records = []map[string]any{}
	}
	if in.Schema == nil {
		in.Schema = []SchemaColumn{}
	}
}

func (in CreateDataBagInput) Validate() error { return check(in) }

type UpdateDataBagInput struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Records     []map[string]any `json:"records"`
	Schema      []SchemaColumn   `json:"schema"`
}

func (in *UpdateDataBagInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	if in.Records == nil {
		in.Records = []map[string]any{}
	}
	if in.Schema == nil {
		in.Schema = []SchemaColumn{}
	}
}

func (in UpdateDataBagInput) Validate() error { return check(in) }
