package domain

import "strings"

// AttributeType is the declared type of a domain attribute.
type AttributeType string

const (
	AttrString    AttributeType = "string"
	AttrNumber    AttributeType = "number"
	AttrBoolean   AttributeType = "boolean"
	AttrDate      AttributeType = "date"
	AttrEmail     AttributeType = "email"
	AttrURL       AttributeType = "url"
	AttrEnum      AttributeType = "enum"
	AttrReference AttributeType = "reference"
)

var AttributeTypes = []AttributeType{AttrString, AttrNumber, AttrBoolean, AttrDate, AttrEmail, AttrURL, AttrEnum, AttrReference}

// Attribute is one field of a Domain. Names are not required to be unique.
type Attribute struct {
	Name        string        `json:"name" validate:"required"`
	Type        AttributeType `json:"type" validate:"oneof=string number boolean date email url enum reference"`
	Description string        `json:"description"`
	Required    bool          `json:"required"`
}

// Domain is an entity definition, e.g. "Customer" with its attributes.
type Domain struct {
	ID          int64       `json:"id"`
	ProjectID   int64       `json:"projectId"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Attributes  []Attribute `json:"attributes"`
	CreatedAt   int64       `json:"createdAt"`
}

type CreateDomainInput struct {
	ProjectID   int64       `json:"-" validate:"gt=0"`
	Name        string      `json:"name" validate:"required"`
	Description string      `json:"description"`
	Attributes  []Attribute `json:"attributes" validate:"dive"`
}

func (in *CreateDomainInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Attributes = normalizeAttributes(in.Attributes)
}

func (in CreateDomainInput) Validate() error { return check(in) }

type UpdateDomainInput struct {
	Name        string      `json:"name" validate:"required"`
	Description string      `json:"description"`
	Attributes  []Attribute `json:"attributes" validate:"dive"`
}

func (in *UpdateDomainInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Attributes = normalizeAttributes(in.Attributes)
}

func (in UpdateDomainInput) Validate() error { return check(in) }

func normalizeAttributes(attrs []Attribute) []Attribute {
	if attrs == nil {
		return []Attribute{}
	}
	for i := range attrs {
		attrs[i].Name = strings.TrimSpace(attrs[i].Name)
		if attrs[i].Type == "" {
			attrs[i].Type = AttrString
		}
	}
	return attrs
}
