package handler

import (
	"net/http"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/service"
)

// CatalogResponse lists the fixed choices a client needs to render forms.
type CatalogResponse struct {
	SpecTypes      []service.SpecType     `json:"specTypes"`
	Models         []service.Model        `json:"models"`
	DefaultModel   string                 `json:"defaultModel"`
	Swimlanes      []domain.Swimlane      `json:"swimlanes"`
	Priorities     []domain.Priority      `json:"priorities"`
	AttributeTypes []domain.AttributeType `json:"attributeTypes"`
	TrackerStatus  []domain.TrackerStatus `json:"trackerStatus"`
	ImportFormats  []string               `json:"importFormats"`
}

// CatalogHandler returns spec types, models and enum values. It needs no
// auth and never changes at runtime.
type CatalogHandler struct {
	body CatalogResponse
}

func NewCatalogHandler(defaultModel string) *CatalogHandler {
	if defaultModel == "" {
		defaultModel = service.DefaultModel
	}
	return &CatalogHandler{body: CatalogResponse{
		SpecTypes:      service.SpecTypes,
		Models:         service.Models,
		DefaultModel:   defaultModel,
		Swimlanes:      domain.Swimlanes,
		Priorities:     []domain.Priority{domain.PriorityCritical, domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow},
		AttributeTypes: domain.AttributeTypes,
		TrackerStatus:  domain.TrackerStatuses,
		ImportFormats:  []string{"csv", "json"},
	}}
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.body)
}
