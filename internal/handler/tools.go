package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/karthickst/agenticosv2.0/internal/autocomplete"
	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/service"
)

// ToolsHandler serves derived views of a project: the flow graph and step
// autocompletion.
type ToolsHandler struct {
	scope
	domains      domain.DomainRepository
	requirements domain.RequirementRepository
	testCases    domain.TestCaseRepository
}

func NewToolsHandler(domains domain.DomainRepository, requirements domain.RequirementRepository, testCases domain.TestCaseRepository, access Authorizer, logger *slog.Logger) *ToolsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolsHandler{
		scope:        scope{access: access, logger: logger},
		domains:      domains,
		requirements: requirements,
		testCases:    testCases,
	}
}

// Flow handles GET /api/projects/{id}/flow
func (h *ToolsHandler) Flow(w http.ResponseWriter, r *http.Request) {
	p, ok := h.project(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	reqs, err := h.requirements.List(ctx, p.ID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	cases, err := h.testCases.List(ctx, p.ID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	domains, err := h.domains.List(ctx, p.ID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.BuildFlow(reqs, cases, domains))
}

// AutocompleteResponse carries suggestions for the token at the cursor and
// the references already present in the text.
type AutocompleteResponse struct {
	Suggestions []autocomplete.Suggestion `json:"suggestions"`
	References  []string                  `json:"references"`
}

// Autocomplete handles GET /api/projects/{id}/autocomplete?text=&cursor=.
// A missing cursor means the end of text.
func (h *ToolsHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.project(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	text := q.Get("text")
	cursor := utf8.RuneCountInString(text)
	if c := q.Get("cursor"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "cursor must be an integer")
			return
		}
		cursor = n
	}

	domains, err := h.domains.List(r.Context(), p.ID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	suggestions := autocomplete.Suggest(domains, text, cursor)
	if suggestions == nil {
		suggestions = []autocomplete.Suggestion{}
	}
	writeJSON(w, http.StatusOK, AutocompleteResponse{
		Suggestions: suggestions,
		References:  autocomplete.References(text),
	})
}
