package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/service"
)

// GenerateRequestBody is the body of POST /api/projects/{id}/specs/generate.
// The API key may instead come in the X-Anthropic-Key header.
type GenerateRequestBody struct {
	SpecType string `json:"specType"`
	Model    string `json:"model"`
	APIKey   string `json:"apiKey"`
}

// StreamFrame is one NDJSON line of a generation response.
type StreamFrame struct {
	Type  string                `json:"type"` // delta, done or error
	Text  string                `json:"text,omitempty"`
	Spec  *domain.GeneratedSpec `json:"spec,omitempty"`
	Error string                `json:"error,omitempty"`
}

// SpecHandler serves saved specs and runs generation.
type SpecHandler struct {
	scope
	specs *service.SpecService
}

func NewSpecHandler(specs *service.SpecService, access Authorizer, logger *slog.Logger) *SpecHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpecHandler{scope: scope{access: access, logger: logger}, specs: specs}
}

// List handles GET /api/projects/{id}/specs
func (h *SpecHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.project(w, r)
	if !ok {
		return
	}
	specs, err := h.specs.List(r.Context(), p.ID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if specs == nil {
		specs = []*domain.GeneratedSpec{}
	}
	writeJSON(w, http.StatusOK, specs)
}

func (h *SpecHandler) load(w http.ResponseWriter, r *http.Request) (*domain.GeneratedSpec, bool) {
	p, ok := h.project(w, r)
	if !ok {
		return nil, false
	}
	id, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, h.logger, r, err)
		return nil, false
	}
	s, err := h.specs.Get(r.Context(), p.ID, id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return nil, false
	}
	return s, true
}

// Get handles GET /api/projects/{id}/specs/{itemID}
func (h *SpecHandler) Get(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.load(w, r); ok {
		writeJSON(w, http.StatusOK, s)
	}
}

// Download handles GET /api/projects/{id}/specs/{itemID}/download
func (h *SpecHandler) Download(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	contentType := "text/markdown; charset=utf-8"
	if strings.HasSuffix(service.DownloadName(s), ".feature") || strings.HasSuffix(service.DownloadName(s), ".yaml") {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, service.DownloadName(s)))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.Content))
}

// Generate handles POST /api/projects/{id}/specs/generate. Failures found
// before the first chunk get a normal JSON error; once streaming has begun
// the outcome is reported as the last NDJSON frame.
func (h *SpecHandler) Generate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.project(w, r)
	if !ok {
		return
	}
	var req GenerateRequestBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = r.Header.Get("X-Anthropic-Key")
	}

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	started := false
	begin := func() {
		if started {
			return
		}
		started = true
		// Generation outlives the server's default write timeout.
		_ = rc.SetWriteDeadline(time.Time{})
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
	}

	spec, err := h.specs.Generate(r.Context(), p, service.GenerateInput{
		ProjectID: p.ID,
		SpecType:  req.SpecType,
		Model:     req.Model,
		APIKey:    apiKey,
	}, func(chunk string) {
		begin()
		enc.Encode(StreamFrame{Type: "delta", Text: chunk})
		_ = rc.Flush()
	})

	if err != nil {
		if !started {
			writeError(w, h.logger, r, err)
			return
		}
		_, msg := statusFor(err)
		enc.Encode(StreamFrame{Type: "error", Error: msg})
		_ = rc.Flush()
		return
	}
	begin()
	enc.Encode(StreamFrame{Type: "done", Spec: spec})
	_ = rc.Flush()
}
