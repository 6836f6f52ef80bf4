package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/importer"
)

// ImportRequest is the body of POST /api/projects/{id}/data-bags/import.
// Format may be "csv", "json" or empty for auto-detection.
type ImportRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Format      importer.Format `json:"format"`
	Content     string          `json:"content"`
}

// DataBagHandler adds file import and CSV export on top of the plain
// data-bag collection routes.
type DataBagHandler struct {
	scope
	bags domain.DataBagRepository
}

func NewDataBagHandler(bags domain.DataBagRepository, access Authorizer, logger *slog.Logger) *DataBagHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataBagHandler{scope: scope{access: access, logger: logger}, bags: bags}
}

// Import handles POST /api/projects/{id}/data-bags/import
func (h *DataBagHandler) Import(w http.ResponseWriter, r *http.Request) {
	p, ok := h.project(w, r)
	if !ok {
		return
	}
	var req ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	res, err := importer.Parse(req.Format, req.Content)
	if err != nil {
		writeError(w, h.logger, r, fmt.Errorf("%w: %s", domain.ErrValidation, err.Error()))
		return
	}

	bag, err := h.bags.Create(r.Context(), domain.CreateDataBagInput{
		ProjectID:   p.ID,
		Name:        req.Name,
		Description: req.Description,
		Records:     res.Records,
		Schema:      res.Schema,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	h.logger.Info("data bag imported",
		slog.Int64("project_id", p.ID),
		slog.Int64("data_bag_id", bag.ID),
		slog.Int("records", len(bag.Records)),
	)
	writeJSON(w, http.StatusCreated, bag)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Export handles GET /api/projects/{id}/data-bags/{itemID}/export
func (h *DataBagHandler) Export(w http.ResponseWriter, r *http.Request) {
	p, ok := h.project(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	bag, err := h.bags.Get(r.Context(), p.ID, id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	var buf bytes.Buffer
	if err := importer.WriteCSV(&buf, bag.Schema, bag.Records); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	name := unsafeFileChars.ReplaceAllString(bag.Name, "_")
	if name == "" {
		name = fmt.Sprintf("data-bag-%d", bag.ID)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
