package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

// GeneratedSpecRepository implements domain.GeneratedSpecRepository. Specs
// are append-only.
type GeneratedSpecRepository struct {
	base
}

func NewGeneratedSpecRepository(db *database.ConnectionPool, notifier domain.ChangeNotifier, logger *slog.Logger) *GeneratedSpecRepository {
	return &GeneratedSpecRepository{base: newBase(db, notifier, logger, "generated_spec")}
}

const generatedSpecColumns = `id, project_id, content, model, spec_type, prompt, created_at`

func scanGeneratedSpec(s scanner) (*domain.GeneratedSpec, error) {
	g := &domain.GeneratedSpec{}
	var model, specType, prompt sql.NullString
	if err := s.Scan(&g.ID, &g.ProjectID, &g.Content, &model, &specType, &prompt, &g.CreatedAt); err != nil {
		return nil, err
	}
	g.Model = model.String
	g.SpecType = specType.String
	g.Prompt = prompt.String
	return g, nil
}

func (r *GeneratedSpecRepository) Create(ctx context.Context, in domain.CreateGeneratedSpecInput) (*domain.GeneratedSpec, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	g := &domain.GeneratedSpec{
		ProjectID: in.ProjectID,
		Content:   in.Content,
		Model:     in.Model,
		SpecType:  in.SpecType,
		Prompt:    in.Prompt,
		CreatedAt: nowMillis(),
	}
	var err error
	g.ID, err = r.db.Insert(ctx,
		`INSERT INTO generated_specs (project_id, content, model, spec_type, prompt, created_at) VALUES (?,?,?,?,?,?)`,
		g.ProjectID, g.Content, g.Model, g.SpecType, g.Prompt, g.CreatedAt,
	)
	if err != nil {
		return nil, r.fail("create", err, slog.Int64("project_id", in.ProjectID))
	}

	r.changed("create")
	return g, nil
}

// List returns the project's specs, newest first.
func (r *GeneratedSpecRepository) List(ctx context.Context, projectID int64) ([]*domain.GeneratedSpec, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+generatedSpecColumns+` FROM generated_specs WHERE project_id = ? ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, r.fail("list", err, slog.Int64("project_id", projectID))
	}
	out, err := collect(ctx, rows, scanGeneratedSpec)
	if err != nil {
		return nil, r.fail("list", err)
	}
	r.read("list")
	return out, nil
}

func (r *GeneratedSpecRepository) Get(ctx context.Context, projectID, id int64) (*domain.GeneratedSpec, error) {
	g, err := scanGeneratedSpec(r.db.QueryRow(ctx,
		`SELECT `+generatedSpecColumns+` FROM generated_specs WHERE id = ? AND project_id = ?`, id, projectID))
	if err != nil {
		return nil, r.fail("get", err, slog.Int64("id", id))
	}
	r.read("get")
	return g, nil
}
