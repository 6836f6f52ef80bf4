package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

// RequirementRepository implements domain.RequirementRepository
type RequirementRepository struct {
	base
}

func NewRequirementRepository(db *database.ConnectionPool, notifier domain.ChangeNotifier, logger *slog.Logger) *RequirementRepository {
	return &RequirementRepository{base: newBase(db, notifier, logger, "requirement")}
}

const requirementColumns = `id, project_id, title, description, gherkin, data_bag_ids, status, created_at, updated_at`

func (r *RequirementRepository) scan(s scanner) (*domain.Requirement, error) {
	req := &domain.Requirement{}
	var desc, gherkin, bagIDs, status sql.NullString
	if err := s.Scan(&req.ID, &req.ProjectID, &req.Title, &desc, &gherkin, &bagIDs, &status, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	req.Description = desc.String
	req.Gherkin = decodeGherkin(r.logger, req.ID, gherkin)
	req.DataBagIDs = decodeList[int64](r.logger, "data_bag_ids", req.ID, bagIDs)
	req.Status = orDefault(status, domain.RequirementDraft)
	return req, nil
}

func (r *RequirementRepository) Create(ctx context.Context, in domain.CreateRequirementInput) (*domain.Requirement, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	gherkin, err := encodeJSON(in.Gherkin)
	if err != nil {
		return nil, err
	}
	bagIDs, err := encodeJSON(in.DataBagIDs)
	if err != nil {
		return nil, err
	}

	now := nowMillis()
	req := &domain.Requirement{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Gherkin:     in.Gherkin,
		DataBagIDs:  in.DataBagIDs,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	req.ID, err = r.db.Insert(ctx,
		`INSERT INTO requirements (project_id, title, description, gherkin, data_bag_ids, status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		req.ProjectID, req.Title, req.Description, gherkin, bagIDs, string(req.Status), req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return nil, r.fail("create", err, slog.Int64("project_id", in.ProjectID))
	}

	r.changed("create")
	return req, nil
}

func (r *RequirementRepository) List(ctx context.Context, projectID int64) ([]*domain.Requirement, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+requirementColumns+` FROM requirements WHERE project_id = ? ORDER BY created_at ASC, id ASC`, projectID)
	if err != nil {
		return nil, r.fail("list", err, slog.Int64("project_id", projectID))
	}
	out, err := collect(ctx, rows, r.scan)
	if err != nil {
		return nil, r.fail("list", err)
	}
	r.read("list")
	return out, nil
}

func (r *RequirementRepository) Get(ctx context.Context, projectID, id int64) (*domain.Requirement, error) {
	req, err := r.scan(r.db.QueryRow(ctx,
		`SELECT `+requirementColumns+` FROM requirements WHERE id = ? AND project_id = ?`, id, projectID))
	if err != nil {
		return nil, r.fail("get", err, slog.Int64("id", id))
	}
	r.read("get")
	return req, nil
}

func (r *RequirementRepository) Update(ctx context.Context, projectID, id int64, in domain.UpdateRequirementInput) error {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}
	gherkin, err := encodeJSON(in.Gherkin)
	if err != nil {
		return err
	}
	bagIDs, err := encodeJSON(in.DataBagIDs)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(ctx,
		`UPDATE requirements SET title = ?, description = ?, gherkin = ?, data_bag_ids = ?, status = ?, updated_at = ?
		 WHERE id = ? AND project_id = ?`,
		in.Title, in.Description, gherkin, bagIDs, string(in.Status), nowMillis(), id, projectID,
	)
	if err != nil {
		return r.fail("update", err, slog.Int64("id", id))
	}
	if err := expectRow(res); err != nil {
		return r.fail("update", err)
	}
	r.changed("update")
	return nil
}

// Delete removes the requirement and exactly its linked test cases.
func (r *RequirementRepository) Delete(ctx context.Context, projectID, id int64) error {
	if _, err := r.Get(ctx, projectID, id); err != nil {
		return r.fail("delete", err)
	}

	err := r.db.Batch(ctx,
		database.Stmt(`DELETE FROM test_cases WHERE requirement_id = ?`, id),
		database.Stmt(`DELETE FROM requirements WHERE id = ? AND project_id = ?`, id, projectID),
	)
	if err != nil {
		return r.fail("delete", err, slog.Int64("id", id))
	}
	r.changed("delete")
	return nil
}
