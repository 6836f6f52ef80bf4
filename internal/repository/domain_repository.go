package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

// DomainRepository implements domain.DomainRepository
type DomainRepository struct {
	base
}

func NewDomainRepository(db *database.ConnectionPool, notifier domain.ChangeNotifier, logger *slog.Logger) *DomainRepository {
	return &DomainRepository{base: newBase(db, notifier, logger, "domain")}
}

const domainColumns = `id, project_id, name, description, attributes, created_at`

func (r *DomainRepository) scan(s scanner) (*domain.Domain, error) {
	d := &domain.Domain{}
	var desc, attrs sql.NullString
	if err := s.Scan(&d.ID, &d.ProjectID, &d.Name, &desc, &attrs, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Description = desc.String
	d.Attributes = decodeList[domain.Attribute](r.logger, "attributes", d.ID, attrs)
	return d, nil
}

func (r *DomainRepository) Create(ctx context.Context, in domain.CreateDomainInput) (*domain.Domain, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	attrs, err := encodeJSON(in.Attributes)
	if err != nil {
		return nil, err
	}

	d := &domain.Domain{
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		Attributes:  in.Attributes,
		CreatedAt:   nowMillis(),
	}
	d.ID, err = r.db.Insert(ctx,
		`INSERT INTO domains (project_id, name, description, attributes, created_at) VALUES (?,?,?,?,?)`,
		d.ProjectID, d.Name, d.Description, attrs, d.CreatedAt,
	)
	if err != nil {
		return nil, r.fail("create", err, slog.Int64("project_id", in.ProjectID))
	}

	r.changed("create")
	return d, nil
}

func (r *DomainRepository) List(ctx context.Context, projectID int64) ([]*domain.Domain, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+domainColumns+` FROM domains WHERE project_id = ? ORDER BY created_at ASC, id ASC`, projectID)
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

func (r *DomainRepository) Get(ctx context.Context, projectID, id int64) (*domain.Domain, error) {
	d, err := r.scan(r.db.QueryRow(ctx,
		`SELECT `+domainColumns+` FROM domains WHERE id = ? AND project_id = ?`, id, projectID))
	if err != nil {
		return nil, r.fail("get", err, slog.Int64("id", id))
	}
	r.read("get")
	return d, nil
}

func (r *DomainRepository) Update(ctx context.Context, projectID, id int64, in domain.UpdateDomainInput) error {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}
	attrs, err := encodeJSON(in.Attributes)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(ctx,
		`UPDATE domains SET name = ?, description = ?, attributes = ? WHERE id = ? AND project_id = ?`,
		in.Name, in.Description, attrs, id, projectID,
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

func (r *DomainRepository) Delete(ctx context.Context, projectID, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM domains WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return r.fail("delete", err, slog.Int64("id", id))
	}
	if err := expectRow(res); err != nil {
		return r.fail("delete", err)
	}
	r.changed("delete")
	return nil
}
