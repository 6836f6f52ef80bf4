package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

// DataBagRepository implements domain.DataBagRepository
type DataBagRepository struct {
	base
}

func NewDataBagRepository(db *database.ConnectionPool, notifier domain.ChangeNotifier, logger *slog.Logger) *DataBagRepository {
	return &DataBagRepository{base: newBase(db, notifier, logger, "data_bag")}
}

const dataBagColumns = `id, project_id, name, description, records, schema_def, created_at`

func (r *DataBagRepository) scan(s scanner) (*domain.DataBag, error) {
	b := &domain.DataBag{}
	var desc, records, schema sql.NullString
	if err := s.Scan(&b.ID, &b.ProjectID, &b.Name, &desc, &records, &schema, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Description = desc.String
	b.Records = decodeList[map[string]any](r.logger, "records", b.ID, records)
	b.Schema = decodeList[domain.SchemaColumn](r.logger, "schema_def", b.ID, schema)
	return b, nil
}

func (r *DataBagRepository) Create(ctx context.Context, in domain.CreateDataBagInput) (*domain.DataBag, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	records, err := encodeJSON(in.Records)
	if err != nil {
		return nil, err
	}
	schema, err := encodeJSON(in.Schema)
	if err != nil {
		return nil, err
	}

	b := &domain.DataBag{
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		Records:     in.Records,
		Schema:      in.Schema,
		CreatedAt:   nowMillis(),
	}
	b.ID, err = r.db.Insert(ctx,
		`INSERT INTO data_bags (project_id, name, description, records, schema_def, created_at) VALUES (?,?,?,?,?,?)`,
		b.ProjectID, b.Name, b.Description, records, schema, b.CreatedAt,
	)
	if err != nil {
		return nil, r.fail("create", err, slog.Int64("project_id", in.ProjectID))
	}

	r.changed("create")
	return b, nil
}

func (r *DataBagRepository) List(ctx context.Context, projectID int64) ([]*domain.DataBag, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+dataBagColumns+` FROM data_bags WHERE project_id = ? ORDER BY created_at ASC, id ASC`, projectID)
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

func (r *DataBagRepository) Get(ctx context.Context, projectID, id int64) (*domain.DataBag, error) {
	b, err := r.scan(r.db.QueryRow(ctx,
		`SELECT `+dataBagColumns+` FROM data_bags WHERE id = ? AND project_id = ?`, id, projectID))
	if err != nil {
		return nil, r.fail("get", err, slog.Int64("id", id))
	}
	r.read("get")
	return b, nil
}

func (r *DataBagRepository) Update(ctx context.Context, projectID, id int64, in domain.UpdateDataBagInput) error {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}
	records, err := encodeJSON(in.Records)
	if err != nil {
		return err
	}
	schema, err := encodeJSON(in.Schema)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(ctx,
		`UPDATE data_bags SET name = ?, description = ?, records = ?, schema_def = ? WHERE id = ? AND project_id = ?`,
		in.Name, in.Description, records, schema, id, projectID,
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

func (r *DataBagRepository) Delete(ctx context.Context, projectID, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM data_bags WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return r.fail("delete", err, slog.Int64("id", id))
	}
	if err := expectRow(res); err != nil {
		return r.fail("delete", err)
	}
	r.changed("delete")
	return nil
}
