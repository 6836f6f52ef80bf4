package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

// TrackerRepository implements domain.TrackerRepository
type TrackerRepository struct {
	base
}

func NewTrackerRepository(db *database.ConnectionPool, notifier domain.ChangeNotifier, logger *slog.Logger) *TrackerRepository {
	return &TrackerRepository{base: newBase(db, notifier, logger, "tracker_item")}
}

const trackerColumns = `id, project_id, title, owner, due_date, status, comments, position, created_at, updated_at`

func scanTrackerItem(s scanner) (*domain.TrackerItem, error) {
	it := &domain.TrackerItem{}
	var owner, due, status, comments sql.NullString
	err := s.Scan(&it.ID, &it.ProjectID, &it.Title, &owner, &due, &status, &comments, &it.Position, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.Owner = owner.String
	it.DueDate = due.String
	it.Status = orDefault(status, domain.TrackerOnTrack)
	it.Comments = comments.String
	return it, nil
}

func (r *TrackerRepository) Create(ctx context.Context, in domain.CreateTrackerItemInput) (*domain.TrackerItem, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var pos int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tracker_items WHERE project_id = ?`, in.ProjectID).Scan(&pos); err != nil {
		return nil, r.fail("create", err)
	}

	now := nowMillis()
	it := &domain.TrackerItem{
		ProjectID: in.ProjectID,
		Title:     in.Title,
		Owner:     in.Owner,
		DueDate:   in.DueDate,
		Status:    in.Status,
		Comments:  in.Comments,
		Position:  pos,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var err error
	it.ID, err = r.db.Insert(ctx,
		`INSERT INTO tracker_items (project_id, title, owner, due_date, status, comments, position, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		it.ProjectID, it.Title, it.Owner, it.DueDate, string(it.Status), it.Comments, it.Position, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return nil, r.fail("create", err, slog.Int64("project_id", in.ProjectID))
	}

	r.changed("create")
	return it, nil
}

func (r *TrackerRepository) List(ctx context.Context, projectID int64) ([]*domain.TrackerItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+trackerColumns+` FROM tracker_items WHERE project_id = ? ORDER BY position ASC, created_at ASC, id ASC`, projectID)
	if err != nil {
		return nil, r.fail("list", err, slog.Int64("project_id", projectID))
	}
	out, err := collect(ctx, rows, scanTrackerItem)
	if err != nil {
		return nil, r.fail("list", err)
	}
	r.read("list")
	return out, nil
}

func (r *TrackerRepository) Get(ctx context.Context, projectID, id int64) (*domain.TrackerItem, error) {
	it, err := scanTrackerItem(r.db.QueryRow(ctx,
		`SELECT `+trackerColumns+` FROM tracker_items WHERE id = ? AND project_id = ?`, id, projectID))
	if err != nil {
		return nil, r.fail("get", err, slog.Int64("id", id))
	}
	r.read("get")
	return it, nil
}

func (r *TrackerRepository) Update(ctx context.Context, projectID, id int64, in domain.UpdateTrackerItemInput) error {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	res, err := r.db.Exec(ctx,
		`UPDATE tracker_items SET title = ?, owner = ?, due_date = ?, status = ?, comments = ?, position = ?, updated_at = ?
		 WHERE id = ? AND project_id = ?`,
		in.Title, in.Owner, in.DueDate, string(in.Status), in.Comments, in.Position, nowMillis(), id, projectID,
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

func (r *TrackerRepository) Delete(ctx context.Context, projectID, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM tracker_items WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return r.fail("delete", err, slog.Int64("id", id))
	}
	if err := expectRow(res); err != nil {
		return r.fail("delete", err)
	}
	r.changed("delete")
	return nil
}
