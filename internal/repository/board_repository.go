package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

// BoardRepository implements domain.BoardRepository over friday_items.
type BoardRepository struct {
	base
}

func NewBoardRepository(db *database.ConnectionPool, notifier domain.ChangeNotifier, logger *slog.Logger) *BoardRepository {
	return &BoardRepository{base: newBase(db, notifier, logger, "board_item")}
}

const boardColumns = `id, project_id, requirement_id, title, notes, priority, swimlane, position, status, created_at, updated_at`

const laneOrder = `CASE swimlane WHEN 'backlog' THEN 0 WHEN 'this_week' THEN 1 WHEN 'next_week' THEN 2 WHEN 'done' THEN 3 ELSE 4 END`

func scanBoardItem(s scanner) (*domain.BoardItem, error) {
	it := &domain.BoardItem{}
	var reqID sql.NullInt64
	var notes, priority, lane, status sql.NullString
	err := s.Scan(&it.ID, &it.ProjectID, &reqID, &it.Title, &notes, &priority, &lane, &it.Position, &status, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.RequirementID = idPtr(reqID)
	it.Notes = notes.String
	it.Priority = orDefault(priority, domain.PriorityMedium)
	it.Swimlane = orDefault(lane, domain.LaneBacklog)
	it.Status = orDefault(status, domain.BoardTodo)
	return it, nil
}

func (r *BoardRepository) laneSize(ctx context.Context, projectID int64, lane domain.Swimlane) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM friday_items WHERE project_id = ? AND swimlane = ?`, projectID, string(lane)).Scan(&n)
	return n, err
}

// Create appends the item to the end of its lane.
func (r *BoardRepository) Create(ctx context.Context, in domain.CreateBoardItemInput) (*domain.BoardItem, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	pos, err := r.laneSize(ctx, in.ProjectID, in.Swimlane)
	if err != nil {
		return nil, r.fail("create", err)
	}

	now := nowMillis()
	it := &domain.BoardItem{
		ProjectID:     in.ProjectID,
		RequirementID: in.RequirementID,
		Title:         in.Title,
		Notes:         in.Notes,
		Priority:      in.Priority,
		Swimlane:      in.Swimlane,
		Position:      pos,
		Status:        in.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	it.ID, err = r.db.Insert(ctx,
		`INSERT INTO friday_items (project_id, requirement_id, title, notes, priority, swimlane, position, status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		it.ProjectID, nullableID(it.RequirementID), it.Title, it.Notes, string(it.Priority), string(it.Swimlane),
		it.Position, string(it.Status), it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return nil, r.fail("create", err, slog.Int64("project_id", in.ProjectID))
	}

	r.changed("create")
	return it, nil
}

// List orders items by lane (backlog to done) then position.
func (r *BoardRepository) List(ctx context.Context, projectID int64) ([]*domain.BoardItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+boardColumns+` FROM friday_items WHERE project_id = ? ORDER BY `+laneOrder+`, position ASC, id ASC`, projectID)
	if err != nil {
		return nil, r.fail("list", err, slog.Int64("project_id", projectID))
	}
	out, err := collect(ctx, rows, scanBoardItem)
	if err != nil {
		return nil, r.fail("list", err)
	}
	r.read("list")
	return out, nil
}

func (r *BoardRepository) Get(ctx context.Context, projectID, id int64) (*domain.BoardItem, error) {
	it, err := scanBoardItem(r.db.QueryRow(ctx,
		`SELECT `+boardColumns+` FROM friday_items WHERE id = ? AND project_id = ?`, id, projectID))
	if err != nil {
		return nil, r.fail("get", err, slog.Int64("id", id))
	}
	r.read("get")
	return it, nil
}

func (r *BoardRepository) Update(ctx context.Context, projectID, id int64, in domain.UpdateBoardItemInput) error {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	res, err := r.db.Exec(ctx,
		`UPDATE friday_items SET title = ?, notes = ?, priority = ?, swimlane = ?, position = ?, status = ?, updated_at = ?
		 WHERE id = ? AND project_id = ?`,
		in.Title, in.Notes, string(in.Priority), string(in.Swimlane), in.Position, string(in.Status), nowMillis(), id, projectID,
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

// Move sets the lane and gives the item position = current size of that lane.
// Positions left behind are not renumbered.
func (r *BoardRepository) Move(ctx context.Context, projectID, id int64, in domain.MoveBoardItemInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	res, err := r.db.Exec(ctx,
		`UPDATE friday_items
		 SET position = (SELECT COUNT(*) FROM friday_items WHERE project_id = ? AND swimlane = ?),
		     swimlane = ?, updated_at = ?
		 WHERE id = ? AND project_id = ?`,
		projectID, string(in.Swimlane), string(in.Swimlane), nowMillis(), id, projectID,
	)
	if err != nil {
		return r.fail("move", err, slog.Int64("id", id))
	}
	if err := expectRow(res); err != nil {
		return r.fail("move", err)
	}
	r.changed("move")
	return nil
}

func (r *BoardRepository) Delete(ctx context.Context, projectID, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM friday_items WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return r.fail("delete", err, slog.Int64("id", id))
	}
	if err := expectRow(res); err != nil {
		return r.fail("delete", err)
	}
	r.changed("delete")
	return nil
}
