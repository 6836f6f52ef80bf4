package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

// ProjectRepository implements domain.ProjectRepository. Every lookup is
// filtered by the owning user.
type ProjectRepository struct {
	base
}

func NewProjectRepository(db *database.ConnectionPool, notifier domain.ChangeNotifier, logger *slog.Logger) *ProjectRepository {
	return &ProjectRepository{base: newBase(db, notifier, logger, "project")}
}

const projectColumns = `id, user_id, name, description, created_at, updated_at`

func scanProject(s scanner) (*domain.Project, error) {
	p := &domain.Project{}
	var desc sql.NullString
	if err := s.Scan(&p.ID, &p.UserID, &p.Name, &desc, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = desc.String
	return p, nil
}

func (r *ProjectRepository) Create(ctx context.Context, in domain.CreateProjectInput) (*domain.Project, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := nowMillis()
	p := &domain.Project{UserID: in.UserID, Name: in.Name, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	id, err := r.db.Insert(ctx,
		`INSERT INTO projects (user_id, name, description, created_at, updated_at) VALUES (?,?,?,?,?)`,
		p.UserID, p.Name, p.Description, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, r.fail("create", err, slog.Int64("user_id", in.UserID))
	}
	p.ID = id

	r.changed("create")
	return p, nil
}

// List returns the user's projects, newest first.
func (r *ProjectRepository) List(ctx context.Context, userID int64) ([]*domain.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, r.fail("list", err, slog.Int64("user_id", userID))
	}
	out, err := collect(ctx, rows, scanProject)
	if err != nil {
		return nil, r.fail("list", err, slog.Int64("user_id", userID))
	}
	r.read("list")
	return out, nil
}

func (r *ProjectRepository) Get(ctx context.Context, id, userID int64) (*domain.Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return nil, r.fail("get", err, slog.Int64("id", id))
	}
	r.read("get")
	return p, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id, userID int64, in domain.UpdateProjectInput) error {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	res, err := r.db.Exec(ctx,
		`UPDATE projects SET name = ?, description = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		in.Name, in.Description, nowMillis(), id, userID,
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

// Delete removes the project and every row it owns in one batch, leaves
// first. Ownership is checked before anything is deleted.
func (r *ProjectRepository) Delete(ctx context.Context, id, userID int64) error {
	if _, err := r.Get(ctx, id, userID); err != nil {
		return r.fail("delete", err)
	}

	err := r.db.Batch(ctx,
		database.Stmt(`DELETE FROM generated_specs WHERE project_id = ?`, id),
		database.Stmt(`DELETE FROM friday_items WHERE project_id = ?`, id),
		database.Stmt(`DELETE FROM tracker_items WHERE project_id = ?`, id),
		database.Stmt(`DELETE FROM test_cases WHERE project_id = ?`, id),
		database.Stmt(`DELETE FROM data_bags WHERE project_id = ?`, id),
		database.Stmt(`DELETE FROM requirements WHERE project_id = ?`, id),
		database.Stmt(`DELETE FROM domains WHERE project_id = ?`, id),
		database.Stmt(`DELETE FROM projects WHERE id = ? AND user_id = ?`, id, userID),
	)
	if err != nil {
		return r.fail("delete", err, slog.Int64("id", id))
	}

	r.changed("delete")
	r.logger.Info("project deleted", slog.Int64("id", id), slog.Int64("user_id", userID))
	return nil
}

// RequirementCounts maps each of the user's projects to its requirement count.
// Projects without requirements are absent from the map.
func (r *ProjectRepository) RequirementCounts(ctx context.Context, userID int64) (map[int64]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.project_id, COUNT(*) FROM requirements r
		 JOIN projects p ON p.id = r.project_id
		 WHERE p.user_id = ?
		 GROUP BY r.project_id`, userID)
	if err != nil {
		return nil, r.fail("requirement_counts", err)
	}
	defer rows.Close()

	counts := map[int64]int{}
	for rows.Next() {
		var projectID int64
		var n int
		if err := rows.Scan(&projectID, &n); err != nil {
			return nil, r.fail("requirement_counts", err)
		}
		counts[projectID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("requirement_counts", err)
	}
	r.read("requirement_counts")
	return counts, nil
}
