package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

// TestCaseRepository implements domain.TestCaseRepository
type TestCaseRepository struct {
	base
}

func NewTestCaseRepository(db *database.ConnectionPool, notifier domain.ChangeNotifier, logger *slog.Logger) *TestCaseRepository {
	return &TestCaseRepository{base: newBase(db, notifier, logger, "test_case")}
}

const testCaseColumns = `id, project_id, requirement_id, data_bag_id, name, description, steps, status,
	preconditions, expected_result, created_at`

func (r *TestCaseRepository) scan(s scanner) (*domain.TestCase, error) {
	tc := &domain.TestCase{}
	var reqID, bagID sql.NullInt64
	var desc, steps, status, pre, expected sql.NullString
	err := s.Scan(&tc.ID, &tc.ProjectID, &reqID, &bagID, &tc.Name, &desc, &steps, &status, &pre, &expected, &tc.CreatedAt)
	if err != nil {
		return nil, err
	}
	tc.RequirementID = idPtr(reqID)
	tc.DataBagID = idPtr(bagID)
	tc.Description = desc.String
	tc.Steps = decodeList[domain.TestStep](r.logger, "steps", tc.ID, steps)
	tc.Status = orDefault(status, domain.TestPending)
	tc.Preconditions = pre.String
	tc.ExpectedResult = expected.String
	return tc, nil
}

func (r *TestCaseRepository) Create(ctx context.Context, in domain.CreateTestCaseInput) (*domain.TestCase, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	steps, err := encodeJSON(in.Steps)
	if err != nil {
		return nil, err
	}

	tc := &domain.TestCase{
		ProjectID:      in.ProjectID,
		RequirementID:  in.RequirementID,
		DataBagID:      in.DataBagID,
		Name:           in.Name,
		Description:    in.Description,
		Steps:          in.Steps,
		Status:         in.Status,
		Preconditions:  in.Preconditions,
		ExpectedResult: in.ExpectedResult,
		CreatedAt:      nowMillis(),
	}
	tc.ID, err = r.db.Insert(ctx,
		`INSERT INTO test_cases (project_id, requirement_id, name, description, steps, status,
			preconditions, expected_result, data_bag_id, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		tc.ProjectID, nullableID(tc.RequirementID), tc.Name, tc.Description, steps, string(tc.Status),
		tc.Preconditions, tc.ExpectedResult, nullableID(tc.DataBagID), tc.CreatedAt,
	)
	if err != nil {
		return nil, r.fail("create", err, slog.Int64("project_id", in.ProjectID))
	}

	r.changed("create")
	return tc, nil
}

func (r *TestCaseRepository) List(ctx context.Context, projectID int64) ([]*domain.TestCase, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+testCaseColumns+` FROM test_cases WHERE project_id = ? ORDER BY created_at ASC, id ASC`, projectID)
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

func (r *TestCaseRepository) Get(ctx context.Context, projectID, id int64) (*domain.TestCase, error) {
	tc, err := r.scan(r.db.QueryRow(ctx,
		`SELECT `+testCaseColumns+` FROM test_cases WHERE id = ? AND project_id = ?`, id, projectID))
	if err != nil {
		return nil, r.fail("get", err, slog.Int64("id", id))
	}
	r.read("get")
	return tc, nil
}

func (r *TestCaseRepository) Update(ctx context.Context, projectID, id int64, in domain.UpdateTestCaseInput) error {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}
	steps, err := encodeJSON(in.Steps)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(ctx,
		`UPDATE test_cases SET name = ?, description = ?, requirement_id = ?, data_bag_id = ?, steps = ?,
			status = ?, preconditions = ?, expected_result = ?
		 WHERE id = ? AND project_id = ?`,
		in.Name, in.Description, nullableID(in.RequirementID), nullableID(in.DataBagID), steps,
		string(in.Status), in.Preconditions, in.ExpectedResult, id, projectID,
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

func (r *TestCaseRepository) Delete(ctx context.Context, projectID, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM test_cases WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return r.fail("delete", err, slog.Int64("id", id))
	}
	if err := expectRow(res); err != nil {
		return r.fail("delete", err)
	}
	r.changed("delete")
	return nil
}
