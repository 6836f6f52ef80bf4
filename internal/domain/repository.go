package domain

import "context"

// ChangeNotifier is told after every committed write.
type ChangeNotifier interface {
	Publish()
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, in CreateUserInput) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, id int64, password string) error
}

// ProjectRepository scopes every read and write to the owning user.
type ProjectRepository interface {
	Create(ctx context.Context, in CreateProjectInput) (*Project, error)
	List(ctx context.Context, userID int64) ([]*Project, error)
	Get(ctx context.Context, id, userID int64) (*Project, error)
	Update(ctx context.Context, id, userID int64, in UpdateProjectInput) error
	Delete(ctx context.Context, id, userID int64) error
	RequirementCounts(ctx context.Context, userID int64) (map[int64]int, error)
}

type DomainRepository interface {
	Create(ctx context.Context, in CreateDomainInput) (*Domain, error)
	List(ctx context.Context, projectID int64) ([]*Domain, error)
	Get(ctx context.Context, projectID, id int64) (*Domain, error)
	Update(ctx context.Context, projectID, id int64, in UpdateDomainInput) error
	Delete(ctx context.Context, projectID, id int64) error
}

type RequirementRepository interface {
	Create(ctx context.Context, in CreateRequirementInput) (*Requirement, error)
	List(ctx context.Context, projectID int64) ([]*Requirement, error)
	Get(ctx context.Context, projectID, id int64) (*Requirement, error)
	Update(ctx context.Context, projectID, id int64, in UpdateRequirementInput) error
	// Delete removes the requirement and its test cases atomically.
	Delete(ctx context.Context, projectID, id int64) error
}

type TestCaseRepository interface {
	Create(ctx context.Context, in CreateTestCaseInput) (*TestCase, error)
	List(ctx context.Context, projectID int64) ([]*TestCase, error)
	Get(ctx context.Context, projectID, id int64) (*TestCase, error)
	Update(ctx context.Context, projectID, id int64, in UpdateTestCaseInput) error
	Delete(ctx context.Context, projectID, id int64) error
}

type DataBagRepository interface {
	Create(ctx context.Context, in CreateDataBagInput) (*DataBag, error)
	List(ctx context.Context, projectID int64) ([]*DataBag, error)
	Get(ctx context.Context, projectID, id int64) (*DataBag, error)
	Update(ctx context.Context, projectID, id int64, in UpdateDataBagInput) error
	Delete(ctx context.Context, projectID, id int64) error
}

type GeneratedSpecRepository interface {
	Create(ctx context.Context, in CreateGeneratedSpecInput) (*GeneratedSpec, error)
	List(ctx context.Context, projectID int64) ([]*GeneratedSpec, error)
	Get(ctx context.Context, projectID, id int64) (*GeneratedSpec, error)
}

type BoardRepository interface {
	Create(ctx context.Context, in CreateBoardItemInput) (*BoardItem, error)
	List(ctx context.Context, projectID int64) ([]*BoardItem, error)
	Get(ctx context.Context, projectID, id int64) (*BoardItem, error)
	Update(ctx context.Context, projectID, id int64, in UpdateBoardItemInput) error
	// Move puts the item at the end of the target lane.
	Move(ctx context.Context, projectID, id int64, in MoveBoardItemInput) error
	Delete(ctx context.Context, projectID, id int64) error
}

type TrackerRepository interface {
	Create(ctx context.Context, in CreateTrackerItemInput) (*TrackerItem, error)
	List(ctx context.Context, projectID int64) ([]*TrackerItem, error)
	Get(ctx context.Context, projectID, id int64) (*TrackerItem, error)
	Update(ctx context.Context, projectID, id int64, in UpdateTrackerItemInput) error
	Delete(ctx context.Context, projectID, id int64) error
}
