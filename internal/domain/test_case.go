package domain

import "strings"

type StepType string

const (
	StepAction    StepType = "action"
	StepAssertion StepType = "assertion"
	StepSetup     StepType = "setup"
	StepTeardown  StepType = "teardown"
)

type TestCaseStatus string

const (
	TestPending TestCaseStatus = "pending"
	TestPass    TestCaseStatus = "pass"
	TestFail    TestCaseStatus = "fail"
	TestSkipped TestCaseStatus = "skipped"
)

type TestStep struct {
	Type        StepType `json:"type" validate:"oneof=action assertion setup teardown"`
	Description string   `json:"description"`
	Expected    string   `json:"expected"`
}

type TestCase struct {
	ID             int64          `json:"id"`
	ProjectID      int64          `json:"projectId"`
	RequirementID  *int64         `json:"requirementId"`
	DataBagID      *int64         `json:"dataBagId"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Steps          []TestStep     `json:"steps"`
	Status         TestCaseStatus `json:"status"`
	Preconditions  string         `json:"preconditions"`
	ExpectedResult string         `json:"expectedResult"`
	CreatedAt      int64          `json:"createdAt"`
}

type CreateTestCaseInput struct {
	ProjectID      int64          `json:"-" validate:"gt=0"`
	RequirementID  *int64         `json:"requirementId"`
	DataBagID      *int64         `json:"dataBagId"`
	Name           string         `json:"name" validate:"required"`
	Description    string         `json:"description"`
	Steps          []TestStep     `json:"steps" validate:"dive"`
	Status         TestCaseStatus `json:"status" validate:"oneof=pending pass fail skipped"`
	Preconditions  string         `json:"preconditions"`
	ExpectedResult string         `json:"expectedResult"`
}

func (in *CreateTestCaseInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Steps = normalizeSteps(in.Steps)
	if in.Status == "" {
		in.Status = TestPending
	}
}

func (in CreateTestCaseInput) Validate() error { return check(in) }

type UpdateTestCaseInput struct {
	RequirementID  *int64         `json:"requirementId"`
	DataBagID      *int64         `json:"dataBagId"`
	Name           string         `json:"name" validate:"required"`
	Description    string         `json:"description"`
	Steps          []TestStep     `json:"steps" validate:"dive"`
	Status         TestCaseStatus `json:"status" validate:"oneof=pending pass fail skipped"`
	Preconditions  string         `json:"preconditions"`
	ExpectedResult string         `json:"expectedResult"`
}

func (in *UpdateTestCaseInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Steps = normalizeSteps(in.Steps)
	if in.Status == "" {
		in.Status = TestPending
	}
}

func (in UpdateTestCaseInput) Validate() error { return check(in) }

func normalizeSteps(steps []TestStep) []TestStep {
	if steps == nil {
		return []TestStep{}
	}
	for i := range steps {
		if steps[i].Type == "" {
			steps[i].Type = StepAction
		}
	}
	return steps
}
