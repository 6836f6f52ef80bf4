package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserInputNormalizeAndValidate(t *testing.T) {
	in := CreateUserInput{Email: "  Alice@Example.COM ", Name: "  Alice ", Password: "Abc!123"}
	in.Normalize()
	assert.Equal(t, "alice@example.com", in.Email)
	assert.Equal(t, "Alice", in.Name)
	require.NoError(t, in.Validate())

	bad := CreateUserInput{Email: "not-an-email", Name: "x", Password: "Abc!123"}
	err := bad.Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "email")
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		pw      string
		wantErr string
	}{
		{"Abc!123", ""},
		{"Ab!1", "at least 6"},
		{"abc!123", "uppercase"},
		{"Abc!def", "number"},
		{"Abc1234", "special"},
	}
	for _, tt := range tests {
		err := ValidatePassword(tt.pw)
		if tt.wantErr == "" {
			assert.NoError(t, err, tt.pw)
			continue
		}
		require.ErrorIs(t, err, ErrValidation, tt.pw)
		assert.Contains(t, err.Error(), tt.wantErr)
	}
}

func TestRequirementDefaults(t *testing.T) {
	in := CreateRequirementInput{ProjectID: 1, Title: " Checkout "}
	in.Normalize()
	require.NoError(t, in.Validate())
	assert.Equal(t, "Checkout", in.Title)
	assert.Equal(t, RequirementDraft, in.Status)
	assert.Equal(t, []string{}, in.Gherkin.Given)
	assert.Equal(t, []string{}, in.Gherkin.When)
	assert.Equal(t, []string{}, in.Gherkin.Then)
	assert.Equal(t, []int64{}, in.DataBagIDs)

	in.Status = "shipped"
	err := in.Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "status")
}

func TestDomainAttributeValidation(t *testing.T) {
	in := CreateDomainInput{ProjectID: 1, Name: "Customer", Attributes: []Attribute{{Name: "age"}}}
	in.Normalize()
	require.NoError(t, in.Validate())
	assert.Equal(t, AttrString, in.Attributes[0].Type)

	in.Attributes[0].Type = "decimal"
	assert.ErrorIs(t, in.Validate(), ErrValidation)

	missing := CreateDomainInput{Name: "Customer"}
	assert.ErrorIs(t, missing.Validate(), ErrValidation)
}

func TestBoardDefaults(t *testing.T) {
	in := CreateBoardItemInput{ProjectID: 3, Title: "Wire login"}
	in.Normalize()
	require.NoError(t, in.Validate())
	assert.Equal(t, PriorityMedium, in.Priority)
	assert.Equal(t, LaneBacklog, in.Swimlane)
	assert.Equal(t, BoardTodo, in.Status)

	assert.ErrorIs(t, MoveBoardItemInput{Swimlane: "someday"}.Validate(), ErrValidation)
	assert.NoError(t, MoveBoardItemInput{Swimlane: LaneDone}.Validate())
}

func TestGherkinSteps(t *testing.T) {
	g := Gherkin{Given: []string{"a"}, When: []string{"b"}, Then: []string{"c", "d"}}
	assert.Equal(t, []string{"a", "b", "c", "d"}, g.Steps())
}
