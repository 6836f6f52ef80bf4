package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/events"
	"github.com/karthickst/agenticosv2.0/internal/reliability/circuitbreaker"
	"github.com/karthickst/agenticosv2.0/internal/repository"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

type fakeGenerator struct {
	chunks []string
	err    error
	calls  int
	last   GenerateRequest
}

func (f *fakeGenerator) Stream(ctx context.Context, req GenerateRequest, onDelta func(string)) (string, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return "", f.err
	}
	var b strings.Builder
	for _, c := range f.chunks {
		onDelta(c)
		b.WriteString(c)
	}
	return b.String(), nil
}

type specFixture struct {
	ctx      context.Context
	project  *domain.Project
	repos    SpecRepositories
	projects *repository.ProjectRepository
	bus      *events.Bus
}

func newSpecFixture(t *testing.T) *specFixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewConnectionPool(ctx, &database.Config{URL: filepath.Join(t.TempDir(), "svc.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Initialize(ctx, db))

	bus := events.NewBus(nil)
	users := repository.NewUserRepository(db, bus, nil)
	projects := repository.NewProjectRepository(db, bus, nil)
	u, err := users.Create(ctx, domain.CreateUserInput{Email: "pm@example.com", Name: "PM", Password: "Abc!123"})
	require.NoError(t, err)
	p, err := projects.Create(ctx, domain.CreateProjectInput{UserID: u.ID, Name: "Shop", Description: "online store"})
	require.NoError(t, err)

	return &specFixture{
		ctx:      ctx,
		project:  p,
		projects: projects,
		bus:      bus,
		repos: SpecRepositories{
			Domains:      repository.NewDomainRepository(db, bus, nil),
			Requirements: repository.NewRequirementRepository(db, bus, nil),
			TestCases:    repository.NewTestCaseRepository(db, bus, nil),
			DataBags:     repository.NewDataBagRepository(db, bus, nil),
			Specs:        repository.NewGeneratedSpecRepository(db, bus, nil),
		},
	}
}

func (f *specFixture) addRequirement(t *testing.T) *domain.Requirement {
	t.Helper()
	r, err := f.repos.Requirements.Create(f.ctx, domain.CreateRequirementInput{
		ProjectID: f.project.ID,
		Title:     "Checkout",
		Gherkin: domain.Gherkin{
			Given: []string{"a cart with @Order.total"},
			When:  []string{"the customer pays", "the bank approves"},
			Then:  []string{"an order is created"},
		},
	})
	require.NoError(t, err)
	return r
}

func TestGenerateRequiresRequirements(t *testing.T) {
	f := newSpecFixture(t)
	gen := &fakeGenerator{chunks: []string{"x"}}
	s := NewSpecService(f.repos, gen, nil, nil)

	_, err := s.Generate(f.ctx, f.project, GenerateInput{SpecType: "functional"}, nil)
	assert.ErrorIs(t, err, domain.ErrNoRequirements)
	assert.Zero(t, gen.calls)
}

func TestGenerateRejectsUnknownTypeAndMissingGenerator(t *testing.T) {
	f := newSpecFixture(t)
	f.addRequirement(t)

	s := NewSpecService(f.repos, &fakeGenerator{}, nil, nil)
	_, err := s.Generate(f.ctx, f.project, GenerateInput{SpecType: "poem"}, nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedSpecType)

	s = NewSpecService(f.repos, nil, nil, nil)
	_, err = s.Generate(f.ctx, f.project, GenerateInput{SpecType: "bdd"}, nil)
	assert.ErrorIs(t, err, domain.ErrGeneratorNotReady)
}

func TestGenerateStreamsAndSaves(t *testing.T) {
	f := newSpecFixture(t)
	f.addRequirement(t)
	gen := &fakeGenerator{chunks: []string{"# Spec\n", "body"}}
	s := NewSpecService(f.repos, gen, nil, nil)

	var streamed []string
	saved, err := s.Generate(f.ctx, f.project, GenerateInput{SpecType: "bdd", APIKey: "sk-test"}, func(d string) {
		streamed = append(streamed, d)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"# Spec\n", "body"}, streamed)
	assert.Equal(t, "# Spec\nbody", saved.Content)
	assert.Equal(t, DefaultModel, saved.Model)
	assert.Equal(t, "bdd", saved.SpecType)
	assert.Equal(t, gen.last.Prompt, saved.Prompt)
	assert.Equal(t, int64(MaxTokens), gen.last.MaxTokens)
	assert.Equal(t, "sk-test", gen.last.APIKey)

	list, err := s.List(f.ctx, f.project.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)
}

func TestGenerateFailureSavesNothingAndTripsBreaker(t *testing.T) {
	f := newSpecFixture(t)
	f.addRequirement(t)
	gen := &fakeGenerator{err: errors.New("upstream 529")}
	breaker := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1})
	s := NewSpecService(f.repos, gen, breaker, nil)

	_, err := s.Generate(f.ctx, f.project, GenerateInput{SpecType: "api"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 529")

	_, err = s.Generate(f.ctx, f.project, GenerateInput{SpecType: "api"}, nil)
	assert.ErrorIs(t, err, domain.ErrGeneratorBusy)
	assert.Equal(t, 1, gen.calls)

	list, err := s.List(f.ctx, f.project.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBuildPrompt(t *testing.T) {
	st, ok := LookupSpecType("functional")
	require.True(t, ok)
	reqID := int64(11)

	snap := ProjectSnapshot{
		Project: &domain.Project{Name: "Shop", Description: "online store"},
		Domains: []*domain.Domain{{Name: "Order", Attributes: []domain.Attribute{
			{Name: "total", Type: domain.AttrNumber, Required: true, Description: "gross amount"},
		}}},
		Requirements: []*domain.Requirement{{
			ID: reqID, Title: "Checkout", Status: domain.RequirementDraft,
			Gherkin: domain.Gherkin{Given: []string{"a cart"}, When: []string{"pay", "approve"}, Then: []string{"done"}},
		}},
		TestCases: []*domain.TestCase{{
			Name: "happy", Status: domain.TestPending, RequirementID: &reqID,
			Steps: []domain.TestStep{{Type: domain.StepAction, Description: "click pay"}},
		}},
		DataBags: []*domain.DataBag{{Name: "orders", Records: []map[string]any{{}, {}}, Schema: []domain.SchemaColumn{{Name: "id"}, {Name: "total"}}}},
	}
	prompt := BuildPrompt(snap, st)

	assert.True(t, strings.HasPrefix(prompt, "You are an expert software architect"))
	assert.Contains(t, prompt, "PROJECT: Shop\nDescription: online store\n")
	assert.Contains(t, prompt, "  - total (number) [required]: gross amount")
	assert.Contains(t, prompt, "Requirement: Checkout [draft]\nDescription: N/A\nScenario:\n    Given a cart\n    When pay\n    And approve\n    Then done")
	assert.Contains(t, prompt, "Test Case: happy [pending]\nLinked Requirement: Checkout\nSteps: action: click pay")
	assert.Contains(t, prompt, "=== TEST DATA BAGS ===\norders: 2 rows, columns: id, total")
	assert.True(t, strings.HasSuffix(prompt, "align the specification with the provided Gherkin requirements and domain models."))

	empty := BuildPrompt(ProjectSnapshot{}, st)
	assert.Contains(t, empty, "PROJECT: Untitled")
	assert.Contains(t, empty, "No domains defined")
	assert.Contains(t, empty, "No test cases defined")
	assert.NotContains(t, empty, "TEST DATA BAGS")
}

func TestDownloadName(t *testing.T) {
	s := &domain.GeneratedSpec{SpecType: "api", CreatedAt: 1769817600000} // 2026-01-31T00:00:00Z
	assert.Equal(t, "spec-api-2026-01-31.yaml", DownloadName(s))
	s.SpecType = "bdd"
	assert.Equal(t, "spec-bdd-2026-01-31.feature", DownloadName(s))
	s.SpecType = "legacy"
	assert.Equal(t, "spec-legacy-2026-01-31.md", DownloadName(s))
}
