package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/observability/metrics"
	"github.com/karthickst/agenticosv2.0/internal/reliability/circuitbreaker"
)

// GenerateRequest is one streaming completion call.
type GenerateRequest struct {
	Model     string
	Prompt    string
	MaxTokens int64
	// APIKey overrides the generator's configured key when set.
	APIKey string
}

// Generator streams completion text. onDelta is called for every text chunk
// in order; the full text is returned once the stream ends.
type Generator interface {
	Stream(ctx context.Context, req GenerateRequest, onDelta func(string)) (string, error)
}

// SpecService assembles prompts from project content, runs the generator and
// saves the result.
type SpecService struct {
	domains      domain.DomainRepository
	requirements domain.RequirementRepository
	testCases    domain.TestCaseRepository
	dataBags     domain.DataBagRepository
	specs        domain.GeneratedSpecRepository
	generator    Generator
	breaker      *circuitbreaker.CircuitBreaker
	logger       *slog.Logger
}

// SpecRepositories groups the stores SpecService reads and writes.
type SpecRepositories struct {
	Domains      domain.DomainRepository
	Requirements domain.RequirementRepository
	TestCases    domain.TestCaseRepository
	DataBags     domain.DataBagRepository
	Specs        domain.GeneratedSpecRepository
}

// NewSpecService wires a spec service. generator may be nil, in which case
// Generate fails with domain.ErrGeneratorNotReady.
func NewSpecService(repos SpecRepositories, generator Generator, breaker *circuitbreaker.CircuitBreaker, logger *slog.Logger) *SpecService {
	if logger == nil {
		logger = slog.Default()
	}
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 3,
			OpenTimeout:      time.Minute,
			IsFailure:        countsAgainstGenerator,
		})
	}
	s := &SpecService{
		domains:      repos.Domains,
		requirements: repos.Requirements,
		testCases:    repos.TestCases,
		dataBags:     repos.DataBags,
		specs:        repos.Specs,
		generator:    generator,
		breaker:      breaker,
		logger:       logger,
	}
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		s.logger.Warn("generator circuit state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return s
}

func countsAgainstGenerator(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// GenerateInput is a generation request for one project.
type GenerateInput struct {
	ProjectID int64
	SpecType  string
	Model     string
	APIKey    string
}

// Snapshot loads the project content a prompt is built from.
func (s *SpecService) Snapshot(ctx context.Context, p *domain.Project) (ProjectSnapshot, error) {
	snap := ProjectSnapshot{Project: p}
	var err error
	if snap.Requirements, err = s.requirements.List(ctx, p.ID); err != nil {
		return snap, err
	}
	if snap.Domains, err = s.domains.List(ctx, p.ID); err != nil {
		return snap, err
	}
	if snap.TestCases, err = s.testCases.List(ctx, p.ID); err != nil {
		return snap, err
	}
	if snap.DataBags, err = s.dataBags.List(ctx, p.ID); err != nil {
		return snap, err
	}
	return snap, nil
}

// Generate builds the prompt, streams the completion through onDelta and
// stores the finished document. Nothing is stored when the stream fails.
func (s *SpecService) Generate(ctx context.Context, p *domain.Project, in GenerateInput, onDelta func(string)) (*domain.GeneratedSpec, error) {
	st, ok := LookupSpecType(in.SpecType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedSpecType, in.SpecType)
	}
	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = DefaultModel
	}
	if s.generator == nil {
		return nil, domain.ErrGeneratorNotReady
	}

	snap, err := s.Snapshot(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(snap.Requirements) == 0 {
		return nil, domain.ErrNoRequirements
	}
	prompt := BuildPrompt(snap, st)

	if onDelta == nil {
		onDelta = func(string) {}
	}

	start := time.Now()
	var content string
	err = s.breaker.Execute(func() error {
		var genErr error
		content, genErr = s.generator.Stream(ctx, GenerateRequest{
			Model:     model,
			Prompt:    prompt,
			MaxTokens: MaxTokens,
			APIKey:    in.APIKey,
		}, onDelta)
		return genErr
	})
	if err != nil {
		metrics.ObserveGeneration(st.ID, "error", time.Since(start))
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, domain.ErrGeneratorBusy
		}
		s.logger.Error("spec generation failed",
			slog.Int64("project_id", p.ID),
			slog.String("spec_type", st.ID),
			slog.String("model", model),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("generate %s spec: %w", st.ID, err)
	}
	metrics.ObserveGeneration(st.ID, "ok", time.Since(start))
	metrics.AddGeneratedChars(model, len(content))

	saved, err := s.specs.Create(ctx, domain.CreateGeneratedSpecInput{
		ProjectID: p.ID,
		Content:   content,
		Model:     model,
		SpecType:  st.ID,
		Prompt:    prompt,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("spec generated",
		slog.Int64("project_id", p.ID),
		slog.Int64("spec_id", saved.ID),
		slog.String("spec_type", st.ID),
		slog.Int("chars", len(content)),
		slog.Duration("duration", time.Since(start)),
	)
	return saved, nil
}

// List returns a project's saved specs, newest first.
func (s *SpecService) List(ctx context.Context, projectID int64) ([]*domain.GeneratedSpec, error) {
	return s.specs.List(ctx, projectID)
}

func (s *SpecService) Get(ctx context.Context, projectID, id int64) (*domain.GeneratedSpec, error) {
	return s.specs.Get(ctx, projectID, id)
}

func unixMilliUTC(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
