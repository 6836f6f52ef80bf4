package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/live"
	"github.com/karthickst/agenticosv2.0/internal/security/audit"
	"github.com/karthickst/agenticosv2.0/internal/service"
)

// Repositories are the stores the API reads and writes.
type Repositories struct {
	Projects     domain.ProjectRepository
	Domains      domain.DomainRepository
	Requirements domain.RequirementRepository
	TestCases    domain.TestCaseRepository
	DataBags     domain.DataBagRepository
	Board        domain.BoardRepository
	Tracker      domain.TrackerRepository
}

// Dependencies is everything NewRouter wires into handlers.
type Dependencies struct {
	Repos          Repositories
	Auth           *service.AuthService
	Specs          *service.SpecService
	Access         Authorizer
	Bus            live.Subscriber
	Audit          *audit.Logger
	Checks         map[string]Check
	AllowedOrigins []string
	DefaultModel   string
	// SpecGeneration registers the generate route when true.
	SpecGeneration bool
	Logger         *slog.Logger
}

// NewRouter registers every route on a new ServeMux. Authentication and the
// rest of the middleware chain are applied by the caller.
func NewRouter(d Dependencies) *http.ServeMux {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	sc := scope{access: d.Access, logger: log}
	repos := d.Repos
	mux := http.NewServeMux()

	health := NewHealthHandler(d.Checks, log)
	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("GET /readyz", health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /api/catalog", NewCatalogHandler(d.DefaultModel))

	authH := NewAuthHandler(d.Auth, d.Audit, log)
	mux.HandleFunc("POST /api/auth/register", authH.Register)
	mux.HandleFunc("POST /api/auth/login", authH.Login)
	mux.HandleFunc("POST /api/auth/change-password", authH.ChangePassword)
	mux.HandleFunc("GET /api/me", authH.Me)

	projects := NewProjectHandler(repos.Projects, log)
	mux.HandleFunc("GET /api/projects", projects.List)
	mux.HandleFunc("POST /api/projects", projects.Create)
	mux.HandleFunc("GET /api/projects/{id}", projects.Get)
	mux.HandleFunc("PUT /api/projects/{id}", projects.Update)
	mux.HandleFunc("DELETE /api/projects/{id}", projects.Delete)

	collection[domain.Domain, domain.CreateDomainInput, domain.UpdateDomainInput]{
		scope: sc, name: "domains",
		list: repos.Domains.List, get: repos.Domains.Get,
		create: func(ctx context.Context, pid int64, in domain.CreateDomainInput) (*domain.Domain, error) {
			in.ProjectID = pid
			return repos.Domains.Create(ctx, in)
		},
		update: repos.Domains.Update, remove: repos.Domains.Delete,
	}.register(mux)

	collection[domain.Requirement, domain.CreateRequirementInput, domain.UpdateRequirementInput]{
		scope: sc, name: "requirements",
		list: repos.Requirements.List, get: repos.Requirements.Get,
		create: func(ctx context.Context, pid int64, in domain.CreateRequirementInput) (*domain.Requirement, error) {
			in.ProjectID = pid
			return repos.Requirements.Create(ctx, in)
		},
		update: repos.Requirements.Update, remove: repos.Requirements.Delete,
	}.register(mux)

	collection[domain.TestCase, domain.CreateTestCaseInput, domain.UpdateTestCaseInput]{
		scope: sc, name: "test-cases",
		list: repos.TestCases.List, get: repos.TestCases.Get,
		create: func(ctx context.Context, pid int64, in domain.CreateTestCaseInput) (*domain.TestCase, error) {
			in.ProjectID = pid
			return repos.TestCases.Create(ctx, in)
		},
		update: repos.TestCases.Update, remove: repos.TestCases.Delete,
	}.register(mux)

	collection[domain.DataBag, domain.CreateDataBagInput, domain.UpdateDataBagInput]{
		scope: sc, name: "data-bags",
		list: repos.DataBags.List, get: repos.DataBags.Get,
		create: func(ctx context.Context, pid int64, in domain.CreateDataBagInput) (*domain.DataBag, error) {
			in.ProjectID = pid
			return repos.DataBags.Create(ctx, in)
		},
		update: repos.DataBags.Update, remove: repos.DataBags.Delete,
	}.register(mux)
	bags := NewDataBagHandler(repos.DataBags, d.Access, log)
	mux.HandleFunc("POST /api/projects/{id}/data-bags/import", bags.Import)
	mux.HandleFunc("GET /api/projects/{id}/data-bags/{itemID}/export", bags.Export)

	board := collection[domain.BoardItem, domain.CreateBoardItemInput, domain.UpdateBoardItemInput]{
		scope: sc, name: "board",
		list: repos.Board.List, get: repos.Board.Get,
		create: func(ctx context.Context, pid int64, in domain.CreateBoardItemInput) (*domain.BoardItem, error) {
			in.ProjectID = pid
			return repos.Board.Create(ctx, in)
		},
		update: repos.Board.Update, remove: repos.Board.Delete,
	}
	board.register(mux)
	move := collection[domain.BoardItem, struct{}, domain.MoveBoardItemInput]{
		scope: sc, name: "board", get: repos.Board.Get, update: repos.Board.Move,
	}
	mux.HandleFunc("POST /api/projects/{id}/board/{itemID}/move", move.Update)

	collection[domain.TrackerItem, domain.CreateTrackerItemInput, domain.UpdateTrackerItemInput]{
		scope: sc, name: "tracker",
		list: repos.Tracker.List, get: repos.Tracker.Get,
		create: func(ctx context.Context, pid int64, in domain.CreateTrackerItemInput) (*domain.TrackerItem, error) {
			in.ProjectID = pid
			return repos.Tracker.Create(ctx, in)
		},
		update: repos.Tracker.Update, remove: repos.Tracker.Delete,
	}.register(mux)

	specs := NewSpecHandler(d.Specs, d.Access, log)
	mux.HandleFunc("GET /api/projects/{id}/specs", specs.List)
	mux.HandleFunc("GET /api/projects/{id}/specs/{itemID}", specs.Get)
	mux.HandleFunc("GET /api/projects/{id}/specs/{itemID}/download", specs.Download)
	if d.SpecGeneration {
		mux.HandleFunc("POST /api/projects/{id}/specs/generate", specs.Generate)
	}

	tools := NewToolsHandler(repos.Domains, repos.Requirements, repos.TestCases, d.Access, log)
	mux.HandleFunc("GET /api/projects/{id}/flow", tools.Flow)
	mux.HandleFunc("GET /api/projects/{id}/autocomplete", tools.Autocomplete)

	mux.Handle("GET /ws/projects/{id}/live", NewLiveHandler(d.Bus, liveSources(repos, d.Specs), d.Access, d.AllowedOrigins, log))

	return mux
}

func liveSource[T any](list func(ctx context.Context, projectID int64) ([]*T, error)) LiveSource {
	return func(ctx context.Context, projectID int64) (any, error) {
		items, err := list(ctx, projectID)
		if items == nil {
			items = []*T{}
		}
		return items, err
	}
}

func liveSources(repos Repositories, specs *service.SpecService) map[string]LiveSource {
	return map[string]LiveSource{
		"domains":      liveSource(repos.Domains.List),
		"requirements": liveSource(repos.Requirements.List),
		"test-cases":   liveSource(repos.TestCases.List),
		"data-bags":    liveSource(repos.DataBags.List),
		"board":        liveSource(repos.Board.List),
		"tracker":      liveSource(repos.Tracker.List),
		"specs":        liveSource(specs.List),
		"flow": func(ctx context.Context, projectID int64) (any, error) {
			reqs, err := repos.Requirements.List(ctx, projectID)
			if err != nil {
				return nil, err
			}
			cases, err := repos.TestCases.List(ctx, projectID)
			if err != nil {
				return nil, err
			}
			domains, err := repos.Domains.List(ctx, projectID)
			if err != nil {
				return nil, err
			}
			return service.BuildFlow(reqs, cases, domains), nil
		},
	}
}
