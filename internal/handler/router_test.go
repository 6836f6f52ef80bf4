package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthickst/agenticosv2.0/internal/events"
	"github.com/karthickst/agenticosv2.0/internal/repository"
	"github.com/karthickst/agenticosv2.0/internal/security/auth"
	"github.com/karthickst/agenticosv2.0/internal/security/middleware"
	"github.com/karthickst/agenticosv2.0/internal/service"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

type fakeGenerator struct {
	chunks []string
}

func (f *fakeGenerator) Stream(ctx context.Context, req service.GenerateRequest, onDelta func(string)) (string, error) {
	var b strings.Builder
	for _, c := range f.chunks {
		onDelta(c)
		b.WriteString(c)
	}
	return b.String(), nil
}

type testAPI struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.NewConnectionPool(ctx, &database.Config{URL: filepath.Join(t.TempDir(), "api.db")}, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Initialize(ctx, db))

	bus := events.NewBus(log)
	repos := Repositories{
		Projects:     repository.NewProjectRepository(db, bus, log),
		Domains:      repository.NewDomainRepository(db, bus, log),
		Requirements: repository.NewRequirementRepository(db, bus, log),
		TestCases:    repository.NewTestCaseRepository(db, bus, log),
		DataBags:     repository.NewDataBagRepository(db, bus, log),
		Board:        repository.NewBoardRepository(db, bus, log),
		Tracker:      repository.NewTrackerRepository(db, bus, log),
	}
	tokens := auth.NewTokenManager("test-secret", "agenticos", time.Hour)
	access := service.NewProjectAccess(repos.Projects, bus, time.Minute, log)
	t.Cleanup(access.Close)

	specs := service.NewSpecService(service.SpecRepositories{
		Domains:      repos.Domains,
		Requirements: repos.Requirements,
		TestCases:    repos.TestCases,
		DataBags:     repos.DataBags,
		Specs:        repository.NewGeneratedSpecRepository(db, bus, log),
	}, &fakeGenerator{chunks: []string{"# Functional Spec\n", "Body"}}, nil, log)

	mux := NewRouter(Dependencies{
		Repos:          repos,
		Auth:           service.NewAuthService(repository.NewUserRepository(db, bus, log), tokens, log),
		Specs:          specs,
		Access:         access,
		Bus:            bus,
		Checks:         map[string]Check{"database": db.Health, "redis": nil},
		SpecGeneration: true,
		Logger:         log,
	})
	srv := httptest.NewServer(middleware.JWTMiddleware(tokens, log)(mux))
	t.Cleanup(srv.Close)
	return &testAPI{t: t, srv: srv}
}

func (a *testAPI) do(method, path, token string, body any) *http.Response {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	a.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testAPI) decode(resp *http.Response, status int, v any) {
	a.t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	require.Equal(a.t, status, resp.StatusCode, string(raw))
	if v != nil {
		require.NoError(a.t, json.Unmarshal(raw, v))
	}
}

func (a *testAPI) signUp(email string) string {
	a.t.Helper()
	var sess struct {
		Token string `json:"token"`
	}
	a.decode(a.do("POST", "/api/auth/register", "", map[string]string{
		"email": email, "name": "Tester", "password": "Abc!123",
	}), http.StatusCreated, &sess)
	require.NotEmpty(a.t, sess.Token)
	return sess.Token
}

func (a *testAPI) newProject(token string) int64 {
	a.t.Helper()
	var p struct {
		ID int64 `json:"id"`
	}
	a.decode(a.do("POST", "/api/projects", token, map[string]string{"name": "Checkout"}), http.StatusCreated, &p)
	return p.ID
}

func (a *testAPI) addRequirement(token string, projectID int64, title string) int64 {
	a.t.Helper()
	var req struct {
		ID int64 `json:"id"`
	}
	a.decode(a.do("POST", fmt.Sprintf("/api/projects/%d/requirements", projectID), token, map[string]any{
		"title":   title,
		"gherkin": map[string][]string{"given": {"a cart"}, "when": {"I pay"}, "then": {"I get a receipt"}},
	}), http.StatusCreated, &req)
	return req.ID
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("Ana@Example.com")

	var me struct {
		Email string `json:"email"`
	}
	api.decode(api.do("GET", "/api/me", token, nil), http.StatusOK, &me)
	assert.Equal(t, "ana@example.com", me.Email)

	api.decode(api.do("POST", "/api/auth/register", "", map[string]string{
		"email": "ana@example.com", "name": "Again", "password": "Abc!123",
	}), http.StatusConflict, nil)

	api.decode(api.do("POST", "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "wrong",
	}), http.StatusUnauthorized, nil)

	api.decode(api.do("POST", "/api/auth/change-password", token, map[string]string{
		"oldPassword": "Abc!123", "newPassword": "Xyz#789",
	}), http.StatusOK, nil)
	api.decode(api.do("POST", "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "Xyz#789",
	}), http.StatusOK, nil)

	api.decode(api.do("GET", "/api/me", "", nil), http.StatusUnauthorized, nil)
}

func TestProjectsAreScopedToOwner(t *testing.T) {
	api := newTestAPI(t)
	owner := api.signUp("owner@example.com")
	other := api.signUp("other@example.com")

	pid := api.newProject(owner)
	api.addRequirement(owner, pid, "Pay by card")
	api.addRequirement(owner, pid, "Pay by invoice")

	var list []ProjectSummary
	api.decode(api.do("GET", "/api/projects", owner, nil), http.StatusOK, &list)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].RequirementCount)

	api.decode(api.do("GET", "/api/projects", other, nil), http.StatusOK, &list)
	assert.Empty(t, list)

	path := fmt.Sprintf("/api/projects/%d", pid)
	api.decode(api.do("GET", path, other, nil), http.StatusNotFound, nil)
	api.decode(api.do("GET", path+"/requirements", other, nil), http.StatusNotFound, nil)
	api.decode(api.do("DELETE", path, other, nil), http.StatusNotFound, nil)

	var updated struct {
		Name string `json:"name"`
	}
	api.decode(api.do("PUT", path, owner, map[string]string{"name": "Checkout v2"}), http.StatusOK, &updated)
	assert.Equal(t, "Checkout v2", updated.Name)

	api.decode(api.do("DELETE", path, owner, nil), http.StatusNoContent, nil)
	api.decode(api.do("GET", path+"/requirements", owner, nil), http.StatusNotFound, nil)
}

func TestCollectionValidation(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("v@example.com")
	pid := api.newProject(token)

	api.decode(api.do("POST", fmt.Sprintf("/api/projects/%d/requirements", pid), token, map[string]string{
		"title": "x", "status": "shipped",
	}), http.StatusBadRequest, nil)
	api.decode(api.do("GET", fmt.Sprintf("/api/projects/%d/domains/abc", pid), token, nil), http.StatusBadRequest, nil)
	api.decode(api.do("GET", fmt.Sprintf("/api/projects/%d/domains/999", pid), token, nil), http.StatusNotFound, nil)
}

func TestDataBagImportAndExport(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("d@example.com")
	pid := api.newProject(token)

	var bag struct {
		ID      int64            `json:"id"`
		Records []map[string]any `json:"records"`
	}
	api.decode(api.do("POST", fmt.Sprintf("/api/projects/%d/data-bags/import", pid), token, map[string]string{
		"name":    "cards",
		"content": "number,holder\n4111,\"Doe, J\"\n5500,Roe\n",
	}), http.StatusCreated, &bag)
	require.Len(t, bag.Records, 2)
	assert.Equal(t, "Doe, J", bag.Records[0]["holder"])

	resp := api.do("GET", fmt.Sprintf("/api/projects/%d/data-bags/%d/export", pid, bag.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="cards.csv"`)
	rows, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"number", "holder"}, {"4111", "Doe, J"}, {"5500", "Roe"}}, rows)

	api.decode(api.do("POST", fmt.Sprintf("/api/projects/%d/data-bags/import", pid), token, map[string]string{
		"name": "bad", "format": "xml", "content": "<a/>",
	}), http.StatusBadRequest, nil)
}

func TestBoardMove(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("b@example.com")
	pid := api.newProject(token)
	base := fmt.Sprintf("/api/projects/%d/board", pid)

	var item struct {
		ID       int64  `json:"id"`
		Swimlane string `json:"swimlane"`
		Position int    `json:"position"`
	}
	api.decode(api.do("POST", base, token, map[string]string{"title": "Wire payments"}), http.StatusCreated, &item)
	assert.Equal(t, "backlog", item.Swimlane)

	api.decode(api.do("POST", fmt.Sprintf("%s/%d/move", base, item.ID), token, map[string]string{"swimlane": "this_week"}), http.StatusOK, &item)
	assert.Equal(t, "this_week", item.Swimlane)
	assert.Equal(t, 0, item.Position)

	api.decode(api.do("POST", fmt.Sprintf("%s/%d/move", base, item.ID), token, map[string]string{"swimlane": "someday"}), http.StatusBadRequest, nil)
}

func TestGenerateStreamsAndSaves(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("g@example.com")
	pid := api.newProject(token)
	gen := fmt.Sprintf("/api/projects/%d/specs/generate", pid)

	api.decode(api.do("POST", gen, token, map[string]string{"specType": "functional"}), http.StatusBadRequest, nil)
	api.decode(api.do("POST", gen, token, map[string]string{"specType": "poem"}), http.StatusBadRequest, nil)

	api.addRequirement(token, pid, "Pay by card")
	resp := api.do("POST", gen, token, map[string]string{"specType": "bdd"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	var frames []StreamFrame
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		var f StreamFrame
		require.NoError(t, json.Unmarshal(sc.Bytes(), &f))
		frames = append(frames, f)
	}
	require.Len(t, frames, 3)
	assert.Equal(t, "delta", frames[0].Type)
	assert.Equal(t, "done", frames[2].Type)
	require.NotNil(t, frames[2].Spec)
	assert.Equal(t, "# Functional Spec\nBody", frames[2].Spec.Content)

	var saved []map[string]any
	api.decode(api.do("GET", fmt.Sprintf("/api/projects/%d/specs", pid), token, nil), http.StatusOK, &saved)
	require.Len(t, saved, 1)

	dl := api.do("GET", fmt.Sprintf("/api/projects/%d/specs/%d/download", pid, frames[2].Spec.ID), token, nil)
	require.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Contains(t, dl.Header.Get("Content-Disposition"), ".feature")
}

func TestFlowAndAutocomplete(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("f@example.com")
	pid := api.newProject(token)
	api.addRequirement(token, pid, "Pay by card")
	api.decode(api.do("POST", fmt.Sprintf("/api/projects/%d/domains", pid), token, map[string]any{
		"name":       "Order",
		"attributes": []map[string]any{{"name": "total", "type": "number"}, {"name": "status", "type": "string"}},
	}), http.StatusCreated, nil)

	var graph service.FlowGraph
	api.decode(api.do("GET", fmt.Sprintf("/api/projects/%d/flow", pid), token, nil), http.StatusOK, &graph)
	assert.Len(t, graph.Nodes, 3)

	var ac AutocompleteResponse
	api.decode(api.do("GET", fmt.Sprintf("/api/projects/%d/autocomplete?text=%s", pid, "the+%40Order.to"), token, nil), http.StatusOK, &ac)
	require.Len(t, ac.Suggestions, 1)
	assert.Equal(t, "Order.total", ac.Suggestions[0].Ref)
	assert.Equal(t, []string{"Order.to"}, ac.References)
}

func TestReadiness(t *testing.T) {
	api := newTestAPI(t)
	var ready ReadinessResponse
	api.decode(api.do("GET", "/readyz", "", nil), http.StatusOK, &ready)
	assert.Equal(t, "ok", ready.Checks["database"])
	assert.Equal(t, "not configured", ready.Checks["redis"])

	var catalog CatalogResponse
	api.decode(api.do("GET", "/api/catalog", "", nil), http.StatusOK, &catalog)
	assert.Len(t, catalog.SpecTypes, 6)
}

func TestLiveQueryPushesChanges(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("l@example.com")
	pid := api.newProject(token)

	url := "ws" + strings.TrimPrefix(api.srv.URL, "http") +
		fmt.Sprintf("/ws/projects/%d/live?collection=domains&token=%s", pid, token)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	read := func() LiveFrame {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
		var f LiveFrame
		require.NoError(t, ws.ReadJSON(&f))
		return f
	}

	first := read()
	assert.Equal(t, "domains", first.Collection)
	assert.Empty(t, first.Data)

	api.decode(api.do("POST", fmt.Sprintf("/api/projects/%d/domains", pid), token, map[string]any{"name": "Customer"}), http.StatusCreated, nil)

	for {
		f := read()
		if items, ok := f.Data.([]any); ok && len(items) == 1 {
			assert.Equal(t, "Customer", items[0].(map[string]any)["name"])
			return
		}
	}
}

func TestLiveQueryRejectsUnknownCollection(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("u@example.com")
	pid := api.newProject(token)

	req, _ := http.NewRequest("GET", fmt.Sprintf("%s/ws/projects/%d/live?collection=secrets", api.srv.URL, pid), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := api.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
