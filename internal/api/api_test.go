package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartlink/internal/analyzer"
	"smartlink/internal/auth"
	"smartlink/internal/config"
	"smartlink/internal/domain"
	"smartlink/internal/enrichment"
	"smartlink/internal/scraper"
	"smartlink/internal/service"
	"smartlink/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type stubEnricher struct {
	result *enrichment.Result
	err    error
}

func (s *stubEnricher) Enrich(_ context.Context, _ string) (*enrichment.Result, error) {
	return s.result, s.err
}

type stubAnalyzer struct {
	analysis *domain.LinkAnalysis
	err      error
}

func (s *stubAnalyzer) Analyze(_ context.Context, _ string) (*domain.LinkAnalysis, error) {
	return s.analysis, s.err
}

const adminEmail = "admin@example.com"

type testServer struct {
	router   *gin.Engine
	repo     storage.Repository
	enricher *stubEnricher
	analyzer *stubAnalyzer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo, err := storage.NewInMemoryRepository(testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	enricher := &stubEnricher{}
	az := &stubAnalyzer{}
	categories := service.NewCategoryService(repo, testLogger())

	router := NewRouter(Deps{
		Auth:       auth.NewService(repo, categories, time.Hour, testLogger(), auth.WithAdminEmails(adminEmail)),
		Links:      service.NewLinkService(repo, enricher, categories, testLogger()),
		Categories: categories,
		Tags:       service.NewTagService(repo, testLogger()),
		Analyzer:   az,
	}, testLogger())

	return &testServer{router: router, repo: repo, enricher: enricher, analyzer: az}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signUp registers email and expects it to wait for approval.
func (s *testServer) signUp(t *testing.T, email string) *domain.User {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/auth/register", "", auth.RegisterInput{
		Email:    email,
		Name:     "Tester",
		Password: "Passw0rdOK",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp struct {
		Data auth.Result `json:"data"`
	}
	decode(t, w, &resp)
	require.Nil(t, resp.Data.Session)
	return resp.Data.User
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: "Passw0rdOK"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data auth.Result `json:"data"`
	}
	decode(t, w, &resp)
	require.NotNil(t, resp.Data.Session)
	return resp.Data.Session.Token
}

// register signs up an approved user and returns its session token.
func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()

	user := s.signUp(t, email)
	user.IsActive = true
	require.NoError(t, s.repo.UpdateUser(context.Background(), *user))
	return s.login(t, email)
}

// registerAdmin signs up the bootstrap admin, which is logged in at once.
func (s *testServer) registerAdmin(t *testing.T) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/auth/register", "", auth.RegisterInput{
		Email:    adminEmail,
		Name:     "Admin",
		Password: "Passw0rdOK",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data auth.Result `json:"data"`
	}
	decode(t, w, &resp)
	require.NotNil(t, resp.Data.Session)
	assert.Equal(t, domain.RoleAdmin, resp.Data.User.Role)
	return resp.Data.Session.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "flow@example.com")

	w := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Data domain.User `json:"data"`
	}
	decode(t, w, &me)
	assert.Equal(t, "flow@example.com", me.Data.Email)
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "flow@example.com", Password: "wrong-Passw0rd"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "flow@example.com", Password: "Passw0rdOK"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_Errors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "dup@example.com")

	w := s.do(t, http.MethodPost, "/api/auth/register", "", auth.RegisterInput{
		Email: "dup@example.com", Name: "Again", Password: "Passw0rdOK",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/register", "", auth.RegisterInput{
		Email: "weak@example.com", Name: "Weak", Password: "short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp errorResponse
	decode(t, w, &resp)
	assert.Equal(t, "validation_failed", resp.Error.Code)
	assert.Equal(t, "password", resp.Error.Field)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/links", "/api/categories", "/api/tags", "/api/auth/me"} {
		w := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := s.do(t, http.MethodGet, "/api/links", "not-a-session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateLink_EnrichmentFailureStillCreates(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "links@example.com")
	s.enricher.err = &scraper.FetchError{URL: "https://dead.example.com/x", Reason: "request failed"}

	w := s.do(t, http.MethodPost, "/api/links", token, gin.H{
		"url":    "https://dead.example.com/x",
		"enrich": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data          domain.Link `json:"data"`
		AnalysisError string      `json:"analysis_error"`
	}
	decode(t, w, &resp)
	assert.False(t, resp.Data.IsAnalyzed)
	assert.Equal(t, "dead.example.com", resp.Data.OriginalTitle)
	assert.Contains(t, resp.AnalysisError, "request failed")

	w = s.do(t, http.MethodPost, "/api/links", token, gin.H{
		"url":    "https://dead.example.com/x",
		"enrich": true,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateLink_WithEnrichment(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "rich@example.com")
	s.enricher.result = &enrichment.Result{
		Page: &domain.PageData{URL: "https://go.dev/blog", Title: "Go Blog", SiteName: "go.dev"},
		Analysis: &domain.LinkAnalysis{
			Title:              "Go 블로그",
			Summary:            "Go 소식",
			Keywords:           []string{"프로그래밍"},
			CategorySuggestion: "프로그래밍",
			ContentType:        domain.ContentTypeArticle,
		},
	}

	w := s.do(t, http.MethodPost, "/api/links", token, gin.H{"url": "https://go.dev/blog", "enrich": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), `"analysis_error"`)

	var resp struct {
		Data domain.Link `json:"data"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Data.IsAnalyzed)
	assert.Equal(t, "Go 블로그", resp.Data.AITitle)
	assert.NotEmpty(t, resp.Data.CategoryID)
}

func TestCreateLink_ManualValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "manual@example.com")

	w := s.do(t, http.MethodPost, "/api/links", token, gin.H{"url": "ftp://example.com", "custom_title": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp errorResponse
	decode(t, w, &resp)
	assert.Equal(t, "url", resp.Error.Field)
}

func TestLinkLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "life@example.com")

	var ids []string
	for _, u := range []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"} {
		w := s.do(t, http.MethodPost, "/api/links", token, gin.H{
			"url":          u,
			"custom_title": "Title " + u,
			"category":     "기술",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp struct {
			Data domain.Link `json:"data"`
		}
		decode(t, w, &resp)
		ids = append(ids, resp.Data.ID)
	}

	w := s.do(t, http.MethodPost, "/api/links/"+ids[0]+"/favorite", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/links?favorite=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page domain.LinkPage
	decode(t, w, &page)
	require.Len(t, page.Links, 1)
	assert.Equal(t, ids[0], page.Links[0].ID)

	w = s.do(t, http.MethodGet, "/api/links?page_size=2&page=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Links, 1)

	w = s.do(t, http.MethodGet, "/api/links?sort=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/links/"+ids[1], token, gin.H{"custom_memo": "메모"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/links/"+ids[1]+"/view", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var viewed struct {
		Data domain.Link `json:"data"`
	}
	decode(t, w, &viewed)
	assert.Equal(t, 1, viewed.Data.ViewCount)
	assert.Equal(t, "메모", viewed.Data.CustomMemo)

	w = s.do(t, http.MethodDelete, "/api/links/"+ids[2], token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/api/links/"+ids[2], token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLinksAreScopedToUser(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice@example.com")
	bob := s.register(t, "bob@example.com")

	w := s.do(t, http.MethodPost, "/api/links", alice, gin.H{
		"url":          "https://private.example.com",
		"custom_title": "mine",
		"category":     "기타",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data domain.Link `json:"data"`
	}
	decode(t, w, &resp)

	w = s.do(t, http.MethodGet, "/api/links/"+resp.Data.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTags(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "tags@example.com")

	w := s.do(t, http.MethodPost, "/api/links", token, gin.H{
		"url":          "https://tagged.example.com",
		"custom_title": "tagged",
		"category":     "기타",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var link struct {
		Data domain.Link `json:"data"`
	}
	decode(t, w, &link)

	w = s.do(t, http.MethodPost, "/api/tags", token, gin.H{"name": "Go"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tag struct {
		Data domain.Tag `json:"data"`
	}
	decode(t, w, &tag)

	w = s.do(t, http.MethodPost, "/api/tags", token, gin.H{"name": "go"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/links/"+link.Data.ID+"/tags", token, gin.H{"tag_id": tag.Data.ID})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/links?tag_ids="+tag.Data.ID, token, nil)
	var page domain.LinkPage
	decode(t, w, &page)
	assert.Len(t, page.Links, 1)

	w = s.do(t, http.MethodDelete, "/api/links/"+link.Data.ID+"/tags/"+tag.Data.ID, token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/links/"+link.Data.ID+"/tags", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestCategories(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "cats@example.com")

	w := s.do(t, http.MethodGet, "/api/categories", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []domain.Category `json:"data"`
	}
	decode(t, w, &list)
	require.Len(t, list.Data, 1, "registration seeds the system category")
	system := list.Data[0]
	assert.True(t, system.IsSystem)

	w = s.do(t, http.MethodDelete, "/api/categories/"+system.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/categories", token, gin.H{"name": "Reading", "color": "#112233"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data domain.Category `json:"data"`
	}
	decode(t, w, &created)
	assert.Equal(t, system.SortOrder+1, created.Data.SortOrder)

	w = s.do(t, http.MethodPost, "/api/categories", token, gin.H{"name": "Bad", "color": "red"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/categories/"+created.Data.ID, token, gin.H{"name": "Later"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/categories/reorder", token, gin.H{"orders": []service.CategoryOrder{
		{ID: created.Data.ID, SortOrder: 0},
		{ID: system.ID, SortOrder: 1},
	}})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/categories", token, nil)
	decode(t, w, &list)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "Later", list.Data[0].Name)

	w = s.do(t, http.MethodDelete, "/api/categories/"+created.Data.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing key", config.ErrMissingAPIKey, http.StatusServiceUnavailable, "configuration_error"},
		{"fetch failed", &scraper.FetchError{URL: "u", Reason: "timeout"}, http.StatusBadGateway, "fetch_failed"},
		{"bad output", &analyzer.AnalysisError{Kind: analyzer.NoJSONFound}, http.StatusBadGateway, "analysis_failed"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			token := s.register(t, "analyze@example.com")
			s.analyzer.err = tt.err

			w := s.do(t, http.MethodPost, "/api/analyze", token, AnalyzeRequest{URL: "https://example.com"})
			require.Equal(t, tt.status, w.Code)
			var resp errorResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestAnalyze_Success(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ok@example.com")
	s.analyzer.analysis = &domain.LinkAnalysis{Title: "T", CategorySuggestion: "뉴스", ContentType: domain.ContentTypeArticle}

	w := s.do(t, http.MethodPost, "/api/analyze", token, AnalyzeRequest{URL: "https://example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "뉴스")
}

func TestAdminApprovalFlow(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.registerAdmin(t)
	user := s.signUp(t, "pending@example.com")

	w := s.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "pending@example.com", Password: "Passw0rdOK"})
	require.Equal(t, http.StatusForbidden, w.Code)
	var resp errorResponse
	decode(t, w, &resp)
	assert.Equal(t, "pending_approval", resp.Error.Code)

	w = s.do(t, http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []domain.User `json:"data"`
	}
	decode(t, w, &list)
	require.Len(t, list.Data, 2)
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodPost, "/api/admin/users/"+user.ID+"/activate", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	userToken := s.login(t, "pending@example.com")

	w = s.do(t, http.MethodGet, "/api/admin/users", userToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "forbidden", resp.Error.Code)

	w = s.do(t, http.MethodPost, "/api/admin/users/"+user.ID+"/role", adminToken, gin.H{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/admin/users/"+user.ID+"/role", adminToken, gin.H{"role": domain.RoleAdmin})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, "/api/admin/users", userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code, "promoted users reach admin routes")

	w = s.do(t, http.MethodPost, "/api/admin/users/"+user.ID+"/deactivate", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/auth/me", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "suspension applies to open sessions")

	w = s.do(t, http.MethodDelete, "/api/admin/users/"+user.ID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodDelete, "/api/admin/users/"+user.ID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/api/auth/me", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminCannotChangeSelf(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.registerAdmin(t)

	w := s.do(t, http.MethodGet, "/api/auth/me", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Data domain.User `json:"data"`
	}
	decode(t, w, &me)

	w = s.do(t, http.MethodPost, "/api/admin/users/"+me.Data.ID+"/deactivate", adminToken, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	var resp errorResponse
	decode(t, w, &resp)
	assert.Equal(t, "self_change", resp.Error.Code)

	w = s.do(t, http.MethodGet, "/api/auth/me", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
