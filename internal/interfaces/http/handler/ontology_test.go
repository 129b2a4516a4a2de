package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
)

// MockOntologyService 模拟 OntologyService
type MockOntologyService struct {
	mock.Mock
}

func (m *MockOntologyService) SemanticSearch(ctx context.Context, text string, limit int) ([]domainOntology.SearchResult, error) {
	args := m.Called(ctx, text, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainOntology.SearchResult), args.Error(1)
}

func (m *MockOntologyService) QueryOntology(ctx context.Context, text string, limit int) ([]domainOntology.OntologyResult, error) {
	args := m.Called(ctx, text, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainOntology.OntologyResult), args.Error(1)
}

func (m *MockOntologyService) GetStats(ctx context.Context) (*domainOntology.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainOntology.Stats), args.Error(1)
}

func (m *MockOntologyService) GetObject(ctx context.Context, path string) (*domainOntology.Object, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainOntology.Object), args.Error(1)
}

func (m *MockOntologyService) Tail(ctx context.Context, since int64) ([]*domainOntology.ChangelogEntry, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domainOntology.ChangelogEntry), args.Error(1)
}

func (m *MockOntologyService) ValidateOntology(ctx context.Context) (*domainOntology.ValidationReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainOntology.ValidationReport), args.Error(1)
}

func (m *MockOntologyService) BuildInitialOntology(ctx context.Context, roots []string) (*domainOntology.BuildReport, error) {
	args := m.Called(ctx, roots)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainOntology.BuildReport), args.Error(1)
}

func (m *MockOntologyService) Resync(ctx context.Context, path string) (domainOntology.PathState, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(domainOntology.PathState), args.Error(1)
}

func newTestRouter(h *OntologyHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/search", h.Search)
	api.POST("/query", h.Query)
	api.GET("/stats", h.Stats)
	api.GET("/validate", h.Validate)
	api.GET("/objects/*path", h.GetObject)
	api.GET("/changelog", h.Changelog)
	api.POST("/resync", h.Resync)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, target, body string) (int, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), "响应应该是有效的 JSON")
	return w.Code, decoded
}

func TestOntologyHandler_Search(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setup          func(m *MockOntologyService)
		expectedStatus int
		validateFunc   func(t *testing.T, body map[string]interface{})
	}{
		{
			name: "正常检索",
			body: `{"query":"goroutines","limit":2}`,
			setup: func(m *MockOntologyService) {
				m.On("SemanticSearch", mock.Anything, "goroutines", 2).Return([]domainOntology.SearchResult{
					{Path: "/w/a.md", Score: 0.9, Type: domainOntology.DocumentType("Markdown"), Version: 3},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			validateFunc: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].(map[string]interface{})
				assert.Equal(t, StatusOK, data["status"])
				assert.Equal(t, 1, int(data["count"].(float64)))
				first := data["results"].([]interface{})[0].(map[string]interface{})
				assert.Equal(t, "/w/a.md", first["path"])
				assert.Equal(t, "Document:Markdown", first["type"])
			},
		},
		{
			name: "查询失败返回空结果和错误状态",
			body: `{"query":"anything"}`,
			setup: func(m *MockOntologyService) {
				m.On("SemanticSearch", mock.Anything, "anything", 0).
					Return([]domainOntology.SearchResult{}, domainOntology.ErrQueryFailed)
			},
			expectedStatus: http.StatusOK,
			validateFunc: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].(map[string]interface{})
				assert.Equal(t, StatusError, data["status"])
				assert.Empty(t, data["results"])
				assert.Contains(t, data["error"], "query failed")
			},
		},
		{
			name:           "缺少 query",
			body:           `{"limit":3}`,
			setup:          func(m *MockOntologyService) {},
			expectedStatus: http.StatusBadRequest,
			validateFunc: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, 40001, int(body["code"].(float64)))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOntologyService)
			tt.setup(svc)
			router := newTestRouter(NewOntologyHandler(svc))

			status, body := doRequest(t, router, http.MethodPost, "/api/v1/search", tt.body)
			assert.Equal(t, tt.expectedStatus, status)
			tt.validateFunc(t, body)
			svc.AssertExpectations(t)
		})
	}
}

func TestOntologyHandler_Query(t *testing.T) {
	svc := new(MockOntologyService)
	svc.On("QueryOntology", mock.Anything, "imports", 5).Return([]domainOntology.OntologyResult{
		{
			Object: domainOntology.SearchResult{Path: "/w/a.ts", Score: 0.8},
			Relationships: []domainOntology.Neighbor{
				{Relation: domainOntology.RelImports, Target: "/w/b.ts", Direction: domainOntology.DirectionOut},
			},
		},
	}, nil)
	router := newTestRouter(NewOntologyHandler(svc))

	status, body := doRequest(t, router, http.MethodPost, "/api/v1/query", `{"query":"imports","limit":5}`)
	assert.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]interface{})
	results := data["results"].([]interface{})
	require.Len(t, results, 1)
	rels := results[0].(map[string]interface{})["relationships"].([]interface{})
	assert.Equal(t, "IMPORTS", rels[0].(map[string]interface{})["relation"])
}

func TestOntologyHandler_Stats(t *testing.T) {
	svc := new(MockOntologyService)
	svc.On("GetStats", mock.Anything).Return(&domainOntology.Stats{NodeCount: 2, RelationCount: 1}, nil)
	router := newTestRouter(NewOntologyHandler(svc))

	status, body := doRequest(t, router, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, 2, int(data["node_count"].(float64)))
	assert.Equal(t, 1, int(data["relation_count"].(float64)))
}

func TestOntologyHandler_GetObject(t *testing.T) {
	svc := new(MockOntologyService)
	svc.On("GetObject", mock.Anything, "/w/src/a.go").Return(&domainOntology.Object{
		Path: "/w/src/a.go",
		Type: domainOntology.CodeType("go"),
	}, nil)
	svc.On("GetObject", mock.Anything, "/w/missing.go").Return(nil, domainOntology.ErrNotFound)
	router := newTestRouter(NewOntologyHandler(svc))

	status, body := doRequest(t, router, http.MethodGet, "/api/v1/objects/w/src/a.go", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Code:go", body["data"].(map[string]interface{})["type"])

	status, body = doRequest(t, router, http.MethodGet, "/api/v1/objects/w/missing.go", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40401, int(body["code"].(float64)))
}

func TestOntologyHandler_Changelog(t *testing.T) {
	svc := new(MockOntologyService)
	svc.On("Tail", mock.Anything, int64(4)).Return([]*domainOntology.ChangelogEntry{
		{Version: 5, Event: domainOntology.EventAdd, Path: "/w/a.go"},
	}, nil)
	svc.On("Tail", mock.Anything, int64(0)).Return(nil, nil)
	router := newTestRouter(NewOntologyHandler(svc))

	status, body := doRequest(t, router, http.MethodGet, "/api/v1/changelog?since=4", "")
	assert.Equal(t, http.StatusOK, status)
	entries := body["data"].([]interface{})
	require.Len(t, entries, 1)
	assert.Equal(t, 5, int(entries[0].(map[string]interface{})["version"].(float64)))

	status, body = doRequest(t, router, http.MethodGet, "/api/v1/changelog", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["data"])

	status, _ = doRequest(t, router, http.MethodGet, "/api/v1/changelog?since=abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOntologyHandler_Validate(t *testing.T) {
	svc := new(MockOntologyService)
	svc.On("ValidateOntology", mock.Anything).Return(nil, errors.New("graph closed"))
	router := newTestRouter(NewOntologyHandler(svc))

	status, body := doRequest(t, router, http.MethodGet, "/api/v1/validate", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "graph closed", body["detail"])
}

func TestOntologyHandler_Resync(t *testing.T) {
	svc := new(MockOntologyService)
	svc.On("Resync", mock.Anything, "/w/a.go").Return(domainOntology.StateLive, nil)
	svc.On("BuildInitialOntology", mock.Anything, []string(nil)).Return(&domainOntology.BuildReport{Files: 3, Live: 3}, nil)
	router := newTestRouter(NewOntologyHandler(svc))

	status, body := doRequest(t, router, http.MethodPost, "/api/v1/resync", `{"path":"/w/a.go"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "live", body["data"].(map[string]interface{})["state"])

	status, body = doRequest(t, router, http.MethodPost, "/api/v1/resync", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, int(body["data"].(map[string]interface{})["live"].(float64)))
	svc.AssertExpectations(t)
}
