package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
	"github.com/cocursor/ontosync/internal/interfaces/http/response"
)

// OntologyService 本体查询与同步操作
type OntologyService interface {
	SemanticSearch(ctx context.Context, text string, limit int) ([]domainOntology.SearchResult, error)
	QueryOntology(ctx context.Context, text string, limit int) ([]domainOntology.OntologyResult, error)
	GetStats(ctx context.Context) (*domainOntology.Stats, error)
	GetObject(ctx context.Context, path string) (*domainOntology.Object, error)
	Tail(ctx context.Context, since int64) ([]*domainOntology.ChangelogEntry, error)
	ValidateOntology(ctx context.Context) (*domainOntology.ValidationReport, error)
	BuildInitialOntology(ctx context.Context, roots []string) (*domainOntology.BuildReport, error)
	Resync(ctx context.Context, path string) (domainOntology.PathState, error)
}

// 查询结果状态
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// OntologyHandler 本体 HTTP 处理器
type OntologyHandler struct {
	service OntologyService
	logger  *slog.Logger
}

// NewOntologyHandler 创建本体处理器
func NewOntologyHandler(service OntologyService) *OntologyHandler {
	return &OntologyHandler{
		service: service,
		logger:  log.NewModuleLogger("http", "ontology"),
	}
}

// QueryRequest 检索请求
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResponse 语义检索响应
// 查询失败时 Results 为空，Status 为 error
type SearchResponse struct {
	Results []domainOntology.SearchResult `json:"results"`
	Count   int                           `json:"count"`
	Status  string                        `json:"status"`
	Error   string                        `json:"error,omitempty"`
}

// QueryResponse GraphRAG 查询响应
type QueryResponse struct {
	Results []domainOntology.OntologyResult `json:"results"`
	Count   int                             `json:"count"`
	Status  string                          `json:"status"`
	Error   string                          `json:"error,omitempty"`
}

// Search 语义检索
// @Summary 语义检索
// @Description 按向量相似度返回对象，分数在 [0,1] 之间
// @Tags 本体
// @Accept json
// @Produce json
// @Param body body QueryRequest true "检索请求"
// @Success 200 {object} response.Response{data=SearchResponse}
// @Failure 400 {object} response.ErrorResponse
// @Router /search [post]
func (h *OntologyHandler) Search(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	results, err := h.service.SemanticSearch(ctx, req.Query, req.Limit)
	resp := SearchResponse{Results: results, Status: StatusOK}
	if err != nil {
		log.FromContext(ctx, h.logger).Warn("Semantic search failed", "error", err)
		resp.Results = []domainOntology.SearchResult{}
		resp.Status = StatusError
		resp.Error = err.Error()
	}
	if resp.Results == nil {
		resp.Results = []domainOntology.SearchResult{}
	}
	resp.Count = len(resp.Results)
	response.Success(c, resp)
}

// Query GraphRAG 查询
// @Summary 本体查询
// @Description 语义检索后附带每个对象的直接关系
// @Tags 本体
// @Accept json
// @Produce json
// @Param body body QueryRequest true "查询请求"
// @Success 200 {object} response.Response{data=QueryResponse}
// @Failure 400 {object} response.ErrorResponse
// @Router /query [post]
func (h *OntologyHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	results, err := h.service.QueryOntology(ctx, req.Query, req.Limit)
	resp := QueryResponse{Results: results, Status: StatusOK}
	if err != nil {
		log.FromContext(ctx, h.logger).Warn("Ontology query failed", "error", err)
		resp.Results = []domainOntology.OntologyResult{}
		resp.Status = StatusError
		resp.Error = err.Error()
	}
	if resp.Results == nil {
		resp.Results = []domainOntology.OntologyResult{}
	}
	resp.Count = len(resp.Results)
	response.Success(c, resp)
}

// Stats 本体统计
// @Summary 本体统计
// @Tags 本体
// @Produce json
// @Success 200 {object} response.Response{data=domainOntology.Stats}
// @Failure 500 {object} response.ErrorResponse
// @Router /stats [get]
func (h *OntologyHandler) Stats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		response.ErrorWithDetail(c, http.StatusInternalServerError, response.CodeQueryFailed, "failed to load stats", err.Error())
		return
	}
	response.Success(c, stats)
}

// Validate 一致性检查
// @Summary 一致性检查
// @Description 检测导入环和孤立节点
// @Tags 本体
// @Produce json
// @Success 200 {object} response.Response{data=domainOntology.ValidationReport}
// @Failure 500 {object} response.ErrorResponse
// @Router /validate [get]
func (h *OntologyHandler) Validate(c *gin.Context) {
	report, err := h.service.ValidateOntology(c.Request.Context())
	if err != nil {
		response.ErrorWithDetail(c, http.StatusInternalServerError, response.CodeQueryFailed, "validation failed", err.Error())
		return
	}
	response.Success(c, report)
}

// GetObject 读取单个对象
// @Summary 读取对象
// @Tags 本体
// @Produce json
// @Param path path string true "对象绝对路径"
// @Success 200 {object} response.Response{data=domainOntology.Object}
// @Failure 404 {object} response.ErrorResponse
// @Router /objects/{path} [get]
func (h *OntologyHandler) GetObject(c *gin.Context) {
	path := c.Param("path")
	if path == "" || path == "/" {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, "path is required")
		return
	}

	obj, err := h.service.GetObject(c.Request.Context(), path)
	if err != nil {
		response.FromError(c, "failed to load object: "+path, err)
		return
	}
	response.Success(c, obj)
}

// Changelog 变更日志
// @Summary 变更日志
// @Description 返回版本号大于 since 的条目，按版本升序
// @Tags 本体
// @Produce json
// @Param since query int false "起始版本（不含）"
// @Success 200 {object} response.Response{data=[]domainOntology.ChangelogEntry}
// @Failure 400 {object} response.ErrorResponse
// @Router /changelog [get]
func (h *OntologyHandler) Changelog(c *gin.Context) {
	var since int64
	if raw := c.Query("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, "since must be a non-negative integer")
			return
		}
		since = v
	}

	entries, err := h.service.Tail(c.Request.Context(), since)
	if err != nil {
		response.ErrorWithDetail(c, http.StatusInternalServerError, response.CodeQueryFailed, "failed to read changelog", err.Error())
		return
	}
	if entries == nil {
		entries = []*domainOntology.ChangelogEntry{}
	}
	response.Success(c, entries)
}

// ResyncRequest 重新同步请求
// Path 为空时对 Roots（默认为配置的根目录）执行全量加载
type ResyncRequest struct {
	Path  string   `json:"path,omitempty"`
	Roots []string `json:"roots,omitempty"`
}

// ResyncPathResponse 单路径重新同步结果
type ResyncPathResponse struct {
	Path  string                   `json:"path"`
	State domainOntology.PathState `json:"state"`
}

// Resync 重新同步
// @Summary 重新同步
// @Description 重新摄取单个路径，或对根目录执行全量加载（失败对象的重试入口）
// @Tags 本体
// @Accept json
// @Produce json
// @Param body body ResyncRequest false "同步范围"
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse
// @Router /resync [post]
func (h *OntologyHandler) Resync(c *gin.Context) {
	var req ResyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, "invalid request: "+err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	if req.Path != "" {
		state, err := h.service.Resync(ctx, req.Path)
		if err != nil {
			response.FromError(c, "resync failed", err)
			return
		}
		response.Success(c, ResyncPathResponse{Path: req.Path, State: state})
		return
	}

	report, err := h.service.BuildInitialOntology(ctx, req.Roots)
	if err != nil {
		response.ErrorWithDetail(c, http.StatusInternalServerError, response.CodeInternal, "resync failed", err.Error())
		return
	}
	response.Success(c, report)
}
