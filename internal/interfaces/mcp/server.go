package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

// OntologyService MCP 工具依赖的查询接口
type OntologyService interface {
	SemanticSearch(ctx context.Context, text string, limit int) ([]domainOntology.SearchResult, error)
	QueryOntology(ctx context.Context, text string, limit int) ([]domainOntology.OntologyResult, error)
	GetStats(ctx context.Context) (*domainOntology.Stats, error)
	GetObject(ctx context.Context, path string) (*domainOntology.Object, error)
	Tail(ctx context.Context, since int64) ([]*domainOntology.ChangelogEntry, error)
	ValidateOntology(ctx context.Context) (*domainOntology.ValidationReport, error)
}

// MCPServer MCP 服务器
type MCPServer struct {
	server  *mcp.Server
	handler http.Handler
	service OntologyService
	logger  *slog.Logger
}

// NewServer 创建 MCP 服务器
func NewServer(service OntologyService) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "ontosync",
			Version: config.Version,
		},
		nil, // 使用默认能力
	)

	s := &MCPServer{
		server:  server,
		service: service,
		logger:  log.NewModuleLogger("mcp", "server"),
	}

	mcp.AddTool(server, &mcp.Tool{
		Name: "semantic_search",
		Description: `Search the workspace ontology by meaning. Returns files ranked by vector similarity.

Parameters:
- query (string, required): Natural language description of what you are looking for
- limit (int, optional): Maximum number of results, defaults to 10, max 100

Returns: results (path, type, score in [0,1], excerpt, metadata, version), count, and status ("ok" or "error").`,
	}, s.semanticSearchTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "query_ontology",
		Description: `Semantic search plus the direct relationships of every hit (IMPORTS, SIMILAR_TO, HAS_VERSION).
Use this when you need to know how matching files connect to the rest of the workspace.

Parameters:
- query (string, required): Natural language query
- limit (int, optional): Maximum number of objects, defaults to 10, max 100

Returns: results with object and relationships, count, and status.`,
	}, s.queryOntologyTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_object",
		Description: "Read a single ontology object by absolute path. Parameters: path (string, required). Returns: type, excerpt, metadata, content hash, version, and found flag.",
	}, s.getObjectTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_stats",
		Description: "Get ontology statistics: node count, relation count, cached objects, changelog length, and sync metrics. No parameters required.",
	}, s.getStatsTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_ontology",
		Description: "Check the ontology graph for import cycles and orphan nodes. No parameters required. Returns: cycles (sorted path lists), orphans, and checked node count.",
	}, s.validateOntologyTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_changelog",
		Description: "List changelog entries with version greater than since, in ascending version order. Parameters: since (int, optional) - defaults to 0. Returns: entries and latest version.",
	}, s.getChangelogTool)

	s.handler = mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			// 每个请求返回同一个服务器实例
			return server
		},
		nil, // SSEOptions，使用默认值
	)
	return s
}

// Server 底层 MCP 服务器，供进程内客户端测试使用
func (s *MCPServer) Server() *mcp.Server {
	return s.server
}

// GetHandler 获取 HTTP Handler（用于集成到 HTTP 服务器）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}

// Start MCP 服务器通过 HTTP Handler 提供服务，无需单独启动
func (s *MCPServer) Start() error {
	s.logger.Info("MCP server ready", "transport", "sse")
	return nil
}

// Stop 生命周期由 HTTP 服务器统一管理
func (s *MCPServer) Stop() error {
	return nil
}
