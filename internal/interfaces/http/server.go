package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
	"github.com/cocursor/ontosync/internal/infrastructure/metrics"
	"github.com/cocursor/ontosync/internal/infrastructure/websocket"
	"github.com/cocursor/ontosync/internal/interfaces/http/handler"
	"github.com/cocursor/ontosync/internal/interfaces/http/middleware"
	"github.com/cocursor/ontosync/internal/interfaces/mcp"

	_ "github.com/cocursor/ontosync/docs" // Swagger docs
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
// hub、collector、mcpServer 为 nil 时不注册对应端点
func NewServer(
	serverCfg *config.ServerConfig,
	ontologyHandler *handler.OntologyHandler,
	hub *websocket.Hub,
	collector *metrics.Collector,
	mcpServer *mcp.MCPServer,
) *HTTPServer {
	logger := log.NewModuleLogger("http", "server")

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.EnsureUTF8Body())

	api := router.Group("/api/v1")
	{
		api.POST("/search", ontologyHandler.Search)
		api.POST("/query", ontologyHandler.Query)
		api.GET("/stats", ontologyHandler.Stats)
		api.GET("/validate", ontologyHandler.Validate)
		api.GET("/objects/*path", ontologyHandler.GetObject)
		api.GET("/changelog", ontologyHandler.Changelog)
		api.POST("/resync", ontologyHandler.Resync)
	}

	// 订阅者广播通道
	if hub != nil {
		router.GET("/ws", func(c *gin.Context) {
			hub.ServeWS(c.Writer, c.Request)
		})
	}

	if serverCfg.MetricsEnabled && collector != nil {
		router.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// MCP SSE 端点
	if serverCfg.MCPEnabled && mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return &HTTPServer{
		router:   router,
		httpPort: serverCfg.HTTPPort,
		logger:   logger,
	}
}

// Handler 返回路由，便于测试直接调用
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Addr 监听地址
func (s *HTTPServer) Addr() string {
	return s.httpPort
}

// Start 启动服务器，阻塞直到关闭
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:              s.httpPort,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
