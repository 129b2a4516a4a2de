// Package interfaces 汇总对外入口：HTTP API（含 /ws 与 /metrics）和 MCP 工具
package interfaces

import (
	"github.com/cocursor/ontosync/internal/interfaces/http"
	"github.com/cocursor/ontosync/internal/interfaces/mcp"
)

// HTTPServer 查询 API、订阅通道和指标端点所在的 HTTP 服务器
type HTTPServer = http.HTTPServer

// MCPServer 向智能体暴露本体查询工具的 MCP 服务器，SSE 端点挂载在 HTTPServer 上
type MCPServer = mcp.MCPServer
