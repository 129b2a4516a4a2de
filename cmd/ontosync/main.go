// @title ontosync Daemon API
// @version 1.0
// @description 工作区本体同步服务：语义检索、GraphRAG 查询与变更日志
// @host localhost:19970
// @BasePath /api/v1
// @schemes http
package main

func main() {
	Execute()
}
