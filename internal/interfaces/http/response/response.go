package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
)

// 业务错误码
const (
	CodeOK            = 0
	CodeInvalidParams = 40001
	CodeNotFound      = 40401
	CodeQueryFailed   = 50001
	CodeInternal      = 50002
	CodeUnavailable   = 50301
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeOK,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, message string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    errCode,
		Message: message,
	})
}

// ErrorWithDetail 带详情的错误响应
func ErrorWithDetail(c *gin.Context, httpCode int, errCode int, message, detail string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    errCode,
		Message: message,
		Detail:  detail,
	})
}

// FromError 按领域错误选择状态码与业务码
// ErrNotFound 映射为 404，ErrQueryFailed 映射为 500/50001，其余为 500/50002
func FromError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, domainOntology.ErrNotFound):
		ErrorWithDetail(c, http.StatusNotFound, CodeNotFound, message, err.Error())
	case errors.Is(err, domainOntology.ErrQueryFailed):
		ErrorWithDetail(c, http.StatusInternalServerError, CodeQueryFailed, message, err.Error())
	default:
		ErrorWithDetail(c, http.StatusInternalServerError, CodeInternal, message, err.Error())
	}
}
