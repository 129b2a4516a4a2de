package middleware

import (
	"bytes"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// maxDecodeBody 超过此大小的请求体不做编码检测
const maxDecodeBody = 1 << 20

// EnsureUTF8Body 将 GBK 编码的 JSON 请求体转换为 UTF-8
// Windows 终端下 curl 发送的中文查询默认是 GBK
func EnsureUTF8Body() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength <= 0 || c.Request.ContentLength > maxDecodeBody {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		c.Request.Body.Close()
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		if !utf8.Valid(body) {
			if decoded, err := decodeGBK(body); err == nil && utf8.Valid(decoded) {
				body = decoded
				c.Request.ContentLength = int64(len(body))
			}
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

func decodeGBK(data []byte) ([]byte, error) {
	return io.ReadAll(transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder()))
}
