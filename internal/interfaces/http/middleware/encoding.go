package middleware

import (
	"bytes"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// EnsureUTF8Body 确保请求体是 UTF-8 编码的中间件
// Windows 中文环境下的客户端可能以 GBK 发送案件名、查询文本等中文内容
// 检测到非 UTF-8 请求体时尝试按 GBK 转码后再交给后续 handler
func EnsureUTF8Body() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}
		c.Request.Body.Close()

		if len(bodyBytes) == 0 || utf8.Valid(bodyBytes) {
			c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			c.Next()
			return
		}

		// Windows 中文系统默认代码页 936（GBK）
		converted, err := convertGBKToUTF8(bodyBytes)
		if err != nil || !utf8.Valid(converted) {
			// 转码失败保留原始数据，让 handler 自己报参数错误
			c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			c.Next()
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(converted))
		c.Request.ContentLength = int64(len(converted))
		c.Request.Header.Set("Content-Length", strconv.Itoa(len(converted)))
		c.Next()
	}
}

// convertGBKToUTF8 GBK 转 UTF-8
func convertGBKToUTF8(data []byte) ([]byte, error) {
	reader := transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder())
	return io.ReadAll(reader)
}
