// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stratflow-go/pkg/log"
	"stratflow-go/pkg/metrics"
)

// maxLoggedBody 限制日志中请求体的长度，工作空间整体保存的载荷可能很大。
const maxLoggedBody = 2048

// RequestLogger 是一个 Gin 中间件，用于记录请求日志。
// 认证相关路由（/auth、/enterprises）不记录请求体，避免口令进入日志。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path

		var requestBody []byte
		if c.Request.Body != nil && !sensitive(path) && !isMultipart(c) {
			requestBody, _ = io.ReadAll(c.Request.Body)
			// 将读取的请求体重新设置回去，以便后续处理函数可以正常读取
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		c.Next()

		body := string(requestBody)
		if len(body) > maxLoggedBody {
			body = body[:maxLoggedBody] + "...(truncated)"
		}
		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"requestBody", body,
		)
	}
}

func sensitive(path string) bool {
	return strings.Contains(path, "/auth/") || strings.Contains(path, "/enterprises") ||
		strings.Contains(path, "/password")
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// Metrics 记录每个请求的次数和耗时，路径使用路由模板以控制标签基数。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
