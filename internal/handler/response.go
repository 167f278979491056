// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stratflow-go/internal/graph"
	"stratflow-go/internal/model"
	"stratflow-go/internal/orgtree"
	"stratflow-go/internal/service"
	"stratflow-go/pkg/log"
)

// success 返回统一的成功响应。
func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

// fail 返回统一的失败响应。
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message, "data": nil})
}

// statusOf 把业务错误映射为 HTTP 状态码。
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, graph.ErrSelfLink),
		errors.Is(err, graph.ErrCrossLevelLink),
		errors.Is(err, graph.ErrInvalidField),
		errors.Is(err, graph.ErrInvalidNodeType),
		errors.Is(err, graph.ErrEmptyVersion),
		errors.Is(err, orgtree.ErrEmptyName),
		errors.Is(err, orgtree.ErrEmptyRole),
		errors.Is(err, orgtree.ErrInvalidQuarter),
		errors.Is(err, orgtree.ErrInvalidWeek):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, graph.ErrNodeNotFound),
		errors.Is(err, graph.ErrPathNotFound),
		errors.Is(err, graph.ErrHistoryNotFound),
		errors.Is(err, orgtree.ErrDepartmentNotFound),
		errors.Is(err, orgtree.ErrOKRNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEnterpriseExists),
		errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAIUnavailable),
		errors.Is(err, service.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError 按错误类型返回响应，500 时原样带上错误信息。
func respondError(c *gin.Context, op string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("%s: %v", op, err)
	} else {
		log.Warnf("%s: %v", op, err)
	}
	fail(c, status, err.Error())
}

// currentUser 取出 AuthMiddleware 注入的用户。
func currentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		fail(c, http.StatusUnauthorized, "未认证用户或无法获取用户信息")
		return nil, false
	}
	user, ok := v.(*model.User)
	if !ok || user == nil {
		fail(c, http.StatusInternalServerError, "用户数据类型错误")
		return nil, false
	}
	return user, true
}

// levelPath 解析 ?path=id1,id2 形式的层级游标，缺省为根层级。
func levelPath(c *gin.Context) []string {
	raw := strings.TrimSpace(c.Query("path"))
	if raw == "" {
		return nil
	}
	var path []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			path = append(path, id)
		}
	}
	return path
}

// bindJSON 绑定请求体，失败时直接返回 400。
func bindJSON(c *gin.Context, op string, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		log.Warnf("%s: Invalid request payload, error: %v", op, err)
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return false
	}
	return true
}
