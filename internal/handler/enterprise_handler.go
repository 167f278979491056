package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stratflow-go/internal/service"
	"stratflow-go/pkg/log"
)

// EnterpriseHandler 负责租户的注册、列表和删除。
type EnterpriseHandler struct {
	enterpriseService service.EnterpriseService
}

// NewEnterpriseHandler 创建一个新的 EnterpriseHandler 实例。
func NewEnterpriseHandler(enterpriseService service.EnterpriseService) *EnterpriseHandler {
	return &EnterpriseHandler{enterpriseService: enterpriseService}
}

// CreateEnterpriseRequest 定义了注册租户 API 的请求体结构。
type CreateEnterpriseRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

// List 返回全部租户的公开信息，用于登录页选择租户。
func (h *EnterpriseHandler) List(c *gin.Context) {
	list, err := h.enterpriseService.List()
	if err != nil {
		respondError(c, "ListEnterprises", err)
		return
	}
	success(c, list)
}

// Create 注册新租户。
func (h *EnterpriseHandler) Create(c *gin.Context) {
	var req CreateEnterpriseRequest
	if !bindJSON(c, "CreateEnterprise", &req) {
		return
	}
	summary, err := h.enterpriseService.Create(req.Name, req.DisplayName, req.Password)
	if err != nil {
		respondError(c, "CreateEnterprise", err)
		return
	}
	log.Infof("Enterprise '%s' registered successfully", summary.Name)
	success(c, summary)
}

// Delete 删除租户及其全部数据。只能删除自己所属的租户。
func (h *EnterpriseHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	name := c.Param("name")
	if name != user.EntName {
		fail(c, http.StatusForbidden, "无权删除其他租户")
		return
	}
	if err := h.enterpriseService.Delete(c.Request.Context(), name); err != nil {
		respondError(c, "DeleteEnterprise", err)
		return
	}
	log.Infof("Enterprise '%s' deleted by '%s'", name, user.Username)
	success(c, nil)
}
