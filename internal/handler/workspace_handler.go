package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stratflow-go/internal/model"
	"stratflow-go/internal/service"
)

// WorkspaceHandler 负责整个工作空间的读取、保存与导出。
type WorkspaceHandler struct {
	workspaceService service.WorkspaceService
}

// NewWorkspaceHandler 创建一个新的 WorkspaceHandler 实例。
func NewWorkspaceHandler(workspaceService service.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService}
}

func (h *WorkspaceHandler) Load(c *gin.Context) {
	state, err := h.workspaceService.Load(c.Request.Context(), c.Param("entId"))
	if err != nil {
		respondError(c, "LoadWorkspace", err)
		return
	}
	success(c, state)
}

// Save 并发保存各资源，响应中带每个资源的结果。
// 任一资源失败时返回 500，已成功的资源不会回滚。
func (h *WorkspaceHandler) Save(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	var state model.AppState
	if !bindJSON(c, "SaveWorkspace", &state) {
		return
	}
	report := h.workspaceService.Save(c.Request.Context(), actor, state)
	if err := report.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error(), "data": report})
		return
	}
	success(c, report)
}

func (h *WorkspaceHandler) Export(c *gin.Context) {
	res, err := h.workspaceService.Export(c.Request.Context(), c.Param("entId"))
	if err != nil {
		respondError(c, "ExportWorkspace", err)
		return
	}
	success(c, res)
}
