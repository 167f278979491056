package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stratflow-go/internal/service"
	"stratflow-go/pkg/log"
)

// UserHandler 负责处理租户内用户的维护。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile 获取当前登录用户的个人信息。
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	success(c, user)
}

// List 返回当前租户的全部用户。
func (h *UserHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	users, err := h.userService.List(user.EntName)
	if err != nil {
		respondError(c, "ListUsers", err)
		return
	}
	success(c, users)
}

// Save 新建或更新用户。
func (h *UserHandler) Save(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.UserInput
	if !bindJSON(c, "SaveUser", &req) {
		return
	}
	saved, err := h.userService.Save(actor, req)
	if err != nil {
		respondError(c, "SaveUser", err)
		return
	}
	success(c, saved)
}

// Delete 删除用户。
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.userService.Delete(actor, id); err != nil {
		respondError(c, "DeleteUser", err)
		return
	}
	log.Infof("User '%s' deleted by '%s'", id, actor.Username)
	success(c, nil)
}

// ResetPassword 重置用户口令，并把新口令返回给管理员转交。
func (h *UserHandler) ResetPassword(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	password, err := h.userService.ResetPassword(actor, c.Param("id"))
	if err != nil {
		respondError(c, "ResetPassword", err)
		return
	}
	success(c, gin.H{"password": password})
}

// ChangePasswordRequest 定义了修改口令 API 的请求体结构。
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// ChangePassword 修改当前用户的口令。
func (h *UserHandler) ChangePassword(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载：新旧密码不能为空")
		return
	}
	if err := h.userService.ChangePassword(actor, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, "ChangePassword", err)
		return
	}
	success(c, nil)
}
