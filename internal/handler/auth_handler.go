package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stratflow-go/internal/service"
	"stratflow-go/pkg/log"
)

// AuthHandler 负责处理认证相关的 API 请求：登录、刷新 token 和登出。
type AuthHandler struct {
	userService service.UserService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(userService service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// LoginRequest 定义了登录 API 的请求体结构。
type LoginRequest struct {
	EntID    string `json:"entId" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理租户内的用户登录请求。
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载：企业、用户名和密码不能为空")
		return
	}

	res, err := h.userService.Login(req.EntID, req.Username, req.Password)
	if err != nil {
		log.Warnf("Login: User authentication failed for '%s@%s', error: %v", req.Username, req.EntID, err)
		if statusOf(err) == http.StatusUnauthorized {
			fail(c, http.StatusUnauthorized, "无效的凭证")
			return
		}
		respondError(c, "Login", err)
		return
	}

	log.Infof("User '%s@%s' logged in successfully", req.Username, req.EntID)
	success(c, res)
}

// RefreshTokenRequest 定义了刷新 token API 的请求体结构。
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken 处理刷新 token 的请求。
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("RefreshToken: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载：refreshToken 不能为空")
		return
	}

	newAccessToken, newRefreshToken, err := h.userService.RefreshToken(req.RefreshToken)
	if err != nil {
		log.Warnf("RefreshToken: Failed to refresh token, error: %v", err)
		fail(c, http.StatusUnauthorized, "无效的 refresh token")
		return
	}

	log.Info("Token refreshed successfully")
	success(c, gin.H{
		"token":        newAccessToken,
		"refreshToken": newRefreshToken,
	})
}

// Logout 把当前 access token 加入黑名单。
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := h.userService.Logout(c.Request.Context(), tokenString); err != nil {
		log.Error("Logout: Failed to logout", err)
		fail(c, http.StatusInternalServerError, "登出失败")
		return
	}
	log.Infof("User '%s' logged out successfully", user.Username)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "登出成功"})
}
