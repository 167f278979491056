package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratflow-go/internal/model"
	"stratflow-go/internal/service"
	"stratflow-go/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUserService struct {
	service.UserService
	revoked map[string]bool
	users   map[string]*model.User
}

func (s *stubUserService) IsTokenRevoked(_ context.Context, tok string) (bool, error) {
	return s.revoked[tok], nil
}

func (s *stubUserService) GetProfile(entName, id string) (*model.User, error) {
	if u, ok := s.users[entName+"/"+id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func newRouter(m *token.JWTManager, users service.UserService) *gin.Engine {
	r := gin.New()
	auth := AuthMiddleware(m, users)
	whoami := func(c *gin.Context) {
		u := c.MustGet("user").(*model.User)
		c.JSON(http.StatusOK, gin.H{"id": u.ID})
	}
	r.GET("/me", auth, whoami)
	r.GET("/workspace/:entId", auth, whoami)
	r.DELETE("/admin", auth, AdminAuthMiddleware(), whoami)
	return r
}

func call(r http.Handler, method, path, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	m := token.NewJWTManager("secret", 1, 7)
	alice := &model.User{ID: "u1", EntName: "acme", Username: "alice", Role: model.RoleUser}
	users := &stubUserService{
		revoked: map[string]bool{},
		users:   map[string]*model.User{"acme/u1": alice},
	}
	r := newRouter(m, users)

	tok, err := m.GenerateToken("u1", "acme", "alice", model.RoleUser)
	require.NoError(t, err)

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/me", "").Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		refresh, err := m.GenerateRefreshToken("u1", "acme", "alice", model.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/me", refresh).Code)
	})

	t.Run("valid", func(t *testing.T) {
		w := call(r, http.MethodGet, "/me", tok)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"u1"}`, w.Body.String())
		assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/workspace/acme", tok).Code)
	})

	t.Run("other tenant", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/workspace/globex", tok).Code)
		assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/me?entId=globex", tok).Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		ghost, err := m.GenerateToken("u9", "acme", "ghost", model.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/me", ghost).Code)
	})

	t.Run("revoked", func(t *testing.T) {
		users.revoked[tok] = true
		defer delete(users.revoked, tok)
		assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/me", tok).Code)
	})
}

func TestAdminAuthMiddleware(t *testing.T) {
	m := token.NewJWTManager("secret", 1, 7)
	users := &stubUserService{
		revoked: map[string]bool{},
		users: map[string]*model.User{
			"acme/u1": {ID: "u1", EntName: "acme", Role: model.RoleUser},
			"acme/u2": {ID: "u2", EntName: "acme", Role: model.RoleAdmin},
		},
	}
	r := newRouter(m, users)

	userTok, err := m.GenerateToken("u1", "acme", "alice", model.RoleUser)
	require.NoError(t, err)
	adminTok, err := m.GenerateToken("u2", "acme", "admin", model.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodDelete, "/admin", userTok).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodDelete, "/admin", adminTok).Code)

	// 未经过 AuthMiddleware 时没有用户信息
	bare := gin.New()
	bare.GET("/admin", AdminAuthMiddleware())
	assert.Equal(t, http.StatusInternalServerError, call(bare, http.MethodGet, "/admin", "").Code)
}
