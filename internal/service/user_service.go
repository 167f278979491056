package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stratflow-go/internal/config"
	"stratflow-go/internal/model"
	"stratflow-go/internal/repository"
	"stratflow-go/pkg/hash"
	"stratflow-go/pkg/log"
	"stratflow-go/pkg/token"
)

// UserInput 是保存用户时的请求数据。ID 为空表示新建，Password 为空表示不修改口令。
type UserInput struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	Password     string  `json:"password"`
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	DepartmentID *string `json:"departmentId"`
}

// LoginResult 是登录成功后返回给前端的数据，不包含口令。
type LoginResult struct {
	User         *model.User `json:"user"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
}

// UserService 接口定义了所有与用户和认证相关的业务操作。
type UserService interface {
	Login(entName, username, password string) (*LoginResult, error)
	RefreshToken(refreshTokenString string) (newAccessToken, newRefreshToken string, err error)
	Logout(ctx context.Context, tokenString string) error
	IsTokenRevoked(ctx context.Context, tokenString string) (bool, error)
	GetProfile(entName, id string) (*model.User, error)
	List(entName string) ([]model.User, error)
	Save(actor *model.User, input UserInput) (*model.User, error)
	Delete(actor *model.User, id string) error
	// ResetPassword 返回新签发的口令，调用方负责转交给用户。
	ResetPassword(actor *model.User, id string) (string, error)
	ChangePassword(actor *model.User, oldPassword, newPassword string) error
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	jwtManager *token.JWTManager
	security   config.SecurityConfig
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository, jwtManager *token.JWTManager, security config.SecurityConfig) UserService {
	return &userService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtManager: jwtManager,
		security:   security,
	}
}

// Login 在租户内校验用户名和口令，成功后签发 access token 和 refresh token。
func (s *userService) Login(entName, username, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(entName, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtManager.GenerateToken(user.ID, entName, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, entName, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: accessToken, RefreshToken: refreshToken}, nil
}

// RefreshToken 验证 refresh token 并签发新的 access token 和 refresh token。
func (s *userService) RefreshToken(refreshTokenString string) (string, string, error) {
	claims, err := s.jwtManager.VerifyRefreshToken(refreshTokenString)
	if err != nil {
		return "", "", ErrInvalidCredentials
	}
	// 用户可能已被删除或改了角色，以数据库为准
	user, err := s.userRepo.FindByID(claims.EntName, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}
	access, err := s.jwtManager.GenerateToken(user.ID, claims.EntName, user.Username, user.Role)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(user.ID, claims.EntName, user.Username, user.Role)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Logout 将 token 加入 Redis 黑名单，剩余有效期作为过期时间。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return err
	}
	return s.tokenRepo.Revoke(ctx, tokenString, claims.Remaining(time.Now()))
}

func (s *userService) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	return s.tokenRepo.IsRevoked(ctx, tokenString)
}

func (s *userService) GetProfile(entName, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(entName, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return user, nil
}

func (s *userService) List(entName string) ([]model.User, error) {
	users, err := s.userRepo.FindAll(entName)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// Save 新建或更新同租户内的用户。
// 管理员可以修改任何人；普通用户只能修改自己的资料，且不能改变自己的角色。
func (s *userService) Save(actor *model.User, input UserInput) (*model.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		return nil, validation("用户名不能为空")
	}
	if input.Role == "" {
		input.Role = model.RoleUser
	}
	if input.Role != model.RoleAdmin && input.Role != model.RoleUser {
		return nil, validation("未知的角色: %s", input.Role)
	}
	if !actor.IsAdmin() && input.ID != actor.ID {
		return nil, fmt.Errorf("%w: 只有管理员可以维护其他用户", ErrForbidden)
	}

	var existing *model.User
	if input.ID != "" {
		u, err := s.userRepo.FindByID(actor.EntName, input.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		existing = u
	}

	user := &model.User{
		ID:           input.ID,
		EntName:      actor.EntName,
		Username:     input.Username,
		Name:         input.Name,
		Role:         input.Role,
		DepartmentID: input.DepartmentID,
	}
	if existing != nil && !actor.IsAdmin() {
		user.Role = existing.Role
	}

	switch {
	case input.Password != "":
		h, err := hash.HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = h
	case existing != nil:
		user.PasswordHash = existing.PasswordHash
	default:
		if s.security.RequireExplicitPassword {
			return nil, validation("新用户必须设置密码")
		}
		h, err := hash.HashPassword(s.security.DefaultPassword)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = h
	}

	var err error
	if existing != nil {
		err = s.userRepo.Save(user)
	} else {
		if user.ID == "" {
			user.ID = "u-" + uuid.NewString()
		}
		// 新建用户只插入，避免客户端指定的 ID 覆盖其他租户的记录
		err = s.userRepo.Create(user)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, validation("用户名或 ID 已存在: %s", user.Username)
	}
	if err != nil {
		return nil, err
	}
	log.Infof("[UserService] 用户 '%s' 已保存 (ent=%s)", user.Username, user.EntName)
	return user, nil
}

// Delete 删除同租户内的用户，管理员不能删除自己。
func (s *userService) Delete(actor *model.User, id string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: 只有管理员可以删除用户", ErrForbidden)
	}
	if id == actor.ID {
		return validation("不能删除当前登录的账号")
	}
	return s.userRepo.Delete(actor.EntName, id)
}

// ResetPassword 把用户口令重置为默认口令；显式口令模式下签发随机一次性口令。
func (s *userService) ResetPassword(actor *model.User, id string) (string, error) {
	if !actor.IsAdmin() {
		return "", fmt.Errorf("%w: 只有管理员可以重置密码", ErrForbidden)
	}
	password := s.security.DefaultPassword
	if s.security.RequireExplicitPassword || password == "" {
		password = token.GenerateRandomString(6)
	}
	h, err := hash.HashPassword(password)
	if err != nil {
		return "", err
	}
	if err := s.userRepo.UpdatePassword(actor.EntName, id, h); err != nil {
		return "", notFound(err, id)
	}
	return password, nil
}

// ChangePassword 校验旧口令后修改当前用户的口令。
func (s *userService) ChangePassword(actor *model.User, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return validation("新密码不能为空")
	}
	user, err := s.userRepo.FindByID(actor.EntName, actor.ID)
	if err != nil {
		return notFound(err, actor.ID)
	}
	if !hash.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	h, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(actor.EntName, actor.ID, h)
}
