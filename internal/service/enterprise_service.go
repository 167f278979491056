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
	"stratflow-go/pkg/tasks"
)

// 新租户初始管理员的账号信息。
const (
	AdminUsername    = "admin"
	AdminDisplayName = "系统管理员"
)

// EventPublisher 发布流程事件，由 kafka.Producer 实现。
type EventPublisher interface {
	PublishProcessEvent(ctx context.Context, evt tasks.ProcessEvent) error
}

// EnterpriseService 接口定义了租户的注册、列表、删除与演示数据初始化。
type EnterpriseService interface {
	List() ([]model.EnterpriseSummary, error)
	Create(name, displayName, password string) (*model.EnterpriseSummary, error)
	Delete(ctx context.Context, name string) error
	Seed(cfg config.SeedConfig) error
}

type enterpriseService struct {
	entRepo     repository.EnterpriseRepository
	processRepo repository.ProcessRepository
	events      EventPublisher
	security    config.SecurityConfig
}

// NewEnterpriseService 创建一个新的 EnterpriseService 实例。events 可以为 nil。
func NewEnterpriseService(entRepo repository.EnterpriseRepository, processRepo repository.ProcessRepository, events EventPublisher, security config.SecurityConfig) EnterpriseService {
	return &enterpriseService{entRepo: entRepo, processRepo: processRepo, events: events, security: security}
}

func (s *enterpriseService) List() ([]model.EnterpriseSummary, error) {
	ents, err := s.entRepo.FindAll()
	if err != nil {
		return nil, err
	}
	out := make([]model.EnterpriseSummary, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.Summary())
	}
	return out, nil
}

// Create 注册新租户，同时创建管理员账号和空的公司战略。
// 管理员使用请求中的口令；未提供时使用默认口令（显式口令模式下直接拒绝）。
func (s *enterpriseService) Create(name, displayName, password string) (*model.EnterpriseSummary, error) {
	name = strings.TrimSpace(name)
	displayName = strings.TrimSpace(displayName)
	if name == "" || displayName == "" {
		return nil, validation("企业名称和显示名称不能为空")
	}
	if password == "" {
		if s.security.RequireExplicitPassword {
			return nil, validation("必须为管理员设置初始密码")
		}
		password = s.security.DefaultPassword
	}

	if _, err := s.entRepo.FindByName(name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrEnterpriseExists, name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ent, admin, strategy, err := newWorkspace(name, displayName, password)
	if err != nil {
		return nil, err
	}
	if err := s.entRepo.CreateWorkspace(ent, admin, strategy); err != nil {
		// 并发注册同名租户时由唯一键兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", ErrEnterpriseExists, name)
		}
		return nil, err
	}
	log.Infof("[EnterpriseService] 租户 '%s' 创建成功", name)
	summary := ent.Summary()
	return &summary, nil
}

func newWorkspace(name, displayName, password string) (*model.Enterprise, *model.User, *model.Strategy, error) {
	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, nil, nil, err
	}
	ent := &model.Enterprise{Name: name, DisplayName: displayName, PasswordHash: pwHash, CreatedAt: time.Now()}
	admin := &model.User{
		ID:           "u-" + uuid.NewString(),
		EntName:      name,
		Username:     AdminUsername,
		PasswordHash: pwHash,
		Name:         AdminDisplayName,
		Role:         model.RoleAdmin,
	}
	strategy := model.EmptyStrategy(name)
	return ent, admin, &strategy, nil
}

// Delete 删除租户及其全部数据，并通知索引清理该租户的流程文档。
func (s *enterpriseService) Delete(ctx context.Context, name string) error {
	procs, err := s.processRepo.FindAll(name)
	if err != nil {
		return err
	}
	if err := s.entRepo.Delete(name); err != nil {
		return notFound(err, name)
	}
	if s.events == nil {
		return nil
	}
	for _, p := range procs {
		evt := tasks.ProcessEvent{
			EventID:    uuid.NewString(),
			Action:     tasks.ActionDeleted,
			EntName:    name,
			ProcessID:  p.ID,
			OccurredAt: time.Now().UnixMilli(),
		}
		if err := s.events.PublishProcessEvent(ctx, evt); err != nil {
			log.Warnf("[EnterpriseService] 发送流程删除事件失败: %s/%s: %v", name, p.ID, err)
		}
	}
	return nil
}

// Seed 在租户表为空时创建演示租户。
func (s *enterpriseService) Seed(cfg config.SeedConfig) error {
	if !cfg.Enabled {
		return nil
	}
	n, err := s.entRepo.Count()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	password := cfg.AdminPassword
	if password == "" {
		password = s.security.DefaultPassword
	}
	ent, admin, strategy, err := newWorkspace(cfg.Enterprise, cfg.DisplayName, password)
	if err != nil {
		return err
	}
	strategy.Mission = cfg.Mission
	strategy.Vision = cfg.Vision
	if err := s.entRepo.CreateWorkspace(ent, admin, strategy); err != nil {
		return err
	}
	log.Infof("[EnterpriseService] 已初始化演示租户 '%s'", cfg.Enterprise)
	return nil
}
