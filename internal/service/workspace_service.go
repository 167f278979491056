package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"stratflow-go/internal/model"
	"stratflow-go/pkg/log"
	"stratflow-go/pkg/metrics"
)

// 工作空间中的资源名称，也是保存报告中的键。
const (
	ResourceProcesses   = "processes"
	ResourceDepartments = "departments"
	ResourceStrategy    = "strategy"
	ResourceUsers       = "users"
	ResourcePADs        = "weeklyPADs"
)

const exportURLExpiry = 15 * time.Minute

// ResourceResult 是整体保存时单个资源的结果。
type ResourceResult struct {
	Resource string `json:"resource"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// SaveReport 汇总一次整体保存。各资源独立提交，部分失败不会回滚已成功的资源。
type SaveReport struct {
	Results []ResourceResult `json:"results"`
}

// Err 返回第一个失败资源的错误，全部成功时返回 nil。
func (r SaveReport) Err() error {
	for _, res := range r.Results {
		if !res.OK {
			return fmt.Errorf("保存 %s 失败: %s", res.Resource, res.Error)
		}
	}
	return nil
}

// ExportResult 是工作空间导出后的下载信息。
type ExportResult struct {
	Object    string `json:"object"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expiresAt"`
}

// WorkspaceService 把各资源服务组合为整个工作空间的读取、保存与导出。
type WorkspaceService interface {
	Load(ctx context.Context, entName string) (*model.AppState, error)
	Save(ctx context.Context, actor *model.User, state model.AppState) SaveReport
	Export(ctx context.Context, entName string) (*ExportResult, error)
}

type workspaceService struct {
	processes   ProcessService
	departments DepartmentService
	strategy    StrategyService
	users       UserService
	pads        PADService
	store       ObjectStore
}

// NewWorkspaceService 创建一个新的 WorkspaceService 实例。store 可以为 nil，此时不支持导出。
func NewWorkspaceService(processes ProcessService, departments DepartmentService, strategy StrategyService, users UserService, pads PADService, store ObjectStore) WorkspaceService {
	return &workspaceService{
		processes:   processes,
		departments: departments,
		strategy:    strategy,
		users:       users,
		pads:        pads,
		store:       store,
	}
}

// Load 并发读取全部资源。周报读取失败时按空列表处理，其余资源失败则整体失败。
func (s *workspaceService) Load(ctx context.Context, entName string) (*model.AppState, error) {
	state := &model.AppState{}
	var g errgroup.Group

	g.Go(func() error {
		procs, err := s.processes.List(entName)
		state.Processes = procs
		return err
	})
	g.Go(func() error {
		tree, err := s.departments.Tree(entName)
		state.Departments = tree
		return err
	})
	g.Go(func() error {
		st, err := s.strategy.Get(entName)
		state.Strategy = st
		return err
	})
	g.Go(func() error {
		users, err := s.users.List(entName)
		state.Users = users
		return err
	})
	g.Go(func() error {
		pads, err := s.pads.List(entName)
		if err != nil {
			log.Warnf("[WorkspaceService] 读取周报失败，按空列表处理: %v", err)
			pads = []model.WeeklyPAD{}
		}
		state.WeeklyPADs = pads
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return state, nil
}

// Save 并发保存各资源。某个资源失败不会取消其他资源的保存。
func (s *workspaceService) Save(ctx context.Context, actor *model.User, state model.AppState) SaveReport {
	entName := actor.EntName
	savers := []struct {
		name string
		fn   func() error
	}{
		{ResourceProcesses, func() error {
			for _, p := range state.Processes {
				if _, err := s.processes.Save(entName, p); err != nil {
					return fmt.Errorf("%s: %w", p.ID, err)
				}
			}
			return nil
		}},
		{ResourceDepartments, func() error {
			return s.departments.SaveTree(entName, state.Departments)
		}},
		{ResourceStrategy, func() error {
			return s.strategy.Save(entName, state.Strategy)
		}},
		{ResourceUsers, func() error {
			for _, u := range state.Users {
				in := UserInput{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role, DepartmentID: u.DepartmentID}
				if _, err := s.users.Save(actor, in); err != nil {
					return fmt.Errorf("%s: %w", u.Username, err)
				}
			}
			return nil
		}},
		{ResourcePADs, func() error {
			return s.pads.SaveAll(entName, state.WeeklyPADs)
		}},
	}

	report := SaveReport{Results: make([]ResourceResult, len(savers))}
	var g errgroup.Group
	for i, sv := range savers {
		i, sv := i, sv
		g.Go(func() error {
			err := sv.fn()
			metrics.ObserveWorkspaceSave(sv.name, err)
			res := ResourceResult{Resource: sv.name, OK: err == nil}
			if err != nil {
				res.Error = err.Error()
				log.Errorf("[WorkspaceService] 保存 %s 失败 (ent=%s): %v", sv.name, entName, err)
			}
			report.Results[i] = res
			// 返回 nil，避免一个资源的失败影响其他资源
			return nil
		})
	}
	_ = g.Wait()
	return report
}

// Export 把工作空间快照以 JSON 写入对象存储，并返回限时下载链接。
func (s *workspaceService) Export(ctx context.Context, entName string) (*ExportResult, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: 对象存储未配置", ErrDependencyUnavailable)
	}
	state, err := s.Load(ctx, entName)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, err
	}
	now := time.Now()
	object := fmt.Sprintf("exports/%s/%s.json", entName, now.Format("20060102-150405"))
	if err := s.store.Put(ctx, object, data, "application/json"); err != nil {
		return nil, fmt.Errorf("上传导出文件失败: %w", err)
	}
	url, err := s.store.PresignedURL(ctx, object, exportURLExpiry)
	if err != nil {
		return nil, err
	}
	return &ExportResult{Object: object, URL: url, ExpiresAt: now.Add(exportURLExpiry).UnixMilli()}, nil
}
