package service

import (
	"strings"

	"stratflow-go/internal/model"
	"stratflow-go/internal/orgtree"
	"stratflow-go/internal/repository"
)

// DepartmentService 接口定义了组织架构的读写、树编辑、岗位清单以及部门 OKR 操作。
// 部门在库中以扁平行保存，对外既可以按扁平列表也可以按树读取。
type DepartmentService interface {
	ListFlat(entName string) ([]model.DepartmentRow, error)
	SaveFlat(entName string, rows []model.DepartmentRow) error
	Tree(entName string) ([]model.Department, error)
	SaveTree(entName string, tree []model.Department) error

	RoleInventory(entName string) ([]orgtree.RoleEntry, error)
	AvailableRoles(entName string) ([]string, error)

	AddDepartment(entName, parentID, name string) (model.Department, error)
	RemoveDepartment(entName, id string) error
	AddRole(entName, deptID, role string) error
	RemoveRole(entName, deptID, role string) error
	AddOKR(entName, deptID string, year int, quarter string) (model.OKR, error)
	UpdateOKR(entName, deptID, okrID string, patch orgtree.OKRPatch) (model.OKR, error)
}

type departmentService struct {
	deptRepo    repository.DepartmentRepository
	processRepo repository.ProcessRepository
}

// NewDepartmentService 创建一个新的 DepartmentService 实例。
func NewDepartmentService(deptRepo repository.DepartmentRepository, processRepo repository.ProcessRepository) DepartmentService {
	return &departmentService{deptRepo: deptRepo, processRepo: processRepo}
}

func (s *departmentService) ListFlat(entName string) ([]model.DepartmentRow, error) {
	rows, err := s.deptRepo.FindAll(entName)
	if err != nil {
		return nil, err
	}
	out := make([]model.DepartmentRow, 0, len(rows))
	for _, r := range rows {
		if r.Roles == nil {
			r.Roles = []string{}
		}
		out = append(out, r)
	}
	return out, nil
}

// SaveFlat 校验扁平列表能组成一棵合法的树，然后按先序整体替换。
func (s *departmentService) SaveFlat(entName string, rows []model.DepartmentRow) error {
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.ID) == "" {
			return validation("部门 ID 不能为空")
		}
		if seen[r.ID] {
			return validation("部门 ID 重复: %s", r.ID)
		}
		seen[r.ID] = true
		if strings.TrimSpace(r.Name) == "" {
			return validation("部门名称不能为空: %s", r.ID)
		}
	}
	if ids := orgtree.CycleRoots(rows); len(ids) > 0 {
		return validation("部门之间存在循环的上下级关系: %s", strings.Join(ids, ", "))
	}
	return s.deptRepo.ReplaceAll(entName, orgtree.Flatten(orgtree.Rebuild(rows)))
}

func (s *departmentService) Tree(entName string) ([]model.Department, error) {
	rows, err := s.deptRepo.FindAll(entName)
	if err != nil {
		return nil, err
	}
	return orgtree.Rebuild(rows), nil
}

func (s *departmentService) SaveTree(entName string, tree []model.Department) error {
	return s.SaveFlat(entName, orgtree.Flatten(tree))
}

func (s *departmentService) RoleInventory(entName string) ([]orgtree.RoleEntry, error) {
	tree, err := s.Tree(entName)
	if err != nil {
		return nil, err
	}
	procs, err := s.processRepo.FindAll(entName)
	if err != nil {
		return nil, err
	}
	return orgtree.RoleInventory(tree, procs), nil
}

func (s *departmentService) AvailableRoles(entName string) ([]string, error) {
	tree, err := s.Tree(entName)
	if err != nil {
		return nil, err
	}
	return orgtree.AvailableRoles(tree), nil
}

// mutate 读取整棵树，执行 fn 后整体写回。
func (s *departmentService) mutate(entName string, fn func([]model.Department) ([]model.Department, error)) error {
	tree, err := s.Tree(entName)
	if err != nil {
		return err
	}
	next, err := fn(tree)
	if err != nil {
		return err
	}
	return s.deptRepo.ReplaceAll(entName, orgtree.Flatten(next))
}

func (s *departmentService) AddDepartment(entName, parentID, name string) (model.Department, error) {
	var dept model.Department
	err := s.mutate(entName, func(tree []model.Department) ([]model.Department, error) {
		next, d, err := orgtree.AddDepartment(tree, parentID, name)
		dept = d
		return next, err
	})
	return dept, err
}

func (s *departmentService) RemoveDepartment(entName, id string) error {
	return s.mutate(entName, func(tree []model.Department) ([]model.Department, error) {
		return orgtree.RemoveDepartment(tree, id)
	})
}

func (s *departmentService) AddRole(entName, deptID, role string) error {
	return s.mutate(entName, func(tree []model.Department) ([]model.Department, error) {
		return orgtree.AddRole(tree, deptID, role)
	})
}

func (s *departmentService) RemoveRole(entName, deptID, role string) error {
	return s.mutate(entName, func(tree []model.Department) ([]model.Department, error) {
		return orgtree.RemoveRole(tree, deptID, role)
	})
}

func (s *departmentService) AddOKR(entName, deptID string, year int, quarter string) (model.OKR, error) {
	var okr model.OKR
	err := s.mutate(entName, func(tree []model.Department) ([]model.Department, error) {
		next, o, err := orgtree.AddDepartmentOKR(tree, deptID, year, quarter)
		okr = o
		return next, err
	})
	return okr, err
}

func (s *departmentService) UpdateOKR(entName, deptID, okrID string, patch orgtree.OKRPatch) (model.OKR, error) {
	var okr model.OKR
	err := s.mutate(entName, func(tree []model.Department) ([]model.Department, error) {
		next, o, err := orgtree.UpdateDepartmentOKR(tree, deptID, okrID, patch)
		okr = o
		return next, err
	})
	return okr, err
}
