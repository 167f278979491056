// Package orgtree 负责部门树与扁平列表之间的转换、树上的编辑操作，
// 以及基于组织树和流程图计算的派生视图（岗位清单、可对齐的 OKR）。
// 所有函数都不修改入参，返回新的树。
package orgtree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"stratflow-go/internal/model"
	"stratflow-go/pkg/log"
)

var (
	ErrDepartmentNotFound = errors.New("department not found")
	ErrEmptyName          = errors.New("department name is required")
	ErrEmptyRole          = errors.New("role name is required")
	ErrOKRNotFound        = errors.New("okr not found")
	ErrInvalidQuarter     = errors.New("quarter must be one of Q1..Q4")
)

// Rebuild 按 parent_id 分组重建部门森林。
// 没有父节点或父节点无法解析的行成为根；同一父节点下的子部门保持列表中的出现顺序。
// 脏数据中的环不会丢失部门：每个环上在列表中最先出现的部门被提升为根。
func Rebuild(rows []model.DepartmentRow) []model.Department {
	tree, promoted := rebuild(rows)
	if len(promoted) > 0 {
		log.Warnf("[orgtree] 部门上下级存在环，已提升为根部门: %v", promoted)
	}
	return tree
}

// CycleRoots 返回 Rebuild 因上下级成环而提升为根的部门 ID，没有环时为空。
func CycleRoots(rows []model.DepartmentRow) []string {
	_, promoted := rebuild(rows)
	return promoted
}

func rebuild(rows []model.DepartmentRow) ([]model.Department, []string) {
	known := make(map[string]bool, len(rows))
	for _, r := range rows {
		known[r.ID] = true
	}

	children := make(map[string][]model.DepartmentRow, len(rows))
	var roots []model.DepartmentRow
	for _, r := range rows {
		if r.ParentID == nil || *r.ParentID == "" || !known[*r.ParentID] || *r.ParentID == r.ID {
			roots = append(roots, r)
			continue
		}
		children[*r.ParentID] = append(children[*r.ParentID], r)
	}

	// visited 防止环导致无限递归
	visited := make(map[string]bool, len(rows))
	var build func(rs []model.DepartmentRow) []model.Department
	build = func(rs []model.DepartmentRow) []model.Department {
		out := make([]model.Department, 0, len(rs))
		for _, r := range rs {
			if visited[r.ID] {
				continue
			}
			visited[r.ID] = true
			d := model.Department{
				ID:      r.ID,
				Name:    r.Name,
				Manager: r.Manager,
				Roles:   cloneRoles(r.Roles),
				OKRs:    model.CloneOKRTable(r.OKRs),
			}
			if kids := children[r.ID]; len(kids) > 0 {
				d.SubDepartments = build(kids)
			}
			out = append(out, d)
		}
		return out
	}
	tree := build(roots)

	// 从根出发仍未访问到的行都在环上或挂在环下
	var promoted []string
	for _, r := range rows {
		if visited[r.ID] {
			continue
		}
		promoted = append(promoted, r.ID)
		tree = append(tree, build([]model.DepartmentRow{r})...)
	}
	return tree, promoted
}

// Flatten 先序遍历部门森林，为每个部门输出一行并记录其父部门 ID。
func Flatten(tree []model.Department) []model.DepartmentRow {
	rows := make([]model.DepartmentRow, 0, len(tree))
	var walk func(ds []model.Department, parent *string)
	walk = func(ds []model.Department, parent *string) {
		for _, d := range ds {
			row := model.DepartmentRow{
				ID:      d.ID,
				Name:    d.Name,
				Manager: d.Manager,
				Roles:   cloneRoles(d.Roles),
				OKRs:    model.CloneOKRTable(d.OKRs),
			}
			if parent != nil {
				p := *parent
				row.ParentID = &p
			}
			rows = append(rows, row)
			id := d.ID
			walk(d.SubDepartments, &id)
		}
	}
	walk(tree, nil)
	return rows
}

// Find 在森林中查找部门。
func Find(tree []model.Department, id string) (model.Department, bool) {
	for _, d := range tree {
		if d.ID == id {
			return d, true
		}
		if found, ok := Find(d.SubDepartments, id); ok {
			return found, true
		}
	}
	return model.Department{}, false
}

// Walk 先序访问每个部门。
func Walk(tree []model.Department, fn func(model.Department)) {
	for _, d := range tree {
		fn(d)
		Walk(d.SubDepartments, fn)
	}
}

// update 复制到目标部门所在的路径并对目标应用 fn，其余分支共享原数据。
func update(tree []model.Department, id string, fn func(*model.Department) error) ([]model.Department, error) {
	for i, d := range tree {
		if d.ID == id {
			out := append([]model.Department(nil), tree...)
			if err := fn(&out[i]); err != nil {
				return nil, err
			}
			return out, nil
		}
		if sub, err := update(d.SubDepartments, id, fn); err == nil {
			out := append([]model.Department(nil), tree...)
			out[i].SubDepartments = sub
			return out, nil
		} else if !errors.Is(err, ErrDepartmentNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDepartmentNotFound, id)
}

// AddDepartment 新建部门。parentID 为空时作为根部门追加，否则追加为该部门的最后一个子部门。
func AddDepartment(tree []model.Department, parentID, name string) ([]model.Department, model.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Department{}, ErrEmptyName
	}
	dept := model.Department{
		ID:    "dept-" + uuid.NewString(),
		Name:  name,
		Roles: []string{},
		OKRs:  map[int]map[string][]model.OKR{},
	}
	if parentID == "" {
		out := append(append([]model.Department(nil), tree...), dept)
		return out, dept, nil
	}
	out, err := update(tree, parentID, func(p *model.Department) error {
		p.SubDepartments = append(append([]model.Department(nil), p.SubDepartments...), dept)
		return nil
	})
	if err != nil {
		return nil, model.Department{}, err
	}
	return out, dept, nil
}

// RemoveDepartment 删除部门及其所有子部门。
func RemoveDepartment(tree []model.Department, id string) ([]model.Department, error) {
	out, removed := remove(tree, id)
	if !removed {
		return nil, fmt.Errorf("%w: %s", ErrDepartmentNotFound, id)
	}
	return out, nil
}

func remove(tree []model.Department, id string) ([]model.Department, bool) {
	for i, d := range tree {
		if d.ID == id {
			out := make([]model.Department, 0, len(tree)-1)
			out = append(out, tree[:i]...)
			return append(out, tree[i+1:]...), true
		}
		if sub, ok := remove(d.SubDepartments, id); ok {
			out := append([]model.Department(nil), tree...)
			out[i].SubDepartments = sub
			return out, true
		}
	}
	return tree, false
}

// AddRole 为部门添加岗位，岗位按集合语义去重。
func AddRole(tree []model.Department, deptID, role string) ([]model.Department, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, ErrEmptyRole
	}
	return update(tree, deptID, func(d *model.Department) error {
		for _, r := range d.Roles {
			if r == role {
				return nil
			}
		}
		d.Roles = append(cloneRoles(d.Roles), role)
		return nil
	})
}

// RemoveRole 从部门移除岗位，岗位不存在时不报错。
func RemoveRole(tree []model.Department, deptID, role string) ([]model.Department, error) {
	return update(tree, deptID, func(d *model.Department) error {
		roles := make([]string, 0, len(d.Roles))
		for _, r := range d.Roles {
			if r != role {
				roles = append(roles, r)
			}
		}
		d.Roles = roles
		return nil
	})
}

func cloneRoles(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append(make([]string, 0, len(in)), in...)
}
