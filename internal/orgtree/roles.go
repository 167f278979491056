package orgtree

import (
	"sort"

	"stratflow-go/internal/graph"
	"stratflow-go/internal/model"
)

// PlaceholderRole 是节点上尚未指定岗位时使用的占位值，不计入岗位清单。
const PlaceholderRole = "岗位"

// Touchpoint 是某个岗位在流程中负责的一个节点。
type Touchpoint struct {
	ProcessID   string   `json:"procId"`
	ProcessName string   `json:"procName"`
	NodeID      string   `json:"nodeId"`
	NodeLabel   string   `json:"nodeLabel"`
	Path        []string `json:"path"`
}

// RoleEntry 汇总一个岗位在组织树中的定义位置以及它在流程中的触点。
// Defined 为 false 表示流程引用了组织树中不存在的岗位。
type RoleEntry struct {
	Role        string       `json:"role"`
	Departments []string     `json:"departments"`
	Defined     bool         `json:"defined"`
	Touchpoints []Touchpoint `json:"touchpoints"`
}

// Touchpoints 遍历所有流程（包括嵌套子流程），按岗位收集触点。
// 开始、判断、结束节点以及占位岗位会被跳过。
func Touchpoints(processes []model.ProcessDefinition) map[string][]Touchpoint {
	out := make(map[string][]Touchpoint)
	for _, p := range processes {
		graph.Walk(p.Nodes, func(v graph.Visit) {
			role := v.Node.SIPOC.OwnerRole
			if !countsForRole(v.Node.Type, role) {
				return
			}
			out[role] = append(out[role], Touchpoint{
				ProcessID:   p.ID,
				ProcessName: p.Name,
				NodeID:      v.Node.ID,
				NodeLabel:   v.Node.Label,
				Path:        v.Path,
			})
		})
	}
	return out
}

func countsForRole(nodeType, role string) bool {
	if role == "" || role == PlaceholderRole {
		return false
	}
	switch nodeType {
	case model.NodeStart, model.NodeDecision, model.NodeEnd:
		return false
	}
	return true
}

// RoleInventory 先按组织树先序列出已定义的岗位，再列出只在流程中出现的岗位。
func RoleInventory(tree []model.Department, processes []model.ProcessDefinition) []RoleEntry {
	touch := Touchpoints(processes)

	var entries []RoleEntry
	index := make(map[string]int)
	Walk(tree, func(d model.Department) {
		for _, role := range d.Roles {
			if role == "" || role == PlaceholderRole {
				continue
			}
			if i, ok := index[role]; ok {
				entries[i].Departments = append(entries[i].Departments, d.Name)
				continue
			}
			index[role] = len(entries)
			entries = append(entries, RoleEntry{
				Role:        role,
				Departments: []string{d.Name},
				Defined:     true,
				Touchpoints: nonNil(touch[role]),
			})
		}
	})

	// 流程中引用但组织树中未定义的岗位，按首次出现的顺序追加。
	for _, p := range processes {
		graph.Walk(p.Nodes, func(v graph.Visit) {
			role := v.Node.SIPOC.OwnerRole
			if !countsForRole(v.Node.Type, role) {
				return
			}
			if _, ok := index[role]; ok {
				return
			}
			index[role] = len(entries)
			entries = append(entries, RoleEntry{
				Role:        role,
				Departments: []string{},
				Touchpoints: touch[role],
			})
		})
	}
	if entries == nil {
		return []RoleEntry{}
	}
	return entries
}

// AvailableRoles 返回组织树中定义的全部岗位，去重并排序，供节点选择岗位使用。
func AvailableRoles(tree []model.Department) []string {
	seen := make(map[string]bool)
	roles := []string{}
	Walk(tree, func(d model.Department) {
		for _, r := range d.Roles {
			if !seen[r] {
				seen[r] = true
				roles = append(roles, r)
			}
		}
	})
	sort.Strings(roles)
	return roles
}

func nonNil(t []Touchpoint) []Touchpoint {
	if t == nil {
		return []Touchpoint{}
	}
	return t
}
