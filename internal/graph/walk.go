package graph

import "stratflow-go/internal/model"

// Visit 描述遍历到的一个节点。
type Visit struct {
	// Path 是节点所在层级的路径，即祖先子流程节点的 ID，根层级为空。
	Path []string
	// Parent 是直接父子流程节点的标签，根层级为空。
	Parent string
	Node   model.ProcessNode
}

// Walk 先序遍历节点树，只进入 IsSubProcess 为 true 的节点。
func Walk(nodes []model.ProcessNode, fn func(Visit)) {
	walk(nodes, nil, "", fn)
}

func walk(nodes []model.ProcessNode, path []string, parent string, fn func(Visit)) {
	for _, n := range nodes {
		fn(Visit{Path: append([]string{}, path...), Parent: parent, Node: n})
		if n.IsSubProcess {
			walk(n.SubProcessNodes, append(append([]string{}, path...), n.ID), n.Label, fn)
		}
	}
}

// CatalogEntry 是流程大厅中的一项，既可能是根流程，也可能是嵌套子流程的虚拟入口。
type CatalogEntry struct {
	ID         string   `json:"id"`
	RootID     string   `json:"rootId"`
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Level      int      `json:"level"`
	Version    string   `json:"version"`
	IsActive   bool     `json:"isActive"`
	IsVirtual  bool     `json:"isVirtualSub"`
	ParentName string   `json:"parentName,omitempty"`
	NodesCount int      `json:"nodesCount"`
	Path       []string `json:"path"`
}

// Catalog 列出所有根流程以及每个子流程节点对应的虚拟入口。
// 虚拟入口的层级为嵌套深度加 2，路径可直接用作编辑器的层级游标。
func Catalog(processes []model.ProcessDefinition) []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(processes))
	for _, p := range processes {
		entries = append(entries, CatalogEntry{
			ID:         p.ID,
			RootID:     p.ID,
			Name:       p.Name,
			Category:   p.Category,
			Level:      p.Level,
			Version:    p.Version,
			IsActive:   p.IsActive,
			NodesCount: len(p.Nodes),
			Path:       []string{},
		})
		Walk(p.Nodes, func(v Visit) {
			if !v.Node.IsSubProcess {
				return
			}
			parent := v.Parent
			if parent == "" {
				parent = p.Name
			}
			entries = append(entries, CatalogEntry{
				ID:         v.Node.ID,
				RootID:     p.ID,
				Name:       v.Node.Label,
				Category:   p.Category,
				Level:      len(v.Path) + 2,
				Version:    p.Version,
				IsActive:   p.IsActive,
				IsVirtual:  true,
				ParentName: parent,
				NodesCount: len(v.Node.SubProcessNodes),
				Path:       append(v.Path, v.Node.ID),
			})
		})
	}
	return entries
}
