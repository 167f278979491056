package graph

import (
	"github.com/google/uuid"

	"stratflow-go/internal/model"
)

// Sketch 是识别手绘流程图后得到的结构，连线通过节点下标引用端点。
type Sketch struct {
	Nodes []SketchNode `json:"nodes"`
	Links []SketchLink `json:"links"`
}

type SketchNode struct {
	Label       string  `json:"label"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

type SketchLink struct {
	FromIndex int `json:"fromIndex"`
	ToIndex   int `json:"toIndex"`
}

// FromSketch 为识别结果分配真实的节点和连线 ID。
// 未知的节点类型按 process 处理；下标无法解析的连线和自环被丢弃。
func FromSketch(s Sketch) ([]model.ProcessNode, []model.ProcessLink) {
	nodes := make([]model.ProcessNode, 0, len(s.Nodes))
	for _, sn := range s.Nodes {
		typ := sn.Type
		if _, ok := defaultLabels[typ]; !ok {
			typ = model.NodeProcess
		}
		label := sn.Label
		if label == "" {
			label = defaultLabels[typ]
		}
		nodes = append(nodes, model.ProcessNode{
			ID:          "ai-node-" + uuid.NewString(),
			Label:       label,
			Description: sn.Description,
			Type:        typ,
			SIPOC:       model.EmptySIPOC(),
			X:           clamp(sn.X),
			Y:           clamp(sn.Y),
		})
	}

	links := make([]model.ProcessLink, 0, len(s.Links))
	seen := make(map[[2]int]bool, len(s.Links))
	for _, sl := range s.Links {
		if sl.FromIndex < 0 || sl.FromIndex >= len(nodes) || sl.ToIndex < 0 || sl.ToIndex >= len(nodes) {
			continue
		}
		pair := [2]int{sl.FromIndex, sl.ToIndex}
		if sl.FromIndex == sl.ToIndex || seen[pair] {
			continue
		}
		seen[pair] = true
		links = append(links, model.ProcessLink{
			ID:   "ai-link-" + uuid.NewString(),
			From: nodes[sl.FromIndex].ID,
			To:   nodes[sl.ToIndex].ID,
		})
	}
	return nodes, links
}
