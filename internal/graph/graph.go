// Package graph 以 arena 方式保存一个流程的嵌套节点图。
//
// 每个节点以 (层级作用域, 节点 ID) 为键存放在一张扁平表中，作用域由从根到该层级的
// 子流程节点 ID 路径拼接而成；每个作用域单独保存节点顺序和连线。
// 所有修改都返回新的 *Graph，原图保持不变，调用方可以放心地并发读取旧快照。
package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"stratflow-go/internal/model"
)

var (
	ErrNodeNotFound    = errors.New("node not found at this level")
	ErrPathNotFound    = errors.New("sub-process path not found")
	ErrSelfLink        = errors.New("a node cannot link to itself")
	ErrCrossLevelLink  = errors.New("link endpoints must be on the same level")
	ErrInvalidField    = errors.New("unknown SIPOC field")
	ErrInvalidNodeType = errors.New("unknown node type")
	ErrEmptyVersion    = errors.New("version label is required")
	ErrHistoryNotFound = errors.New("history record not found")
)

// scopeSep 用于拼接作用域路径，不会出现在正常的节点 ID 中。
const scopeSep = "\x1f"

// DefaultX / DefaultY 是未指定坐标时新节点的位置。
const (
	DefaultX = 150
	DefaultY = 150
)

var defaultLabels = map[string]string{
	model.NodeStart:    "开始",
	model.NodeProcess:  "新环节",
	model.NodeDecision: "条件判断",
	model.NodeEnd:      "结束",
}

type nodeKey struct {
	scope string
	id    string
}

// Graph 是一个流程的全部层级。零值不可用，使用 New 或 FromTree 构造。
type Graph struct {
	nodes map[nodeKey]model.ProcessNode // 存放时不带 SubProcessNodes/SubProcessLinks
	order map[string][]string
	links map[string][]model.ProcessLink
}

// New 返回一个只有空根层级的图。
func New() *Graph {
	return &Graph{
		nodes: map[nodeKey]model.ProcessNode{},
		order: map[string][]string{"": {}},
		links: map[string][]model.ProcessLink{"": {}},
	}
}

// FromTree 把嵌套的节点/连线数组装入 arena。
// IsSubProcess 为 false 的节点上残留的子数组会被忽略。
func FromTree(nodes []model.ProcessNode, links []model.ProcessLink) *Graph {
	g := New()
	g.load("", nodes, links)
	return g
}

func (g *Graph) load(scope string, nodes []model.ProcessNode, links []model.ProcessLink) {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		k := nodeKey{scope, n.ID}
		if _, dup := g.nodes[k]; dup {
			continue
		}
		sub, subLinks := n.SubProcessNodes, n.SubProcessLinks
		n.SubProcessNodes, n.SubProcessLinks = nil, nil
		n.SIPOC = n.SIPOC.Clone()
		g.nodes[k] = n
		ids = append(ids, n.ID)
		if n.IsSubProcess {
			g.load(childScope(scope, n.ID), sub, subLinks)
		}
	}
	g.order[scope] = ids
	g.links[scope] = append([]model.ProcessLink{}, links...)
}

// Tree 把 arena 还原为嵌套数组，返回值与图不共享任何可变内存。
func (g *Graph) Tree() ([]model.ProcessNode, []model.ProcessLink) {
	return g.materialize("")
}

func (g *Graph) materialize(scope string) ([]model.ProcessNode, []model.ProcessLink) {
	ids := g.order[scope]
	nodes := make([]model.ProcessNode, 0, len(ids))
	for _, id := range ids {
		n := g.nodes[nodeKey{scope, id}]
		n.SIPOC = n.SIPOC.Clone()
		if n.IsSubProcess {
			n.SubProcessNodes, n.SubProcessLinks = g.materialize(childScope(scope, id))
		}
		nodes = append(nodes, n)
	}
	return nodes, append([]model.ProcessLink{}, g.links[scope]...)
}

func childScope(scope, id string) string {
	if scope == "" {
		return id
	}
	return scope + scopeSep + id
}

// resolve 从根出发逐个匹配路径上的节点 ID，每一段都必须是子流程节点。
func (g *Graph) resolve(path []string) (string, error) {
	scope := ""
	for _, id := range path {
		n, ok := g.nodes[nodeKey{scope, id}]
		if !ok || !n.IsSubProcess {
			return "", fmt.Errorf("%w: %s", ErrPathNotFound, strings.Join(path, "/"))
		}
		scope = childScope(scope, id)
	}
	return scope, nil
}

func (g *Graph) clone() *Graph {
	c := &Graph{
		nodes: make(map[nodeKey]model.ProcessNode, len(g.nodes)),
		order: make(map[string][]string, len(g.order)),
		links: make(map[string][]model.ProcessLink, len(g.links)),
	}
	for k, v := range g.nodes {
		c.nodes[k] = v
	}
	for k, v := range g.order {
		c.order[k] = v
	}
	for k, v := range g.links {
		c.links[k] = v
	}
	return c
}

// dropScope 删除一个作用域以及它下面所有更深的作用域。只能在 clone 上调用。
func (g *Graph) dropScope(scope string) {
	prefix := scope + scopeSep
	for k := range g.nodes {
		if k.scope == scope || strings.HasPrefix(k.scope, prefix) {
			delete(g.nodes, k)
		}
	}
	for s := range g.order {
		if s == scope || strings.HasPrefix(s, prefix) {
			delete(g.order, s)
			delete(g.links, s)
		}
	}
}

func (g *Graph) existsElsewhere(scope, id string) bool {
	for k := range g.nodes {
		if k.id == id && k.scope != scope {
			return true
		}
	}
	return false
}

// Level 是某一层级的视图，节点中包含完整的嵌套子流程。
type Level struct {
	Path  []string            `json:"path"`
	Nodes []model.ProcessNode `json:"nodes"`
	Links []model.ProcessLink `json:"links"`
}

// Level 返回 path 所指层级的节点和连线。
func (g *Graph) Level(path []string) (Level, error) {
	scope, err := g.resolve(path)
	if err != nil {
		return Level{}, err
	}
	nodes, links := g.materialize(scope)
	return Level{Path: append([]string{}, path...), Nodes: nodes, Links: links}, nil
}

// Node 返回 path 层级上的单个节点（不含子数组）。
func (g *Graph) Node(path []string, id string) (model.ProcessNode, error) {
	scope, err := g.resolve(path)
	if err != nil {
		return model.ProcessNode{}, err
	}
	n, ok := g.nodes[nodeKey{scope, id}]
	if !ok {
		return model.ProcessNode{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n.SIPOC = n.SIPOC.Clone()
	return n, nil
}

// NewNode 描述要添加的节点，Type 为空时视为 process。
type NewNode struct {
	Type  string   `json:"type"`
	Label string   `json:"label"`
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
}

// AddNode 在 path 层级末尾追加一个节点，SIPOC 各字段为空。
func (g *Graph) AddNode(path []string, in NewNode) (*Graph, model.ProcessNode, error) {
	scope, err := g.resolve(path)
	if err != nil {
		return nil, model.ProcessNode{}, err
	}
	typ := in.Type
	if typ == "" {
		typ = model.NodeProcess
	}
	label, ok := defaultLabels[typ]
	if !ok {
		return nil, model.ProcessNode{}, fmt.Errorf("%w: %s", ErrInvalidNodeType, typ)
	}
	if in.Label != "" {
		label = in.Label
	}
	x, y := float64(DefaultX), float64(DefaultY)
	if in.X != nil {
		x = clamp(*in.X)
	}
	if in.Y != nil {
		y = clamp(*in.Y)
	}

	n := model.ProcessNode{
		ID:    "node-" + uuid.NewString(),
		Label: label,
		Type:  typ,
		SIPOC: model.EmptySIPOC(),
		X:     x,
		Y:     y,
	}
	c := g.clone()
	c.nodes[nodeKey{scope, n.ID}] = n
	c.order[scope] = appendID(g.order[scope], n.ID)
	return c, n, nil
}

// NodePatch 中非 nil 的字段会合并到节点上。
type NodePatch struct {
	Label               *string      `json:"label"`
	Description         *string      `json:"description"`
	Type                *string      `json:"type"`
	DecisionDescription *string      `json:"decisionDescription"`
	IsSubProcess        *bool        `json:"isSubProcess"`
	SIPOC               *model.SIPOC `json:"sipoc"`
	X                   *float64     `json:"x"`
	Y                   *float64     `json:"y"`
}

// UpdateNode 合并 patch 到 path 层级上的节点。
// 打开子流程标志会创建一个空的子层级；关闭则丢弃整个子层级。
func (g *Graph) UpdateNode(path []string, id string, patch NodePatch) (*Graph, model.ProcessNode, error) {
	scope, err := g.resolve(path)
	if err != nil {
		return nil, model.ProcessNode{}, err
	}
	k := nodeKey{scope, id}
	n, ok := g.nodes[k]
	if !ok {
		return nil, model.ProcessNode{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if patch.Type != nil {
		if _, ok := defaultLabels[*patch.Type]; !ok {
			return nil, model.ProcessNode{}, fmt.Errorf("%w: %s", ErrInvalidNodeType, *patch.Type)
		}
		n.Type = *patch.Type
	}
	if patch.Label != nil {
		n.Label = *patch.Label
	}
	if patch.Description != nil {
		n.Description = *patch.Description
	}
	if patch.DecisionDescription != nil {
		n.DecisionDescription = *patch.DecisionDescription
	}
	if patch.SIPOC != nil {
		n.SIPOC = normalizeSIPOC(*patch.SIPOC)
	}
	if patch.X != nil {
		n.X = clamp(*patch.X)
	}
	if patch.Y != nil {
		n.Y = clamp(*patch.Y)
	}

	c := g.clone()
	if patch.IsSubProcess != nil && *patch.IsSubProcess != n.IsSubProcess {
		child := childScope(scope, id)
		if *patch.IsSubProcess {
			c.order[child] = []string{}
			c.links[child] = []model.ProcessLink{}
		} else {
			c.dropScope(child)
		}
		n.IsSubProcess = *patch.IsSubProcess
	}
	c.nodes[k] = n
	return c, n, nil
}

// MoveNode 更新节点坐标，负值被钳制为 0。
func (g *Graph) MoveNode(path []string, id string, x, y float64) (*Graph, error) {
	next, _, err := g.UpdateNode(path, id, NodePatch{X: &x, Y: &y})
	return next, err
}

// DeleteNode 删除节点、它在本层级上的所有入边和出边，以及它的整个子层级。
// 其他层级上的连线不受影响。
func (g *Graph) DeleteNode(path []string, id string) (*Graph, error) {
	scope, err := g.resolve(path)
	if err != nil {
		return nil, err
	}
	k := nodeKey{scope, id}
	n, ok := g.nodes[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	c := g.clone()
	delete(c.nodes, k)
	if n.IsSubProcess {
		c.dropScope(childScope(scope, id))
	}
	ids := make([]string, 0, len(g.order[scope]))
	for _, other := range g.order[scope] {
		if other != id {
			ids = append(ids, other)
		}
	}
	c.order[scope] = ids
	links := make([]model.ProcessLink, 0, len(g.links[scope]))
	for _, l := range g.links[scope] {
		if l.From != id && l.To != id {
			links = append(links, l)
		}
	}
	c.links[scope] = links
	return c, nil
}

// ToggleLink 在同一层级内切换 from -> to 的有向边：已存在则删除，否则新增。
// added 报告本次调用之后边是否存在。
func (g *Graph) ToggleLink(path []string, from, to, label string) (next *Graph, added bool, err error) {
	scope, err := g.resolve(path)
	if err != nil {
		return nil, false, err
	}
	if from == to {
		return nil, false, ErrSelfLink
	}
	for _, id := range []string{from, to} {
		if _, ok := g.nodes[nodeKey{scope, id}]; !ok {
			if g.existsElsewhere(scope, id) {
				return nil, false, fmt.Errorf("%w: %s", ErrCrossLevelLink, id)
			}
			return nil, false, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
	}

	c := g.clone()
	current := g.links[scope]
	for i, l := range current {
		if l.From == from && l.To == to {
			links := make([]model.ProcessLink, 0, len(current)-1)
			links = append(links, current[:i]...)
			links = append(links, current[i+1:]...)
			c.links[scope] = links
			return c, false, nil
		}
	}
	links := make([]model.ProcessLink, 0, len(current)+1)
	links = append(links, current...)
	links = append(links, model.ProcessLink{ID: "link-" + uuid.NewString(), From: from, To: to, Label: label})
	c.links[scope] = links
	return c, true, nil
}

// ReplaceLevel 用给定的节点和连线整体替换 path 层级的内容，原有子层级一并丢弃。
func (g *Graph) ReplaceLevel(path []string, nodes []model.ProcessNode, links []model.ProcessLink) (*Graph, error) {
	scope, err := g.resolve(path)
	if err != nil {
		return nil, err
	}
	c := g.clone()
	for _, id := range g.order[scope] {
		k := nodeKey{scope, id}
		if c.nodes[k].IsSubProcess {
			c.dropScope(childScope(scope, id))
		}
		delete(c.nodes, k)
	}
	c.load(scope, nodes, links)
	return c, nil
}

func appendID(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids...)
	return append(out, id)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
