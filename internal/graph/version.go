package graph

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"stratflow-go/internal/model"
)

// DefaultPublisher 是未提供发布人时记录的名称。
const DefaultPublisher = "System"

// Publish 把当前节点和连线深拷贝为一条历史记录并放到历史最前面，
// 同时设置版本号并把流程标记为已激活。版本号不要求唯一。
func Publish(def model.ProcessDefinition, version, publishedBy string, now time.Time) (model.ProcessDefinition, model.ProcessHistory, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return def, model.ProcessHistory{}, ErrEmptyVersion
	}
	if publishedBy == "" {
		publishedBy = DefaultPublisher
	}
	record := model.ProcessHistory{
		ID:          "hist-" + uuid.NewString(),
		Version:     version,
		Nodes:       CloneNodes(def.Nodes),
		Links:       CloneLinks(def.Links),
		PublishedAt: now.UnixMilli(),
		PublishedBy: publishedBy,
	}
	if record.Nodes == nil {
		record.Nodes = []model.ProcessNode{}
	}
	if record.Links == nil {
		record.Links = []model.ProcessLink{}
	}

	out := def
	out.Version = version
	out.IsActive = true
	out.History = make([]model.ProcessHistory, 0, len(def.History)+1)
	out.History = append(out.History, record)
	out.History = append(out.History, def.History...)
	return out, record, nil
}

// Rollback 把指定历史记录的节点和连线恢复为当前可编辑状态。
// 历史列表、版本号和激活状态都保持不变。
func Rollback(def model.ProcessDefinition, historyID string, now time.Time) (model.ProcessDefinition, error) {
	for _, h := range def.History {
		if h.ID != historyID {
			continue
		}
		out := def
		out.Nodes = CloneNodes(h.Nodes)
		out.Links = CloneLinks(h.Links)
		out.UpdatedAt = now.UnixMilli()
		return out, nil
	}
	return def, ErrHistoryNotFound
}

// CloneNodes 深拷贝节点数组（包括所有嵌套层级），nil 保持为 nil。
func CloneNodes(in []model.ProcessNode) []model.ProcessNode {
	if in == nil {
		return nil
	}
	out := make([]model.ProcessNode, len(in))
	for i, n := range in {
		n.SIPOC = n.SIPOC.Clone()
		n.SubProcessNodes = CloneNodes(n.SubProcessNodes)
		n.SubProcessLinks = CloneLinks(n.SubProcessLinks)
		out[i] = n
	}
	return out
}

// CloneLinks 复制连线数组，nil 保持为 nil。
func CloneLinks(in []model.ProcessLink) []model.ProcessLink {
	if in == nil {
		return nil
	}
	return append(make([]model.ProcessLink, 0, len(in)), in...)
}
