// Package pipeline 消费流程事件，把已发布的流程节点写入检索索引。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"stratflow-go/internal/graph"
	"stratflow-go/internal/model"
	"stratflow-go/internal/repository"
	"stratflow-go/pkg/log"
	"stratflow-go/pkg/tasks"
)

// NodeIndexer 是索引的写入端，由 es.NodeIndex 实现。
type NodeIndexer interface {
	IndexNodes(ctx context.Context, docs []model.ProcessNodeDocument) error
	DeleteProcess(ctx context.Context, entName, processID string) error
}

// Processor 封装了事件处理的所有依赖和逻辑。
type Processor struct {
	processRepo repository.ProcessRepository
	index       NodeIndexer
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(processRepo repository.ProcessRepository, index NodeIndexer) *Processor {
	return &Processor{processRepo: processRepo, index: index}
}

// Process 处理一个流程事件。发布事件会先删除旧文档再写入该版本快照的全部节点。
func (p *Processor) Process(ctx context.Context, evt tasks.ProcessEvent) error {
	switch evt.Action {
	case tasks.ActionDeleted:
		log.Infof("[Processor] 删除流程索引, ent=%s process=%s", evt.EntName, evt.ProcessID)
		return p.index.DeleteProcess(ctx, evt.EntName, evt.ProcessID)
	case tasks.ActionPublished:
		return p.indexPublished(ctx, evt)
	default:
		log.Warnf("[Processor] 未知的事件类型 %q, 已忽略", evt.Action)
		return nil
	}
}

func (p *Processor) indexPublished(ctx context.Context, evt tasks.ProcessEvent) error {
	proc, err := p.processRepo.FindByID(evt.EntName, evt.ProcessID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Processor] 流程已不存在, 跳过索引: %s", evt.ProcessID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("加载流程失败: %w", err)
	}

	var snapshot *model.ProcessHistory
	for i := range proc.History {
		if proc.History[i].ID == evt.HistoryID {
			snapshot = &proc.History[i]
			break
		}
	}
	if snapshot == nil {
		log.Warnf("[Processor] 找不到发布快照 %s, 跳过索引", evt.HistoryID)
		return nil
	}

	docs := Documents(proc, snapshot)
	if err := p.index.DeleteProcess(ctx, evt.EntName, proc.ID); err != nil {
		return fmt.Errorf("清理旧索引失败: %w", err)
	}
	if err := p.index.IndexNodes(ctx, docs); err != nil {
		return fmt.Errorf("写入索引失败: %w", err)
	}
	log.Infof("[Processor] 流程 %s 版本 %s 已索引 %d 个节点", proc.ID, snapshot.Version, len(docs))
	return nil
}

// Documents 把一次发布快照中的所有节点（含嵌套子流程）展开为索引文档。
func Documents(proc *model.ProcessDefinition, snapshot *model.ProcessHistory) []model.ProcessNodeDocument {
	docs := []model.ProcessNodeDocument{}
	graph.Walk(snapshot.Nodes, func(v graph.Visit) {
		n := v.Node
		docs = append(docs, model.ProcessNodeDocument{
			DocID:       proc.ID + ":" + strings.Join(append(v.Path, n.ID), "/"),
			EntName:     proc.EntName,
			ProcessID:   proc.ID,
			ProcessName: proc.Name,
			Version:     snapshot.Version,
			NodeID:      n.ID,
			Path:        v.Path,
			Label:       n.Label,
			NodeType:    n.Type,
			OwnerRole:   n.SIPOC.OwnerRole,
			Text:        nodeText(n),
		})
	})
	return docs
}

func nodeText(n model.ProcessNode) string {
	parts := []string{n.Label, n.Description, n.DecisionDescription}
	s := n.SIPOC
	for _, list := range [][]string{s.Source, s.Target, s.Inputs, s.Outputs, s.Customers} {
		parts = append(parts, list...)
	}
	parts = append(parts, s.Standard)

	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
