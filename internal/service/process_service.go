package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"stratflow-go/internal/graph"
	"stratflow-go/internal/model"
	"stratflow-go/internal/repository"
	"stratflow-go/pkg/llm"
	"stratflow-go/pkg/log"
	"stratflow-go/pkg/metrics"
	"stratflow-go/pkg/tasks"
)

// sketchPrompt 要求视觉模型按固定结构返回识别出的流程步骤和连线。
const sketchPrompt = `你是一名专业的业务流程分析师。
请分析图片中手绘或草拟的业务流程图，提取关键步骤（节点）以及流转顺序（连线）。

严格按以下结构返回一个 JSON 对象，不要输出其他内容：
{
  "nodes": [
    {"label": "简短的步骤名称", "type": "start|process|decision|end", "description": "任务的简短说明", "x": 0-1000, "y": 0-1000}
  ],
  "links": [
    {"fromIndex": 源节点在 nodes 中的下标, "toIndex": 目标节点在 nodes 中的下标}
  ]
}

要求：识别逻辑上的开始和结束；有分支时使用 decision；标签使用"动词+名词"；坐标排布整齐。`

// TextExtractor 从上传的文档中提取纯文本，由 tika.Client 实现。
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// ObjectStore 是对象存储的最小接口，由 storage.Bucket 实现。
type ObjectStore interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// NewProcessInput 是新建流程的请求数据。
type NewProcessInput struct {
	Category string `json:"category"`
	Level    int    `json:"level"`
	Name     string `json:"name"`
}

// ProcessService 接口定义了流程资产的增删改查以及流程图编辑器的全部操作。
// 编辑操作通过 path（子流程节点 ID 序列）定位层级，每次操作都会整体保存流程。
type ProcessService interface {
	List(entName string) ([]model.ProcessDefinition, error)
	Get(entName, id string) (*model.ProcessDefinition, error)
	Save(entName string, proc model.ProcessDefinition) (*model.ProcessDefinition, error)
	Create(entName string, input NewProcessInput) (*model.ProcessDefinition, error)
	Delete(ctx context.Context, entName, id string) error
	Catalog(entName string) ([]graph.CatalogEntry, error)

	Level(entName, id string, path []string) (graph.Level, error)
	AddNode(entName, id string, path []string, in graph.NewNode) (model.ProcessNode, error)
	UpdateNode(entName, id string, path []string, nodeID string, patch graph.NodePatch) (model.ProcessNode, error)
	MoveNode(entName, id string, path []string, nodeID string, x, y float64) error
	DeleteNode(entName, id string, path []string, nodeID string) error
	SetSIPOCField(entName, id string, path []string, nodeID, field, text string) (model.ProcessNode, error)
	ImportStandard(ctx context.Context, entName, id string, path []string, nodeID string, file io.Reader, fileName string) (model.ProcessNode, error)
	ToggleLink(entName, id string, path []string, from, to, label string) (bool, graph.Level, error)

	Publish(ctx context.Context, entName, id, version, publishedBy string) (*model.ProcessDefinition, error)
	Rollback(entName, id, historyID string) (*model.ProcessDefinition, error)
	ImportSketch(ctx context.Context, entName, id string, path []string, image []byte, mimeType string) (graph.Level, error)
}

type processService struct {
	processRepo repository.ProcessRepository
	events      EventPublisher
	extractor   TextExtractor
	store       ObjectStore
	llmClient   llm.Client
}

// NewProcessService 创建一个新的 ProcessService 实例。
// events、extractor、store、llmClient 都可以为 nil，对应功能会降级或报错。
func NewProcessService(processRepo repository.ProcessRepository, events EventPublisher, extractor TextExtractor, store ObjectStore, llmClient llm.Client) ProcessService {
	return &processService{
		processRepo: processRepo,
		events:      events,
		extractor:   extractor,
		store:       store,
		llmClient:   llmClient,
	}
}

func normalizeProcess(p *model.ProcessDefinition) {
	if p.Nodes == nil {
		p.Nodes = []model.ProcessNode{}
	}
	if p.Links == nil {
		p.Links = []model.ProcessLink{}
	}
	if p.History == nil {
		p.History = []model.ProcessHistory{}
	}
}

func (s *processService) List(entName string) ([]model.ProcessDefinition, error) {
	procs, err := s.processRepo.FindAll(entName)
	if err != nil {
		return nil, err
	}
	if procs == nil {
		procs = []model.ProcessDefinition{}
	}
	for i := range procs {
		normalizeProcess(&procs[i])
	}
	return procs, nil
}

func (s *processService) Get(entName, id string) (*model.ProcessDefinition, error) {
	proc, err := s.processRepo.FindByID(entName, id)
	if err != nil {
		return nil, notFound(err, "process "+id)
	}
	normalizeProcess(proc)
	return proc, nil
}

// Save 整体写入流程定义，后写者覆盖。
func (s *processService) Save(entName string, proc model.ProcessDefinition) (*model.ProcessDefinition, error) {
	if proc.ID == "" {
		proc.ID = "proc-" + uuid.NewString()
	}
	if proc.Category != "" && !model.ValidCategory(proc.Category) {
		return nil, validation("未知的流程分类: %s", proc.Category)
	}
	proc.EntName = entName
	if proc.Type == "" {
		proc.Type = model.TypeForCategory(proc.Category)
	}
	if proc.UpdatedAt == 0 {
		proc.UpdatedAt = time.Now().UnixMilli()
	}
	normalizeProcess(&proc)
	if err := s.processRepo.Save(&proc); err != nil {
		return nil, conflict(err, "流程 ID "+proc.ID)
	}
	return &proc, nil
}

// Create 新建一个空白的草稿流程。
func (s *processService) Create(entName string, input NewProcessInput) (*model.ProcessDefinition, error) {
	if !model.ValidCategory(input.Category) {
		return nil, validation("未知的流程分类: %s", input.Category)
	}
	if input.Level == 0 {
		input.Level = 1
	}
	if input.Level != 1 && input.Level != 2 {
		return nil, validation("流程层级只能是 1 或 2")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, validation("流程名称不能为空")
	}
	proc := model.ProcessDefinition{
		ID:        "proc-" + uuid.NewString(),
		Name:      name,
		Category:  input.Category,
		Level:     input.Level,
		Type:      model.TypeForCategory(input.Category),
		Version:   model.DraftVersion,
		IsActive:  false,
		UpdatedAt: time.Now().UnixMilli(),
	}
	return s.Save(entName, proc)
}

func (s *processService) Delete(ctx context.Context, entName, id string) error {
	if err := s.processRepo.Delete(entName, id); err != nil {
		return err
	}
	s.emit(ctx, tasks.ProcessEvent{Action: tasks.ActionDeleted, EntName: entName, ProcessID: id})
	return nil
}

func (s *processService) Catalog(entName string) ([]graph.CatalogEntry, error) {
	procs, err := s.List(entName)
	if err != nil {
		return nil, err
	}
	return graph.Catalog(procs), nil
}

// edit 加载流程，在图上执行 fn，然后把结果写回。
func (s *processService) edit(entName, id string, fn func(g *graph.Graph) (*graph.Graph, error)) (*model.ProcessDefinition, error) {
	proc, err := s.Get(entName, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(graph.FromTree(proc.Nodes, proc.Links))
	if err != nil {
		return nil, err
	}
	proc.Nodes, proc.Links = next.Tree()
	proc.UpdatedAt = time.Now().UnixMilli()
	if err := s.processRepo.Save(proc); err != nil {
		return nil, err
	}
	return proc, nil
}

func (s *processService) Level(entName, id string, path []string) (graph.Level, error) {
	proc, err := s.Get(entName, id)
	if err != nil {
		return graph.Level{}, err
	}
	return graph.FromTree(proc.Nodes, proc.Links).Level(path)
}

func (s *processService) AddNode(entName, id string, path []string, in graph.NewNode) (model.ProcessNode, error) {
	var node model.ProcessNode
	_, err := s.edit(entName, id, func(g *graph.Graph) (*graph.Graph, error) {
		next, n, err := g.AddNode(path, in)
		node = n
		return next, err
	})
	return node, err
}

func (s *processService) UpdateNode(entName, id string, path []string, nodeID string, patch graph.NodePatch) (model.ProcessNode, error) {
	var node model.ProcessNode
	_, err := s.edit(entName, id, func(g *graph.Graph) (*graph.Graph, error) {
		next, n, err := g.UpdateNode(path, nodeID, patch)
		node = n
		return next, err
	})
	return node, err
}

func (s *processService) MoveNode(entName, id string, path []string, nodeID string, x, y float64) error {
	_, err := s.edit(entName, id, func(g *graph.Graph) (*graph.Graph, error) {
		return g.MoveNode(path, nodeID, x, y)
	})
	return err
}

func (s *processService) DeleteNode(entName, id string, path []string, nodeID string) error {
	_, err := s.edit(entName, id, func(g *graph.Graph) (*graph.Graph, error) {
		return g.DeleteNode(path, nodeID)
	})
	return err
}

func (s *processService) SetSIPOCField(entName, id string, path []string, nodeID, field, text string) (model.ProcessNode, error) {
	var node model.ProcessNode
	_, err := s.edit(entName, id, func(g *graph.Graph) (*graph.Graph, error) {
		next, n, err := g.SetSIPOCField(path, nodeID, field, text)
		node = n
		return next, err
	})
	return node, err
}

// ImportStandard 用 Tika 提取上传文档的文本，写入节点的作业标准字段。
func (s *processService) ImportStandard(ctx context.Context, entName, id string, path []string, nodeID string, file io.Reader, fileName string) (model.ProcessNode, error) {
	if s.extractor == nil {
		return model.ProcessNode{}, fmt.Errorf("%w: 文档解析服务未配置", ErrDependencyUnavailable)
	}
	text, err := s.extractor.ExtractText(ctx, file, fileName)
	if err != nil {
		return model.ProcessNode{}, fmt.Errorf("提取文档文本失败: %w", err)
	}
	if text == "" {
		return model.ProcessNode{}, validation("文档中没有可提取的文本")
	}
	return s.SetSIPOCField(entName, id, path, nodeID, graph.FieldStandard, text)
}

func (s *processService) ToggleLink(entName, id string, path []string, from, to, label string) (bool, graph.Level, error) {
	var added bool
	var level graph.Level
	_, err := s.edit(entName, id, func(g *graph.Graph) (*graph.Graph, error) {
		next, a, err := g.ToggleLink(path, from, to, label)
		if err != nil {
			return nil, err
		}
		added = a
		level, err = next.Level(path)
		return next, err
	})
	return added, level, err
}

// Publish 发布当前版本并发出事件，索引按发布快照更新。
func (s *processService) Publish(ctx context.Context, entName, id, version, publishedBy string) (*model.ProcessDefinition, error) {
	proc, err := s.Get(entName, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	next, record, err := graph.Publish(*proc, version, publishedBy, now)
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = now.UnixMilli()
	if err := s.processRepo.Save(&next); err != nil {
		return nil, err
	}
	log.Infof("[ProcessService] 流程 %s 发布版本 %s (by %s)", id, record.Version, record.PublishedBy)
	s.emit(ctx, tasks.ProcessEvent{
		Action:      tasks.ActionPublished,
		EntName:     entName,
		ProcessID:   id,
		HistoryID:   record.ID,
		Version:     record.Version,
		PublishedBy: record.PublishedBy,
	})
	return &next, nil
}

func (s *processService) Rollback(entName, id, historyID string) (*model.ProcessDefinition, error) {
	proc, err := s.Get(entName, id)
	if err != nil {
		return nil, err
	}
	next, err := graph.Rollback(*proc, historyID, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.processRepo.Save(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

// ImportSketch 识别草图并用结果替换 path 层级的全部节点和连线。
// 原图会归档到对象存储，归档失败不影响识别。
func (s *processService) ImportSketch(ctx context.Context, entName, id string, path []string, image []byte, mimeType string) (graph.Level, error) {
	if s.llmClient == nil {
		return graph.Level{}, ErrAIUnavailable
	}
	if len(image) == 0 {
		return graph.Level{}, validation("草图图片不能为空")
	}
	// 先确认流程和层级存在，避免白白调用模型
	if _, err := s.Level(entName, id, path); err != nil {
		return graph.Level{}, err
	}

	if s.store != nil {
		object := fmt.Sprintf("sketches/%s/%s/%d", entName, id, time.Now().UnixMilli())
		if err := s.store.Put(ctx, object, image, mimeType); err != nil {
			log.Warnf("[ProcessService] 归档草图失败: %v", err)
		}
	}

	raw, err := s.llmClient.Vision(ctx, sketchPrompt, image, mimeType)
	metrics.ObserveAICall("sketch", err)
	if err != nil {
		log.Errorf("[ProcessService] 草图识别失败: %v", err)
		return graph.Level{}, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	sketch, err := llm.ExtractJSON[graph.Sketch](raw, nil)
	if err != nil {
		return graph.Level{}, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	nodes, links := graph.FromSketch(sketch)

	var level graph.Level
	_, err = s.edit(entName, id, func(g *graph.Graph) (*graph.Graph, error) {
		next, err := g.ReplaceLevel(path, nodes, links)
		if err != nil {
			return nil, err
		}
		level, err = next.Level(path)
		return next, err
	})
	return level, err
}

// emit 发送流程事件，失败只记录日志，不影响主流程。
func (s *processService) emit(ctx context.Context, evt tasks.ProcessEvent) {
	if s.events == nil {
		return
	}
	evt.EventID = uuid.NewString()
	evt.OccurredAt = time.Now().UnixMilli()
	err := s.events.PublishProcessEvent(ctx, evt)
	metrics.ObserveProcessEvent(err)
	if err != nil {
		log.Warnf("[ProcessService] 发送流程事件失败: %s/%s: %v", evt.EntName, evt.ProcessID, err)
	}
}
