package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"stratflow-go/internal/graph"
	"stratflow-go/internal/model"
	"stratflow-go/internal/service"
	"stratflow-go/pkg/log"
)

// maxSketchBytes 限制草图图片大小。
const maxSketchBytes = 10 << 20

// ProcessHandler 负责流程资产与流程图编辑器的 API。
type ProcessHandler struct {
	processService service.ProcessService
}

// NewProcessHandler 创建一个新的 ProcessHandler 实例。
func NewProcessHandler(processService service.ProcessService) *ProcessHandler {
	return &ProcessHandler{processService: processService}
}

func (h *ProcessHandler) List(c *gin.Context) {
	procs, err := h.processService.List(c.Param("entId"))
	if err != nil {
		respondError(c, "ListProcesses", err)
		return
	}
	success(c, procs)
}

// Save 整体保存一个流程定义。
func (h *ProcessHandler) Save(c *gin.Context) {
	var proc model.ProcessDefinition
	if !bindJSON(c, "SaveProcess", &proc) {
		return
	}
	saved, err := h.processService.Save(c.Param("entId"), proc)
	if err != nil {
		respondError(c, "SaveProcess", err)
		return
	}
	success(c, saved)
}

// Create 新建草稿流程。
func (h *ProcessHandler) Create(c *gin.Context) {
	var req service.NewProcessInput
	if !bindJSON(c, "CreateProcess", &req) {
		return
	}
	proc, err := h.processService.Create(c.Param("entId"), req)
	if err != nil {
		respondError(c, "CreateProcess", err)
		return
	}
	success(c, proc)
}

func (h *ProcessHandler) Delete(c *gin.Context) {
	if err := h.processService.Delete(c.Request.Context(), c.Param("entId"), c.Param("procId")); err != nil {
		respondError(c, "DeleteProcess", err)
		return
	}
	success(c, nil)
}

// Catalog 返回流程大厅的条目。
func (h *ProcessHandler) Catalog(c *gin.Context) {
	entries, err := h.processService.Catalog(c.Param("entId"))
	if err != nil {
		respondError(c, "ProcessCatalog", err)
		return
	}
	success(c, entries)
}

func (h *ProcessHandler) Level(c *gin.Context) {
	level, err := h.processService.Level(c.Param("entId"), c.Param("procId"), levelPath(c))
	if err != nil {
		respondError(c, "ProcessLevel", err)
		return
	}
	success(c, level)
}

func (h *ProcessHandler) AddNode(c *gin.Context) {
	var req graph.NewNode
	if !bindJSON(c, "AddNode", &req) {
		return
	}
	node, err := h.processService.AddNode(c.Param("entId"), c.Param("procId"), levelPath(c), req)
	if err != nil {
		respondError(c, "AddNode", err)
		return
	}
	success(c, node)
}

func (h *ProcessHandler) UpdateNode(c *gin.Context) {
	var patch graph.NodePatch
	if !bindJSON(c, "UpdateNode", &patch) {
		return
	}
	node, err := h.processService.UpdateNode(c.Param("entId"), c.Param("procId"), levelPath(c), c.Param("nodeId"), patch)
	if err != nil {
		respondError(c, "UpdateNode", err)
		return
	}
	success(c, node)
}

func (h *ProcessHandler) DeleteNode(c *gin.Context) {
	if err := h.processService.DeleteNode(c.Param("entId"), c.Param("procId"), levelPath(c), c.Param("nodeId")); err != nil {
		respondError(c, "DeleteNode", err)
		return
	}
	success(c, nil)
}

// MoveNodeRequest 是拖动节点后的新坐标。
type MoveNodeRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

func (h *ProcessHandler) MoveNode(c *gin.Context) {
	var req MoveNodeRequest
	if !bindJSON(c, "MoveNode", &req) {
		return
	}
	if err := h.processService.MoveNode(c.Param("entId"), c.Param("procId"), levelPath(c), c.Param("nodeId"), *req.X, *req.Y); err != nil {
		respondError(c, "MoveNode", err)
		return
	}
	success(c, nil)
}

// SIPOCFieldRequest 是单个 SIPOC 字段的文本，列表字段按行拆分。
type SIPOCFieldRequest struct {
	Text string `json:"text"`
}

func (h *ProcessHandler) SetSIPOCField(c *gin.Context) {
	var req SIPOCFieldRequest
	if !bindJSON(c, "SetSIPOCField", &req) {
		return
	}
	node, err := h.processService.SetSIPOCField(c.Param("entId"), c.Param("procId"), levelPath(c), c.Param("nodeId"), c.Param("field"), req.Text)
	if err != nil {
		respondError(c, "SetSIPOCField", err)
		return
	}
	success(c, node)
}

// ImportStandard 接收 multipart 文件，提取文本后写入节点的作业标准。
func (h *ProcessHandler) ImportStandard(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "缺少上传文件")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, "ImportStandard", err)
		return
	}
	defer file.Close()

	node, err := h.processService.ImportStandard(c.Request.Context(), c.Param("entId"), c.Param("procId"), levelPath(c), c.Param("nodeId"), file, fileHeader.Filename)
	if err != nil {
		respondError(c, "ImportStandard", err)
		return
	}
	log.Infof("ImportStandard: '%s' imported into node %s", fileHeader.Filename, c.Param("nodeId"))
	success(c, node)
}

// ToggleLinkRequest 描述要切换的连线。
type ToggleLinkRequest struct {
	From  string `json:"from" binding:"required"`
	To    string `json:"to" binding:"required"`
	Label string `json:"label"`
}

func (h *ProcessHandler) ToggleLink(c *gin.Context) {
	var req ToggleLinkRequest
	if !bindJSON(c, "ToggleLink", &req) {
		return
	}
	added, level, err := h.processService.ToggleLink(c.Param("entId"), c.Param("procId"), levelPath(c), req.From, req.To, req.Label)
	if err != nil {
		respondError(c, "ToggleLink", err)
		return
	}
	success(c, gin.H{"added": added, "level": level})
}

// PublishRequest 是发布时填写的版本号。
type PublishRequest struct {
	Version string `json:"version"`
}

// Publish 发布流程，发布人取当前登录用户。
func (h *ProcessHandler) Publish(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req PublishRequest
	if !bindJSON(c, "PublishProcess", &req) {
		return
	}
	publishedBy := user.Name
	if publishedBy == "" {
		publishedBy = user.Username
	}
	proc, err := h.processService.Publish(c.Request.Context(), c.Param("entId"), c.Param("procId"), req.Version, publishedBy)
	if err != nil {
		respondError(c, "PublishProcess", err)
		return
	}
	success(c, proc)
}

func (h *ProcessHandler) Rollback(c *gin.Context) {
	proc, err := h.processService.Rollback(c.Param("entId"), c.Param("procId"), c.Param("historyId"))
	if err != nil {
		respondError(c, "RollbackProcess", err)
		return
	}
	success(c, proc)
}

// ImportSketch 接收草图图片（multipart 字段 image），识别后替换当前层级。
func (h *ProcessHandler) ImportSketch(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, "缺少草图图片")
		return
	}
	if fileHeader.Size > maxSketchBytes {
		fail(c, http.StatusBadRequest, "草图图片过大")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, "ImportSketch", err)
		return
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		respondError(c, "ImportSketch", err)
		return
	}
	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}

	level, err := h.processService.ImportSketch(c.Request.Context(), c.Param("entId"), c.Param("procId"), levelPath(c), image, mimeType)
	if err != nil {
		respondError(c, "ImportSketch", err)
		return
	}
	success(c, level)
}
