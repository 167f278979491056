package handler

import (
	"github.com/gin-gonic/gin"

	"stratflow-go/internal/model"
	"stratflow-go/internal/service"
)

// PADHandler 负责周报（PAD）的 API。
type PADHandler struct {
	padService service.PADService
}

// NewPADHandler 创建一个新的 PADHandler 实例。
func NewPADHandler(padService service.PADService) *PADHandler {
	return &PADHandler{padService: padService}
}

func (h *PADHandler) List(c *gin.Context) {
	pads, err := h.padService.List(c.Param("entId"))
	if err != nil {
		respondError(c, "ListPADs", err)
		return
	}
	success(c, pads)
}

func (h *PADHandler) SaveAll(c *gin.Context) {
	var pads []model.WeeklyPAD
	if !bindJSON(c, "SavePADs", &pads) {
		return
	}
	if err := h.padService.SaveAll(c.Param("entId"), pads); err != nil {
		respondError(c, "SavePADs", err)
		return
	}
	success(c, nil)
}

// Upsert 按 (周, 类型, 归属) 写入一份周报。
func (h *PADHandler) Upsert(c *gin.Context) {
	var req service.PADInput
	if !bindJSON(c, "UpsertPAD", &req) {
		return
	}
	pad, err := h.padService.Upsert(c.Param("entId"), req)
	if err != nil {
		respondError(c, "UpsertPAD", err)
		return
	}
	success(c, pad)
}

// AlignableOKRs 返回周报条目可对齐的部门 OKR。
func (h *PADHandler) AlignableOKRs(c *gin.Context) {
	okrs, err := h.padService.AlignableOKRs(c.Param("entId"), c.Query("weekId"), c.Query("type"), c.Query("ownerId"))
	if err != nil {
		respondError(c, "AlignableOKRs", err)
		return
	}
	success(c, okrs)
}
