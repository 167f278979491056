package handler

import (
	"github.com/gin-gonic/gin"

	"stratflow-go/internal/model"
	"stratflow-go/internal/service"
)

// StrategyHandler 负责公司战略的 API。
type StrategyHandler struct {
	strategyService service.StrategyService
}

// NewStrategyHandler 创建一个新的 StrategyHandler 实例。
func NewStrategyHandler(strategyService service.StrategyService) *StrategyHandler {
	return &StrategyHandler{strategyService: strategyService}
}

func (h *StrategyHandler) Get(c *gin.Context) {
	st, err := h.strategyService.Get(c.Param("entId"))
	if err != nil {
		respondError(c, "GetStrategy", err)
		return
	}
	success(c, st)
}

func (h *StrategyHandler) Save(c *gin.Context) {
	var st model.Strategy
	if !bindJSON(c, "SaveStrategy", &st) {
		return
	}
	if err := h.strategyService.Save(c.Param("entId"), st); err != nil {
		respondError(c, "SaveStrategy", err)
		return
	}
	success(c, nil)
}

type companyOKRRequest struct {
	Year int `json:"year" binding:"required"`
}

// AddOKR 追加一个年度公司 OKR。
func (h *StrategyHandler) AddOKR(c *gin.Context) {
	var req companyOKRRequest
	if !bindJSON(c, "AddCompanyOKR", &req) {
		return
	}
	okr, err := h.strategyService.AddCompanyOKR(c.Param("entId"), req.Year)
	if err != nil {
		respondError(c, "AddCompanyOKR", err)
		return
	}
	success(c, okr)
}
