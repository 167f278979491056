package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"stratflow-go/internal/service"
)

// SearchHandler 负责已发布流程节点的检索。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search 按 ?q= 关键词检索，?size= 可选。
func (h *SearchHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	hits, err := h.searchService.Search(c.Request.Context(), c.Param("entId"), c.Query("q"), size)
	if err != nil {
		respondError(c, "SearchNodes", err)
		return
	}
	success(c, hits)
}
