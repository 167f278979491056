package service

import (
	"context"
	"strings"

	"stratflow-go/internal/model"
)

const (
	defaultSearchSize = 20
	maxSearchSize     = 100
)

// NodeSearcher 是检索索引的读端，由 es.NodeIndex 实现。
type NodeSearcher interface {
	Search(ctx context.Context, entName, q string, size int) ([]model.SearchHit, error)
}

// SearchService 在已发布流程的节点中按关键词检索。
type SearchService interface {
	Search(ctx context.Context, entName, q string, size int) ([]model.SearchHit, error)
}

type searchService struct {
	searcher NodeSearcher
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(searcher NodeSearcher) SearchService {
	return &searchService{searcher: searcher}
}

func (s *searchService) Search(ctx context.Context, entName, q string, size int) ([]model.SearchHit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, validation("检索关键词不能为空")
	}
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}
	return s.searcher.Search(ctx, entName, q, size)
}
