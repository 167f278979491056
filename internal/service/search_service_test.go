package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratflow-go/internal/model"
)

type recordingSearcher struct {
	entName string
	q       string
	size    int
}

func (r *recordingSearcher) Search(_ context.Context, entName, q string, size int) ([]model.SearchHit, error) {
	r.entName, r.q, r.size = entName, q, size
	return []model.SearchHit{{ProcessID: "p1", NodeID: "n1", Label: q}}, nil
}

func TestSearchClampsSize(t *testing.T) {
	rec := &recordingSearcher{}
	svc := NewSearchService(rec)
	ctx := context.Background()

	hits, err := svc.Search(ctx, "acme", "  询价 ", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "询价", rec.q)
	assert.Equal(t, "acme", rec.entName)
	assert.Equal(t, defaultSearchSize, rec.size)

	_, err = svc.Search(ctx, "acme", "询价", 1000)
	require.NoError(t, err)
	assert.Equal(t, maxSearchSize, rec.size)

	_, err = svc.Search(ctx, "acme", " ", 5)
	assert.ErrorIs(t, err, ErrValidation)
}
