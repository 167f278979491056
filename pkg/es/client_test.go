package es

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratflow-go/internal/model"
)

func newTestIndex(t *testing.T, h http.HandlerFunc) *NodeIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// go-elasticsearch v8 会校验该响应头
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewNodeIndex(client, "nodes")
}

func TestIndexNodesWritesBulkPairs(t *testing.T) {
	var lines []string
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_bulk", r.URL.Path)
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		fmt.Fprint(w, `{"errors":false,"items":[]}`)
	})

	err := idx.IndexNodes(context.Background(), []model.ProcessNodeDocument{
		{DocID: "p1:n1", EntName: "acme", ProcessID: "p1", NodeID: "n1", Label: "询价"},
		{DocID: "p1:n1/n2", EntName: "acme", ProcessID: "p1", NodeID: "n2", Label: "比价"},
	})
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"nodes","_id":"p1:n1"}}`, lines[0])

	var doc model.ProcessNodeDocument
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &doc))
	assert.Equal(t, "比价", doc.Label)
}

func TestIndexNodesReportsItemErrors(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":true,"items":[]}`)
	})
	err := idx.IndexNodes(context.Background(), []model.ProcessNodeDocument{{DocID: "x"}})
	assert.Error(t, err)
}

func TestSearchScopesToTenant(t *testing.T) {
	var body string
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/nodes/_search"))
		b := new(strings.Builder)
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			b.WriteString(sc.Text())
		}
		body = b.String()
		fmt.Fprint(w, `{"hits":{"hits":[{"_score":2.5,"_source":{"process_id":"p1","process_name":"采购流程","node_id":"n2","path":["n1"],"label":"比价","owner_role":"采购专员"}}]}}`)
	})

	hits, err := idx.Search(context.Background(), "acme", "比价", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, model.SearchHit{ProcessID: "p1", ProcessName: "采购流程", NodeID: "n2", Path: []string{"n1"}, Label: "比价", OwnerRole: "采购专员", Score: 2.5}, hits[0])
	assert.Contains(t, body, `"ent_name":"acme"`)
}
