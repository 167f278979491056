// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"stratflow-go/internal/config"
	"stratflow-go/internal/model"
	"stratflow-go/pkg/log"
)

// nodeMapping 是流程节点索引的结构。文本字段使用 ik 中文分词器。
const nodeMapping = `{
	"mappings": {
		"properties": {
			"doc_id": { "type": "keyword" },
			"ent_name": { "type": "keyword" },
			"process_id": { "type": "keyword" },
			"process_name": { "type": "text", "analyzer": "ik_max_word", "search_analyzer": "ik_smart" },
			"version": { "type": "keyword" },
			"node_id": { "type": "keyword" },
			"path": { "type": "keyword" },
			"label": { "type": "text", "analyzer": "ik_max_word", "search_analyzer": "ik_smart" },
			"node_type": { "type": "keyword" },
			"owner_role": { "type": "keyword" },
			"text": { "type": "text", "analyzer": "ik_max_word", "search_analyzer": "ik_smart" }
		}
	}
}`

// NodeIndex 是已发布流程节点的检索索引。
type NodeIndex struct {
	client *elasticsearch.Client
	index  string
}

// NewClient 根据配置创建 Elasticsearch 客户端。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	var addrs []string
	for _, a := range strings.Split(esCfg.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addrs,
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
}

// InitES 初始化 Elasticsearch 客户端并确保索引存在。
func InitES(esCfg config.ElasticsearchConfig) (*NodeIndex, error) {
	client, err := NewClient(esCfg)
	if err != nil {
		return nil, err
	}
	idx := NewNodeIndex(client, esCfg.IndexName)
	if err := idx.createIndexIfNotExists(context.Background()); err != nil {
		return nil, err
	}
	return idx, nil
}

// NewNodeIndex 用已有的客户端构造索引句柄。
func NewNodeIndex(client *elasticsearch.Client, index string) *NodeIndex {
	return &NodeIndex{client: client, index: index}
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func (n *NodeIndex) createIndexIfNotExists(ctx context.Context) error {
	res, err := n.client.Indices.Exists([]string{n.index}, n.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", n.index)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = n.client.Indices.Create(
		n.index,
		n.client.Indices.Create.WithBody(strings.NewReader(nodeMapping)),
		n.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", n.index, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", n.index, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}
	log.Infof("索引 '%s' 创建成功", n.index)
	return nil
}

// IndexNodes 用 bulk 接口批量写入节点文档。
func (n *NodeIndex) IndexNodes(ctx context.Context, docs []model.ProcessNodeDocument) error {
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		meta := map[string]map[string]string{"index": {"_index": n.index, "_id": doc.DocID}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	req := esapi.BulkRequest{Body: &buf, Refresh: "true"}
	res, err := req.Do(ctx, n.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("批量索引流程节点出错: %s", res.String())
		return errors.New("failed to index process nodes")
	}

	var out struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return fmt.Errorf("解析 bulk 响应失败: %w", err)
	}
	if out.Errors {
		return errors.New("bulk response reported item errors")
	}
	return nil
}

// DeleteProcess 删除某个流程的全部节点文档。
func (n *NodeIndex) DeleteProcess(ctx context.Context, entName, processID string) error {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"ent_name": entName}},
					map[string]interface{}{"term": map[string]interface{}{"process_id": processID}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return err
	}
	refresh := true
	req := esapi.DeleteByQueryRequest{Index: []string{n.index}, Body: bytes.NewReader(body), Refresh: &refresh}
	res, err := req.Do(ctx, n.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		log.Errorf("删除流程节点文档出错: %s", res.String())
		return errors.New("failed to delete process nodes")
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64                   `json:"_score"`
			Source model.ProcessNodeDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search 在租户范围内按关键词检索节点。
func (n *NodeIndex) Search(ctx context.Context, entName, q string, size int) ([]model.SearchHit, error) {
	query := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"ent_name": entName}},
				},
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  q,
						"fields": []string{"label^3", "process_name^2", "owner_role^2", "text"},
					},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := n.client.Search(
		n.client.Search.WithContext(ctx),
		n.client.Search.WithIndex(n.index),
		n.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("检索流程节点出错: %s", res.String())
		return nil, errors.New("search request failed")
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("解析检索结果失败: %w", err)
	}
	hits := make([]model.SearchHit, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		d := h.Source
		hits = append(hits, model.SearchHit{
			ProcessID:   d.ProcessID,
			ProcessName: d.ProcessName,
			Version:     d.Version,
			NodeID:      d.NodeID,
			Path:        d.Path,
			Label:       d.Label,
			OwnerRole:   d.OwnerRole,
			Score:       h.Score,
		})
	}
	return hits, nil
}
