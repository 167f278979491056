package model

// AppState 是单个租户的完整工作空间快照。
type AppState struct {
	Processes   []ProcessDefinition `json:"processes"`
	Departments []Department        `json:"departments"`
	Strategy    Strategy            `json:"strategy"`
	Users       []User              `json:"users"`
	WeeklyPADs  []WeeklyPAD         `json:"weeklyPADs"`
}

// ReviewRecord 是一次 AI 评审的记录，按用户保存在 Redis 中。
type ReviewRecord struct {
	Kind      string `json:"kind"` // "okr" 或 "pad"
	Input     string `json:"input"`
	Output    string `json:"output"`
	Timestamp int64  `json:"timestamp"`
}

// ProcessNodeDocument 是已发布流程节点在 Elasticsearch 中的文档结构。
type ProcessNodeDocument struct {
	DocID       string   `json:"doc_id"` // 流程 ID + 节点路径
	EntName     string   `json:"ent_name"`
	ProcessID   string   `json:"process_id"`
	ProcessName string   `json:"process_name"`
	Version     string   `json:"version"`
	NodeID      string   `json:"node_id"`
	Path        []string `json:"path"`
	Label       string   `json:"label"`
	NodeType    string   `json:"node_type"`
	OwnerRole   string   `json:"owner_role"`
	Text        string   `json:"text"`
}

// SearchHit 是流程节点检索返回给前端的结果。
type SearchHit struct {
	ProcessID   string   `json:"processId"`
	ProcessName string   `json:"processName"`
	Version     string   `json:"version"`
	NodeID      string   `json:"nodeId"`
	Path        []string `json:"path"`
	Label       string   `json:"label"`
	OwnerRole   string   `json:"ownerRole"`
	Score       float64  `json:"score"`
}
