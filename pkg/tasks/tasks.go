// Package tasks defines the events that are sent to Kafka.
package tasks

// 流程事件的类型。
const (
	ActionPublished = "published"
	ActionDeleted   = "deleted"
)

// ProcessEvent 在流程发布或删除后发出，检索索引据此更新。
// 发布事件携带本次发布的历史快照 ID，消费者按快照而非流程当前状态建索引。
type ProcessEvent struct {
	EventID     string `json:"event_id"`
	Action      string `json:"action"`
	EntName     string `json:"ent_name"`
	ProcessID   string `json:"process_id"`
	HistoryID   string `json:"history_id,omitempty"`
	Version     string `json:"version,omitempty"`
	PublishedBy string `json:"published_by,omitempty"`
	OccurredAt  int64  `json:"occurred_at"`
}
