package model

// OKR 由一个目标和有序的关键结果组成。
// AlignedToID 是对上级 OKR 的软引用，不做存在性校验。
type OKR struct {
	ID          string   `json:"id"`
	Objective   string   `json:"objective"`
	KeyResults  []string `json:"keyResults"`
	AlignedToID string   `json:"alignedToId,omitempty"`
}

// Quarters 是部门 OKR 使用的季度键。
var Quarters = []string{"Q1", "Q2", "Q3", "Q4"}

// CloneOKRs 深拷贝一组 OKR。
func CloneOKRs(in []OKR) []OKR {
	if in == nil {
		return nil
	}
	out := make([]OKR, len(in))
	for i, o := range in {
		o.KeyResults = append([]string(nil), o.KeyResults...)
		out[i] = o
	}
	return out
}
