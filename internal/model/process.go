package model

// 流程节点的四种形态。
const (
	NodeStart    = "start"
	NodeProcess  = "process"
	NodeDecision = "decision"
	NodeEnd      = "end"
)

// 流程分类，固定四种。
const (
	CategorySupply    = "供应链"
	CategoryDemand    = "需求链"
	CategoryProduct   = "产品研发"
	CategoryAuxiliary = "辅助体系"
)

const (
	ProcessTypeMain      = "main"
	ProcessTypeAuxiliary = "auxiliary"
	// DraftVersion 是新建流程的版本标签。
	DraftVersion = "Draft"
)

// ValidCategory 报告 c 是否为合法的流程分类。
func ValidCategory(c string) bool {
	switch c {
	case CategorySupply, CategoryDemand, CategoryProduct, CategoryAuxiliary:
		return true
	}
	return false
}

// SIPOC 是节点上可编辑的六类属性。列表字段保存修剪后的非空字符串，Standard 原样保存。
type SIPOC struct {
	Source    []string `json:"source"`
	Target    []string `json:"target"`
	Inputs    []string `json:"inputs"`
	Outputs   []string `json:"outputs"`
	Customers []string `json:"customers"`
	Standard  string   `json:"standard"`
	OwnerRole string   `json:"ownerRole"`
}

// EmptySIPOC 返回所有列表字段都已初始化为空的 SIPOC。
func EmptySIPOC() SIPOC {
	return SIPOC{Source: []string{}, Target: []string{}, Inputs: []string{}, Outputs: []string{}, Customers: []string{}}
}

// Clone 深拷贝 SIPOC。
func (s SIPOC) Clone() SIPOC {
	s.Source = cloneStrings(s.Source)
	s.Target = cloneStrings(s.Target)
	s.Inputs = cloneStrings(s.Inputs)
	s.Outputs = cloneStrings(s.Outputs)
	s.Customers = cloneStrings(s.Customers)
	return s
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

// ProcessNode 是流程图中的节点。
// 只有 IsSubProcess 为 true 时 SubProcessNodes / SubProcessLinks 才有意义，嵌套深度不限。
type ProcessNode struct {
	ID                  string        `json:"id"`
	Label               string        `json:"label"`
	Description         string        `json:"description"`
	Type                string        `json:"type"`
	SIPOC               SIPOC         `json:"sipoc"`
	DecisionDescription string        `json:"decisionDescription,omitempty"`
	IsSubProcess        bool          `json:"isSubProcess,omitempty"`
	SubProcessNodes     []ProcessNode `json:"subProcessNodes,omitempty"`
	SubProcessLinks     []ProcessLink `json:"subProcessLinks,omitempty"`
	X                   float64       `json:"x"`
	Y                   float64       `json:"y"`
}

// ProcessLink 是同一层级内两个节点之间的有向边。
type ProcessLink struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// ProcessHistory 是一次发布时的不可变快照。
type ProcessHistory struct {
	ID          string        `json:"id"`
	Version     string        `json:"version"`
	Nodes       []ProcessNode `json:"nodes"`
	Links       []ProcessLink `json:"links"`
	PublishedAt int64         `json:"publishedAt"`
	PublishedBy string        `json:"publishedBy"`
}

// ProcessDefinition 对应 'processes' 表，节点、连线与历史以 JSON 列保存。
type ProcessDefinition struct {
	ID        string           `gorm:"type:varchar(64);primaryKey" json:"id"`
	EntName   string           `gorm:"column:ent_name;type:varchar(255);index;not null" json:"-"`
	Name      string           `gorm:"type:varchar(255)" json:"name"`
	Category  string           `gorm:"type:varchar(255)" json:"category"`
	Level     int              `json:"level"`
	Type      string           `gorm:"type:varchar(50)" json:"type"`
	Version   string           `gorm:"type:varchar(50)" json:"version"`
	IsActive  bool             `json:"isActive"`
	Owner     string           `gorm:"type:varchar(255)" json:"owner"`
	CoOwner   string           `gorm:"column:co_owner;type:varchar(255)" json:"coOwner"`
	Objective string           `gorm:"type:text" json:"objective"`
	Nodes     []ProcessNode    `gorm:"column:nodes_json;type:longtext;serializer:json" json:"nodes"`
	Links     []ProcessLink    `gorm:"column:links_json;type:longtext;serializer:json" json:"links"`
	History   []ProcessHistory `gorm:"column:history_json;type:longtext;serializer:json" json:"history"`
	UpdatedAt int64            `gorm:"column:updated_at;autoUpdateTime:milli" json:"updatedAt"`
}

func (ProcessDefinition) TableName() string {
	return "processes"
}

// TypeForCategory 辅助体系归为 auxiliary，其余为 main。
func TypeForCategory(category string) string {
	if category == CategoryAuxiliary {
		return ProcessTypeAuxiliary
	}
	return ProcessTypeMain
}
