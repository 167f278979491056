package model

// Department 是组织树中的一个节点，子部门按插入顺序保存。
// OKRs 按 年 -> 季度 -> OKR 列表 组织。
type Department struct {
	ID             string                   `json:"id"`
	Name           string                   `json:"name"`
	Manager        string                   `json:"manager,omitempty"`
	Roles          []string                 `json:"roles"`
	SubDepartments []Department             `json:"subDepartments,omitempty"`
	OKRs           map[int]map[string][]OKR `json:"okrs,omitempty"`
}

// DepartmentRow 是部门的扁平表示，对应 'departments' 表。
// ParentID 为空表示根部门；Position 记录保存时的先序位置，读取时据此恢复兄弟顺序。
type DepartmentRow struct {
	ID       string                   `gorm:"type:varchar(64);primaryKey" json:"id"`
	EntName  string                   `gorm:"column:ent_name;type:varchar(255);index;not null" json:"-"`
	Name     string                   `gorm:"type:varchar(255)" json:"name"`
	Manager  string                   `gorm:"type:varchar(255)" json:"manager,omitempty"`
	Roles    []string                 `gorm:"column:roles_json;type:text;serializer:json" json:"roles"`
	OKRs     map[int]map[string][]OKR `gorm:"column:okrs_json;type:longtext;serializer:json" json:"okrs,omitempty"`
	ParentID *string                  `gorm:"column:parent_id;type:varchar(64)" json:"parent_id"`
	Position int                      `gorm:"not null;default:0" json:"-"`
}

func (DepartmentRow) TableName() string {
	return "departments"
}

// CloneOKRTable 深拷贝部门的 OKR 表。
func CloneOKRTable(in map[int]map[string][]OKR) map[int]map[string][]OKR {
	if in == nil {
		return nil
	}
	out := make(map[int]map[string][]OKR, len(in))
	for year, quarters := range in {
		q := make(map[string][]OKR, len(quarters))
		for k, v := range quarters {
			q[k] = CloneOKRs(v)
		}
		out[year] = q
	}
	return out
}
