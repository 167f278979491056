package model

// PAD 的归属类型。
const (
	PADTypeDept = "dept"
	PADTypeUser = "user"
)

// PADEntry 是一条 Plan-Action-Deliverable 记录。
type PADEntry struct {
	Plan         string `json:"plan"`
	Action       string `json:"action"`
	Deliverable  string `json:"deliverable"`
	AlignedOkrID string `json:"alignedOkrId,omitempty"`
}

// WeeklyPAD 对应 'weekly_pads' 表。
// 同一租户内 (WeekID, Type, OwnerID) 标识一份周报，OwnerID 为部门或用户 ID。
type WeeklyPAD struct {
	ID      string     `gorm:"type:varchar(64);primaryKey" json:"id"`
	EntName string     `gorm:"column:ent_name;type:varchar(255);index;not null" json:"-"`
	WeekID  string     `gorm:"column:week_id;type:varchar(50)" json:"weekId"`
	OwnerID string     `gorm:"column:owner_id;type:varchar(64)" json:"ownerId"`
	Type    string     `gorm:"type:varchar(50)" json:"type"`
	Entries []PADEntry `gorm:"column:entries_json;type:longtext;serializer:json" json:"entries"`
}

func (WeeklyPAD) TableName() string {
	return "weekly_pads"
}
