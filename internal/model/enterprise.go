// Package model 定义了与数据库表对应的 Go 结构体以及工作空间的 JSON 形态。
package model

import "time"

// Enterprise 对应 'enterprises' 表，是租户的身份。
// 名称即主键，创建后不再原地更新；删除时级联清理所有归属数据。
type Enterprise struct {
	Name         string    `gorm:"type:varchar(255);primaryKey" json:"name"`
	DisplayName  string    `gorm:"type:varchar(255);not null" json:"displayName"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255)" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"-"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Enterprise) TableName() string {
	return "enterprises"
}

// EnterpriseSummary 是租户列表接口返回的公开视图，不包含任何口令信息。
type EnterpriseSummary struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	CreatedAt   LocalTime `json:"createdAt"`
}

// Summary 生成租户的公开视图。
func (e Enterprise) Summary() EnterpriseSummary {
	return EnterpriseSummary{Name: e.Name, DisplayName: e.DisplayName, CreatedAt: LocalTime(e.CreatedAt)}
}
