package repository

import (
	"gorm.io/gorm"

	"stratflow-go/internal/model"
)

// DepartmentRepository 以扁平行的形式保存租户的部门树。
type DepartmentRepository interface {
	// FindAll 按保存时的先序位置返回全部部门行。
	FindAll(entName string) ([]model.DepartmentRow, error)
	// ReplaceAll 删除租户现有的全部部门行后按顺序重新插入。
	ReplaceAll(entName string, rows []model.DepartmentRow) error
}

type departmentRepository struct {
	db *gorm.DB
}

// NewDepartmentRepository 创建一个新的 DepartmentRepository 实例。
func NewDepartmentRepository(db *gorm.DB) DepartmentRepository {
	return &departmentRepository{db: db}
}

func (r *departmentRepository) FindAll(entName string) ([]model.DepartmentRow, error) {
	var rows []model.DepartmentRow
	err := r.db.Where("ent_name = ?", entName).Order("position ASC").Find(&rows).Error
	return rows, err
}

func (r *departmentRepository) ReplaceAll(entName string, rows []model.DepartmentRow) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ent_name = ?", entName).Delete(&model.DepartmentRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		batch := make([]model.DepartmentRow, len(rows))
		for i, row := range rows {
			row.EntName = entName
			row.Position = i
			batch[i] = row
		}
		return tx.CreateInBatches(batch, 100).Error
	})
}
