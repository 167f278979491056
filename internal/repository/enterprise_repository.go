// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"gorm.io/gorm"

	"stratflow-go/internal/model"
)

// EnterpriseRepository 接口定义了租户的持久化操作。
type EnterpriseRepository interface {
	FindAll() ([]model.Enterprise, error)
	FindByName(name string) (*model.Enterprise, error)
	Count() (int64, error)
	// CreateWorkspace 在同一个事务中创建租户、初始管理员和空战略。
	CreateWorkspace(ent *model.Enterprise, admin *model.User, strategy *model.Strategy) error
	// Delete 在同一个事务中删除租户及其拥有的全部数据。
	Delete(name string) error
}

type enterpriseRepository struct {
	db *gorm.DB
}

// NewEnterpriseRepository 创建一个新的 EnterpriseRepository 实例。
func NewEnterpriseRepository(db *gorm.DB) EnterpriseRepository {
	return &enterpriseRepository{db: db}
}

func (r *enterpriseRepository) FindAll() ([]model.Enterprise, error) {
	var ents []model.Enterprise
	err := r.db.Order("created_at ASC").Find(&ents).Error
	return ents, err
}

// FindByName 根据租户名查找租户，不存在时返回 gorm.ErrRecordNotFound。
func (r *enterpriseRepository) FindByName(name string) (*model.Enterprise, error) {
	var ent model.Enterprise
	if err := r.db.Where("name = ?", name).First(&ent).Error; err != nil {
		return nil, err
	}
	return &ent, nil
}

func (r *enterpriseRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&model.Enterprise{}).Count(&n).Error
	return n, err
}

func (r *enterpriseRepository) CreateWorkspace(ent *model.Enterprise, admin *model.User, strategy *model.Strategy) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ent).Error; err != nil {
			return err
		}
		if admin != nil {
			if err := tx.Create(admin).Error; err != nil {
				return err
			}
		}
		if strategy != nil {
			if err := tx.Create(strategy).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// tenantTables 是归属于租户、需要随租户一起删除的表。
var tenantTables = []interface{}{
	&model.User{},
	&model.ProcessDefinition{},
	&model.DepartmentRow{},
	&model.Strategy{},
	&model.WeeklyPAD{},
}

func (r *enterpriseRepository) Delete(name string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range tenantTables {
			if err := tx.Where("ent_name = ?", name).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Where("name = ?", name).Delete(&model.Enterprise{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
