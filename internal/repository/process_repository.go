package repository

import (
	"gorm.io/gorm"

	"stratflow-go/internal/model"
)

// ProcessRepository 接口定义了流程定义的持久化操作。
type ProcessRepository interface {
	FindAll(entName string) ([]model.ProcessDefinition, error)
	FindByID(entName, id string) (*model.ProcessDefinition, error)
	// Save 在 proc.EntName 租户内插入或整体覆盖流程定义（后写者覆盖）。
	// id 属于其他租户时返回 gorm.ErrDuplicatedKey。
	Save(proc *model.ProcessDefinition) error
	Delete(entName, id string) error
}

type processRepository struct {
	db *gorm.DB
}

// NewProcessRepository 创建一个新的 ProcessRepository 实例。
func NewProcessRepository(db *gorm.DB) ProcessRepository {
	return &processRepository{db: db}
}

func (r *processRepository) FindAll(entName string) ([]model.ProcessDefinition, error) {
	var procs []model.ProcessDefinition
	err := r.db.Where("ent_name = ?", entName).Order("updated_at ASC").Find(&procs).Error
	return procs, err
}

func (r *processRepository) FindByID(entName, id string) (*model.ProcessDefinition, error) {
	var proc model.ProcessDefinition
	if err := r.db.Where("ent_name = ? AND id = ?", entName, id).First(&proc).Error; err != nil {
		return nil, err
	}
	return &proc, nil
}

func (r *processRepository) Save(proc *model.ProcessDefinition) error {
	return saveInTenant(r.db, proc, proc.EntName, proc.ID)
}

func (r *processRepository) Delete(entName, id string) error {
	return r.db.Where("ent_name = ? AND id = ?", entName, id).Delete(&model.ProcessDefinition{}).Error
}
