package repository

import (
	"gorm.io/gorm"

	"stratflow-go/internal/model"
)

// PADRepository 定义了周报（PAD）的持久化操作。
type PADRepository interface {
	FindAll(entName string) ([]model.WeeklyPAD, error)
	// ReplaceAll 删除租户现有的全部周报后重新插入。
	ReplaceAll(entName string, pads []model.WeeklyPAD) error
	// Save 在 pad.EntName 租户内插入或更新单份周报。
	Save(pad *model.WeeklyPAD) error
}

type padRepository struct {
	db *gorm.DB
}

// NewPADRepository 创建一个新的 PADRepository 实例。
func NewPADRepository(db *gorm.DB) PADRepository {
	return &padRepository{db: db}
}

func (r *padRepository) FindAll(entName string) ([]model.WeeklyPAD, error) {
	var pads []model.WeeklyPAD
	err := r.db.Where("ent_name = ?", entName).Order("week_id ASC").Find(&pads).Error
	return pads, err
}

func (r *padRepository) ReplaceAll(entName string, pads []model.WeeklyPAD) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ent_name = ?", entName).Delete(&model.WeeklyPAD{}).Error; err != nil {
			return err
		}
		if len(pads) == 0 {
			return nil
		}
		batch := make([]model.WeeklyPAD, len(pads))
		for i, p := range pads {
			p.EntName = entName
			batch[i] = p
		}
		return tx.CreateInBatches(batch, 100).Error
	})
}

func (r *padRepository) Save(pad *model.WeeklyPAD) error {
	return saveInTenant(r.db, pad, pad.EntName, pad.ID)
}
