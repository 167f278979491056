package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stratflow-go/internal/model"
)

// StrategyRepository 保存每个租户唯一的一份公司战略。
type StrategyRepository interface {
	// Find 不存在时返回 gorm.ErrRecordNotFound。
	Find(entName string) (*model.Strategy, error)
	Save(strategy *model.Strategy) error
}

type strategyRepository struct {
	db *gorm.DB
}

// NewStrategyRepository 创建一个新的 StrategyRepository 实例。
func NewStrategyRepository(db *gorm.DB) StrategyRepository {
	return &strategyRepository{db: db}
}

func (r *strategyRepository) Find(entName string) (*model.Strategy, error) {
	var s model.Strategy
	if err := r.db.Where("ent_name = ?", entName).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *strategyRepository) Save(strategy *model.Strategy) error {
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(strategy).Error
}
