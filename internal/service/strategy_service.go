package service

import (
	"errors"

	"gorm.io/gorm"

	"stratflow-go/internal/model"
	"stratflow-go/internal/orgtree"
	"stratflow-go/internal/repository"
)

// StrategyService 接口定义了公司战略（使命、愿景、年度 OKR）的读写。
type StrategyService interface {
	Get(entName string) (model.Strategy, error)
	Save(entName string, strategy model.Strategy) error
	AddCompanyOKR(entName string, year int) (model.OKR, error)
}

type strategyService struct {
	strategyRepo repository.StrategyRepository
}

// NewStrategyService 创建一个新的 StrategyService 实例。
func NewStrategyService(strategyRepo repository.StrategyRepository) StrategyService {
	return &strategyService{strategyRepo: strategyRepo}
}

// Get 返回租户的战略，尚未保存过时返回空战略而不是错误。
func (s *strategyService) Get(entName string) (model.Strategy, error) {
	st, err := s.strategyRepo.Find(entName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.EmptyStrategy(entName), nil
	}
	if err != nil {
		return model.Strategy{}, err
	}
	if st.CompanyOKRs == nil {
		st.CompanyOKRs = map[int][]model.OKR{}
	}
	return *st, nil
}

func (s *strategyService) Save(entName string, strategy model.Strategy) error {
	strategy.EntName = entName
	if strategy.CompanyOKRs == nil {
		strategy.CompanyOKRs = map[int][]model.OKR{}
	}
	return s.strategyRepo.Save(&strategy)
}

// AddCompanyOKR 在指定年度追加一个占位的公司 OKR。
func (s *strategyService) AddCompanyOKR(entName string, year int) (model.OKR, error) {
	if year <= 0 {
		return model.OKR{}, validation("年度不合法: %d", year)
	}
	st, err := s.Get(entName)
	if err != nil {
		return model.OKR{}, err
	}
	okr := orgtree.NewCompanyOKR()
	okrs := make(map[int][]model.OKR, len(st.CompanyOKRs)+1)
	for y, list := range st.CompanyOKRs {
		okrs[y] = model.CloneOKRs(list)
	}
	okrs[year] = append(okrs[year], okr)
	st.CompanyOKRs = okrs
	if err := s.Save(entName, st); err != nil {
		return model.OKR{}, err
	}
	return okr, nil
}
