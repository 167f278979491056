package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stratflow-go/internal/model"
	"stratflow-go/internal/orgtree"
	"stratflow-go/internal/repository"
)

// PADInput 是按 (周, 类型, 归属) 写入一份周报时的请求数据。
type PADInput struct {
	WeekID  string           `json:"weekId"`
	Type    string           `json:"type"`
	OwnerID string           `json:"ownerId"`
	Entries []model.PADEntry `json:"entries"`
}

// PADService 接口定义了周报（PAD）的读写以及可对齐 OKR 的查询。
type PADService interface {
	List(entName string) ([]model.WeeklyPAD, error)
	SaveAll(entName string, pads []model.WeeklyPAD) error
	Upsert(entName string, input PADInput) (*model.WeeklyPAD, error)
	AlignableOKRs(entName, weekID, padType, ownerID string) ([]orgtree.AlignableOKR, error)
}

type padService struct {
	padRepo  repository.PADRepository
	deptRepo repository.DepartmentRepository
	userRepo repository.UserRepository
}

// NewPADService 创建一个新的 PADService 实例。
func NewPADService(padRepo repository.PADRepository, deptRepo repository.DepartmentRepository, userRepo repository.UserRepository) PADService {
	return &padService{padRepo: padRepo, deptRepo: deptRepo, userRepo: userRepo}
}

func validPADType(t string) bool {
	return t == model.PADTypeDept || t == model.PADTypeUser
}

func (s *padService) List(entName string) ([]model.WeeklyPAD, error) {
	pads, err := s.padRepo.FindAll(entName)
	if err != nil {
		return nil, err
	}
	if pads == nil {
		pads = []model.WeeklyPAD{}
	}
	for i := range pads {
		if pads[i].Entries == nil {
			pads[i].Entries = []model.PADEntry{}
		}
	}
	return pads, nil
}

// SaveAll 用给定列表整体替换租户的周报。
func (s *padService) SaveAll(entName string, pads []model.WeeklyPAD) error {
	out := make([]model.WeeklyPAD, 0, len(pads))
	for _, p := range pads {
		if !validPADType(p.Type) {
			return validation("未知的周报类型: %s", p.Type)
		}
		if p.ID == "" {
			p.ID = "pad-" + uuid.NewString()
		}
		if p.Entries == nil {
			p.Entries = []model.PADEntry{}
		}
		out = append(out, p)
	}
	return s.padRepo.ReplaceAll(entName, out)
}

// Upsert 按 (WeekID, Type, OwnerID) 定位周报，存在则替换条目，否则新建。
func (s *padService) Upsert(entName string, input PADInput) (*model.WeeklyPAD, error) {
	if !validPADType(input.Type) {
		return nil, validation("未知的周报类型: %s", input.Type)
	}
	if input.OwnerID == "" {
		return nil, validation("周报归属不能为空")
	}
	if _, _, err := orgtree.WeekQuarter(input.WeekID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if input.Entries == nil {
		input.Entries = []model.PADEntry{}
	}

	pads, err := s.padRepo.FindAll(entName)
	if err != nil {
		return nil, err
	}
	pad := &model.WeeklyPAD{ID: "pad-" + uuid.NewString()}
	for i := range pads {
		p := pads[i]
		if p.WeekID == input.WeekID && p.Type == input.Type && p.OwnerID == input.OwnerID {
			pad = &p
			break
		}
	}
	pad.EntName = entName
	pad.WeekID = input.WeekID
	pad.Type = input.Type
	pad.OwnerID = input.OwnerID
	pad.Entries = input.Entries
	if err := s.padRepo.Save(pad); err != nil {
		return nil, conflict(err, "周报 ID "+pad.ID)
	}
	return pad, nil
}

// AlignableOKRs 返回周报条目在该周所属季度可以对齐的部门 OKR。
// 个人周报按用户所在部门查找；找不到时回退为所有部门该季度的 OKR。
func (s *padService) AlignableOKRs(entName, weekID, padType, ownerID string) ([]orgtree.AlignableOKR, error) {
	year, quarter, err := orgtree.WeekQuarter(weekID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	deptID := ""
	switch padType {
	case model.PADTypeDept:
		deptID = ownerID
	case model.PADTypeUser:
		user, err := s.userRepo.FindByID(entName, ownerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if user != nil && user.DepartmentID != nil {
			deptID = *user.DepartmentID
		}
	default:
		return nil, validation("未知的周报类型: %s", padType)
	}

	rows, err := s.deptRepo.FindAll(entName)
	if err != nil {
		return nil, err
	}
	return orgtree.AlignableOKRs(orgtree.Rebuild(rows), deptID, year, quarter), nil
}
