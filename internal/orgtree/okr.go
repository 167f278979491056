package orgtree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"stratflow-go/internal/model"
)

// ErrInvalidWeek 表示周标识不是 "YYYY-W<n>" 的形式。
var ErrInvalidWeek = errors.New("week id must look like 2024-W12")

// 新建 OKR 时的占位文本。
const (
	NewDepartmentObjective = "新目标..."
	NewDepartmentKeyResult = "新指标..."
	NewCompanyObjective    = "新战略目标..."
	NewCompanyKeyResult    = "具体指标..."
)

// WeekQuarter 把 "YYYY-W<n>" 映射到年份和季度：1-13 周为 Q1，14-26 为 Q2，27-39 为 Q3，其余为 Q4。
func WeekQuarter(weekID string) (int, string, error) {
	parts := strings.SplitN(weekID, "-W", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidWeek, weekID)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year <= 0 {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidWeek, weekID)
	}
	week, err := strconv.Atoi(parts[1])
	if err != nil || week < 1 || week > 53 {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidWeek, weekID)
	}
	switch {
	case week <= 13:
		return year, "Q1", nil
	case week <= 26:
		return year, "Q2", nil
	case week <= 39:
		return year, "Q3", nil
	default:
		return year, "Q4", nil
	}
}

func validQuarter(q string) bool {
	for _, v := range model.Quarters {
		if v == q {
			return true
		}
	}
	return false
}

// AlignableOKR 是周报条目可以对齐的一个部门 OKR。
type AlignableOKR struct {
	ID         string `json:"id"`
	Objective  string `json:"name"`
	Department string `json:"dept"`
}

// AlignableOKRs 返回 deptID 部门在该年该季度的 OKR；
// 如果该部门没有（或 deptID 为空），则回退为所有部门在该季度的 OKR。
func AlignableOKRs(tree []model.Department, deptID string, year int, quarter string) []AlignableOKR {
	list := []AlignableOKR{}
	collect := func(d model.Department) {
		for _, o := range d.OKRs[year][quarter] {
			list = append(list, AlignableOKR{ID: o.ID, Objective: o.Objective, Department: d.Name})
		}
	}
	if deptID != "" {
		if d, ok := Find(tree, deptID); ok {
			collect(d)
		}
	}
	if len(list) == 0 {
		Walk(tree, collect)
	}
	return list
}

// AddDepartmentOKR 在部门指定年度和季度下追加一个占位 OKR。
func AddDepartmentOKR(tree []model.Department, deptID string, year int, quarter string) ([]model.Department, model.OKR, error) {
	if !validQuarter(quarter) {
		return nil, model.OKR{}, ErrInvalidQuarter
	}
	okr := model.OKR{
		ID:         "okr-" + uuid.NewString(),
		Objective:  NewDepartmentObjective,
		KeyResults: []string{NewDepartmentKeyResult},
	}
	out, err := update(tree, deptID, func(d *model.Department) error {
		table := model.CloneOKRTable(d.OKRs)
		if table == nil {
			table = map[int]map[string][]model.OKR{}
		}
		if table[year] == nil {
			table[year] = map[string][]model.OKR{}
		}
		table[year][quarter] = append(table[year][quarter], okr)
		d.OKRs = table
		return nil
	})
	if err != nil {
		return nil, model.OKR{}, err
	}
	return out, okr, nil
}

// OKRPatch 中非 nil 的字段会合并到 OKR 上。
type OKRPatch struct {
	Objective   *string   `json:"objective"`
	KeyResults  *[]string `json:"keyResults"`
	AlignedToID *string   `json:"alignedToId"`
}

// Apply 返回合并 patch 之后的 OKR。关键结果会去掉空行。
func (p OKRPatch) Apply(o model.OKR) model.OKR {
	if p.Objective != nil {
		o.Objective = *p.Objective
	}
	if p.KeyResults != nil {
		krs := make([]string, 0, len(*p.KeyResults))
		for _, kr := range *p.KeyResults {
			if kr = strings.TrimSpace(kr); kr != "" {
				krs = append(krs, kr)
			}
		}
		o.KeyResults = krs
	}
	if p.AlignedToID != nil {
		o.AlignedToID = *p.AlignedToID
	}
	return o
}

// UpdateDepartmentOKR 在部门的所有年度和季度中查找 okrID 并应用 patch。
// 对齐目标是软引用，不校验其是否存在。
func UpdateDepartmentOKR(tree []model.Department, deptID, okrID string, patch OKRPatch) ([]model.Department, model.OKR, error) {
	var updated model.OKR
	out, err := update(tree, deptID, func(d *model.Department) error {
		table := model.CloneOKRTable(d.OKRs)
		for _, quarters := range table {
			for q, list := range quarters {
				for i, o := range list {
					if o.ID == okrID {
						updated = patch.Apply(o)
						list[i] = updated
						quarters[q] = list
						d.OKRs = table
						return nil
					}
				}
			}
		}
		return fmt.Errorf("%w: %s", ErrOKRNotFound, okrID)
	})
	if err != nil {
		return nil, model.OKR{}, err
	}
	return out, updated, nil
}

// NewCompanyOKR 返回公司年度 OKR 的占位项。
func NewCompanyOKR() model.OKR {
	return model.OKR{
		ID:         "c-okr-" + uuid.NewString(),
		Objective:  NewCompanyObjective,
		KeyResults: []string{NewCompanyKeyResult},
	}
}
