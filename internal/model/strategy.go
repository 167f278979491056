package model

// Strategy 对应 'strategies' 表，每个租户一行。
type Strategy struct {
	EntName        string        `gorm:"column:ent_name;type:varchar(255);primaryKey" json:"-"`
	Mission        string        `gorm:"type:text" json:"mission"`
	Vision         string        `gorm:"type:text" json:"vision"`
	CustomerIssues string        `gorm:"column:customer_issues;type:text" json:"customerIssues"`
	EmployeeIssues string        `gorm:"column:employee_issues;type:text" json:"employeeIssues"`
	CompanyOKRs    map[int][]OKR `gorm:"column:okrs_json;type:longtext;serializer:json" json:"companyOKRs"`
}

func (Strategy) TableName() string {
	return "strategies"
}

// EmptyStrategy 是租户尚未保存战略时返回的默认值。
func EmptyStrategy(entName string) Strategy {
	return Strategy{EntName: entName, CompanyOKRs: map[int][]OKR{}}
}
