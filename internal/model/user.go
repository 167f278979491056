package model

// 用户角色。Admin 可以管理同租户内的其他用户。
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// User 对应 'users' 表，归属于唯一的租户。
// 口令只以 bcrypt 哈希形式落库，且永远不会被序列化到响应中。
type User struct {
	ID           string  `gorm:"type:varchar(64);primaryKey" json:"id"`
	EntName      string  `gorm:"column:ent_name;type:varchar(255);not null;uniqueIndex:idx_users_ent_username" json:"-"`
	Username     string  `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_ent_username" json:"username"`
	PasswordHash string  `gorm:"column:password_hash;type:varchar(255)" json:"-"`
	Name         string  `gorm:"type:varchar(255)" json:"name"`
	Role         string  `gorm:"type:varchar(50);not null" json:"role"`
	DepartmentID *string `gorm:"column:department_id;type:varchar(64)" json:"departmentId,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin 报告用户是否为租户管理员。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
