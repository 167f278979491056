package repository

import (
	"gorm.io/gorm"

	"stratflow-go/internal/model"
)

// UserRepository 接口定义了用户数据的持久化操作，所有查询都限定在一个租户内。
type UserRepository interface {
	FindAll(entName string) ([]model.User, error)
	FindByID(entName, id string) (*model.User, error)
	FindByUsername(entName, username string) (*model.User, error)
	Create(user *model.User) error
	// Save 在 user.EntName 租户内插入或更新用户，不会改写其他租户的同 ID 记录。
	Save(user *model.User) error
	UpdatePassword(entName, id, passwordHash string) error
	Delete(entName, id string) error
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindAll(entName string) ([]model.User, error) {
	var users []model.User
	err := r.db.Where("ent_name = ?", entName).Order("username ASC").Find(&users).Error
	return users, err
}

func (r *userRepository) FindByID(entName, id string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("ent_name = ? AND id = ?", entName, id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername 在租户内按用户名查找用户。
func (r *userRepository) FindByUsername(entName, username string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("ent_name = ? AND username = ?", entName, username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) Save(user *model.User) error {
	return saveInTenant(r.db, user, user.EntName, user.ID)
}

func (r *userRepository) UpdatePassword(entName, id, passwordHash string) error {
	res := r.db.Model(&model.User{}).Where("ent_name = ? AND id = ?", entName, id).Update("password_hash", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) Delete(entName, id string) error {
	return r.db.Where("ent_name = ? AND id = ?", entName, id).Delete(&model.User{}).Error
}
