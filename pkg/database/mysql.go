// Package database 负责初始化 MySQL 与 Redis 连接。
package database

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"stratflow-go/internal/model"
	"stratflow-go/pkg/log"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 数据库连接，并自动迁移所有表结构。
func InitMySQL(dsn string) {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		// 把唯一键冲突翻译为 gorm.ErrDuplicatedKey，便于识别重复租户
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间

	if err := AutoMigrate(DB); err != nil {
		log.Fatal("failed to migrate database", err)
	}

	log.Info("MySQL database connected successfully")
}

// AutoMigrate 创建或更新所有租户数据表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Enterprise{},
		&model.User{},
		&model.ProcessDefinition{},
		&model.DepartmentRow{},
		&model.Strategy{},
		&model.WeeklyPAD{},
	)
}
