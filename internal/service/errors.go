// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// 业务层的错误分类，handler 据此映射 HTTP 状态码。
var (
	ErrValidation         = errors.New("validation failed")
	ErrEnterpriseExists   = errors.New("enterprise already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrAIUnavailable      = errors.New("ai service unavailable")
	// ErrConflict 表示客户端指定的 ID 已被其他租户占用。
	ErrConflict = errors.New("id already in use")
	// ErrDependencyUnavailable 表示文档解析、对象存储等外部依赖未配置。
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

func validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFound 把 gorm 的记录不存在翻译为 ErrNotFound，其余错误原样返回。
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

// conflict 把主键或唯一键冲突翻译为 ErrConflict，其余错误原样返回。
func conflict(err error, what string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrConflict, what)
	}
	return err
}
