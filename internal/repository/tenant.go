package repository

import "gorm.io/gorm"

// saveInTenant 在租户内按 id 插入或整体更新一行。
// 更新语句始终带 ent_name 条件且不改写 ent_name；id 已被其他租户占用时，
// 插入会因主键冲突失败（开启 TranslateError 时为 gorm.ErrDuplicatedKey），而不会覆盖对方的数据。
func saveInTenant[T any](db *gorm.DB, row *T, entName, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(new(T)).Where("ent_name = ? AND id = ?", entName, id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return tx.Create(row).Error
		}
		return tx.Model(row).
			Where("ent_name = ? AND id = ?", entName, id).
			Select("*").
			Omit("id", "ent_name").
			Updates(row).Error
	})
}
