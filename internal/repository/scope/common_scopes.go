package scope

import "gorm.io/gorm"

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

func OnlineOnly(db *gorm.DB) *gorm.DB {
	return db.Where("is_online = ?", true)
}
