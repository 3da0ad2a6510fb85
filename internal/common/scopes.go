package common

import (
	"time"

	"gorm.io/gorm"
)

// ByOrg 按组织过滤（多组织查询通用 Scope）
// 使用方法：db.Scopes(common.ByOrg(orgID)).Find(&schedules)
func ByOrg(orgID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("org_id = ?", orgID)
	}
}

// WithStatus 按状态过滤，传入多个状态时使用 IN
func WithStatus(statuses ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(statuses) == 1 {
			return db.Where("status = ?", statuses[0])
		}
		return db.Where("status IN ?", statuses)
	}
}

// DueBy 字段非空且不晚于 t（以 UTC 比较）
// 使用方法：db.Scopes(common.DueBy("next_run_at", now)).Find(&schedules)
func DueBy(column string, t time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" IS NOT NULL AND "+column+" <= ?", t.UTC())
	}
}

// Paginate 限制返回条数，limit 非正时使用 def
func Paginate(limit, def int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			limit = def
		}
		return db.Limit(limit)
	}
}
