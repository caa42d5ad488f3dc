package database

import (
	"fmt"

	"github.com/wfunc/reel-slot/internal/models"
	"gorm.io/gorm"
)

// AutoMigrate 自动迁移回合日志表结构
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("数据库未初始化")
	}

	for _, model := range models.AllModels() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("迁移 %T 失败: %w", model, err)
		}
	}
	return nil
}
