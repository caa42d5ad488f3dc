package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wfunc/reel-slot/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 创建迁移完成的内存测试数据库
func SetupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 内存库仅在单连接内可见
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		panic(err)
	}
	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// CreateTestRound 构造测试回合记录
func CreateTestRound(sessionID string, number int, stake, winnings int64) *models.RoundRecord {
	record := &models.RoundRecord{
		SpinID:        uuid.NewString(),
		SessionID:     sessionID,
		Profile:       "console",
		RoundNumber:   number,
		Lines:         1,
		Bet:           decimal.NewFromInt(stake),
		Stake:         decimal.NewFromInt(stake),
		Winnings:      decimal.NewFromInt(winnings),
		BalanceBefore: decimal.NewFromInt(100),
		BalanceAfter:  decimal.NewFromInt(100 - stake + winnings),
		Rows:          models.SymbolGrid{{"A", "B", "C"}, {"D", "D", "D"}, {"C", "B", "A"}},
		CreatedAt:     time.Now(),
	}
	if winnings > 0 {
		record.Rows[0] = []string{"A", "A", "A"}
		record.WinLines = []models.RoundWinLine{{
			LineNumber: 0,
			Symbol:     "A",
			Payout:     int(winnings / stake),
			WinAmount:  decimal.NewFromInt(winnings),
		}}
	}
	return record
}
