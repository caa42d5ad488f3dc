package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundRecord 回合日志表
type RoundRecord struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SpinID        string          `gorm:"uniqueIndex;size:36;not null" json:"spin_id"`
	SessionID     string          `gorm:"index:idx_round_session,priority:1;size:36;not null" json:"session_id"`
	Profile       string          `gorm:"size:32;not null" json:"profile"`
	RoundNumber   int             `gorm:"index:idx_round_session,priority:2;not null" json:"round_number"`
	Lines         int             `gorm:"not null" json:"lines"`
	Bet           decimal.Decimal `gorm:"type:decimal(20,8)" json:"bet"`
	Stake         decimal.Decimal `gorm:"type:decimal(20,8)" json:"stake"`
	Winnings      decimal.Decimal `gorm:"type:decimal(20,8)" json:"winnings"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,8)" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,8)" json:"balance_after"`
	Rows          SymbolGrid      `gorm:"type:text" json:"rows"`
	Busted        bool            `gorm:"default:false" json:"busted"`
	CreatedAt     time.Time       `json:"created_at"`

	// 关联
	WinLines []RoundWinLine `gorm:"foreignKey:RecordID" json:"win_lines,omitempty"`
}

// TableName 表名
func (RoundRecord) TableName() string {
	return "round_records"
}

// RoundWinLine 回合中奖线表
type RoundWinLine struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	RecordID   uint            `gorm:"not null;index" json:"record_id"`
	LineNumber int             `json:"line_number"`
	Symbol     string          `gorm:"size:16" json:"symbol"`
	Payout     int             `json:"payout"`
	WinAmount  decimal.Decimal `gorm:"type:decimal(20,8)" json:"win_amount"`
}

// TableName 表名
func (RoundWinLine) TableName() string {
	return "round_win_lines"
}

// AllModels 需要迁移的模型
func AllModels() []interface{} {
	return []interface{}{
		&RoundRecord{},
		&RoundWinLine{},
	}
}
