package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wfunc/reel-slot/internal/models"
	"gorm.io/gorm"
)

// ErrRoundNotFound 回合记录不存在
var ErrRoundNotFound = errors.New("回合记录不存在")

// RoundSummary 会话回合汇总
type RoundSummary struct {
	Rounds        int64           `json:"rounds"`
	WinningRounds int64           `json:"winning_rounds"`
	TotalStake    decimal.Decimal `json:"total_stake"`
	TotalWin      decimal.Decimal `json:"total_win"`
}

// RoundRepository 回合日志仓储接口
type RoundRepository interface {
	BaseRepository
	Create(ctx context.Context, record *models.RoundRecord) error
	FindBySpinID(ctx context.Context, spinID string) (*models.RoundRecord, error)
	ListBySession(ctx context.Context, sessionID string, p *Pagination) ([]*models.RoundRecord, error)
	Summary(ctx context.Context, sessionID string) (*RoundSummary, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

// roundRepo 回合日志仓储实现
type roundRepo struct {
	*BaseRepo
}

// NewRoundRepository 创建回合日志仓储
func NewRoundRepository(db *gorm.DB) RoundRepository {
	return &roundRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 写入回合及其中奖线
func (r *roundRepo) Create(ctx context.Context, record *models.RoundRecord) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(record).Error
	})
}

// FindBySpinID 根据旋转ID查找
func (r *roundRepo) FindBySpinID(ctx context.Context, spinID string) (*models.RoundRecord, error) {
	var record models.RoundRecord
	err := r.db.WithContext(ctx).
		Preload("WinLines").
		Where("spin_id = ?", spinID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListBySession 按回合倒序分页查询会话历史，总数写入 p.Total
func (r *roundRepo) ListBySession(ctx context.Context, sessionID string, p *Pagination) ([]*models.RoundRecord, error) {
	err := r.db.WithContext(ctx).
		Model(&models.RoundRecord{}).
		Where("session_id = ?", sessionID).
		Count(&p.Total).Error
	if err != nil {
		return nil, err
	}

	var records []*models.RoundRecord
	err = r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Preload("WinLines").
		Order("round_number DESC").
		Scopes(Paginate(p)).
		Find(&records).Error
	return records, err
}

// Summary 汇总会话投注与派彩
func (r *roundRepo) Summary(ctx context.Context, sessionID string) (*RoundSummary, error) {
	var rows []struct {
		Stake    decimal.Decimal
		Winnings decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.RoundRecord{}).
		Select("stake", "winnings").
		Where("session_id = ?", sessionID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &RoundSummary{Rounds: int64(len(rows))}
	for _, row := range rows {
		summary.TotalStake = summary.TotalStake.Add(row.Stake)
		summary.TotalWin = summary.TotalWin.Add(row.Winnings)
		if row.Winnings.IsPositive() {
			summary.WinningRounds++
		}
	}
	return summary, nil
}

// DeleteBySession 删除会话的全部回合记录
func (r *roundRepo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	var deleted int64
	err := r.Transaction(ctx, func(tx *gorm.DB) error {
		ids := tx.Model(&models.RoundRecord{}).Select("id").Where("session_id = ?", sessionID)
		if err := tx.Where("record_id IN (?)", ids).Delete(&models.RoundWinLine{}).Error; err != nil {
			return err
		}
		result := tx.Where("session_id = ?", sessionID).Delete(&models.RoundRecord{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}
