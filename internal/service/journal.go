package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/game"
	"github.com/wfunc/reel-slot/internal/logger"
	"github.com/wfunc/reel-slot/internal/models"
	"github.com/wfunc/reel-slot/internal/repository"
	"go.uber.org/zap"
)

// HistoryPage 回合历史分页结果
type HistoryPage struct {
	Rounds     []*models.RoundRecord  `json:"rounds"`
	Pagination *repository.Pagination `json:"pagination"`
}

// JournalService 回合日志服务
type JournalService struct {
	rounds repository.RoundRepository
	log    *zap.Logger
}

var _ game.Journal = (*JournalService)(nil)

// NewJournalService 创建回合日志服务
func NewJournalService(rounds repository.RoundRepository, log *zap.Logger) *JournalService {
	if log == nil {
		log = zap.NewNop()
	}
	return &JournalService{
		rounds: rounds,
		log:    log,
	}
}

// Record 写入一个回合
func (s *JournalService) Record(ctx context.Context, sessionID string, round *game.Round) error {
	if round == nil || round.Result == nil {
		return errors.New(errors.ErrInvalidInput, "回合为空")
	}

	record := ToRoundRecord(sessionID, round)
	start := time.Now()
	err := s.rounds.Create(ctx, record)
	logger.LogDatabaseOperation("insert", record.TableName(), time.Since(start), err)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert, "写入回合日志失败")
	}

	s.log.Debug("回合日志已写入",
		zap.String("session_id", sessionID),
		zap.String("spin_id", record.SpinID),
		zap.Int("round", record.RoundNumber))
	return nil
}

// History 分页查询会话历史，最新回合在前
func (s *JournalService) History(ctx context.Context, sessionID string, page, pageSize int) (*HistoryPage, error) {
	p := repository.NewPagination(page, pageSize)
	records, err := s.rounds.ListBySession(ctx, sessionID, p)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询回合历史失败")
	}
	return &HistoryPage{Rounds: records, Pagination: p}, nil
}

// Round 查询会话内的单个回合，其他会话的回合视为不存在
func (s *JournalService) Round(ctx context.Context, sessionID, spinID string) (*models.RoundRecord, error) {
	record, err := s.rounds.FindBySpinID(ctx, spinID)
	if err != nil {
		if stderrors.Is(err, repository.ErrRoundNotFound) {
			return nil, errors.Newf(errors.ErrNotFound, "回合ID: %s", spinID)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询回合失败")
	}
	if record.SessionID != sessionID {
		return nil, errors.Newf(errors.ErrNotFound, "回合ID: %s", spinID)
	}
	return record, nil
}

// Summary 会话回合汇总
func (s *JournalService) Summary(ctx context.Context, sessionID string) (*repository.RoundSummary, error) {
	summary, err := s.rounds.Summary(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "汇总回合失败")
	}
	return summary, nil
}

// Forget 删除会话的全部回合
func (s *JournalService) Forget(ctx context.Context, sessionID string) error {
	start := time.Now()
	deleted, err := s.rounds.DeleteBySession(ctx, sessionID)
	logger.LogDatabaseOperation("delete", models.RoundRecord{}.TableName(), time.Since(start), err)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseQuery, "删除回合日志失败")
	}
	s.log.Debug("回合日志已删除", zap.String("session_id", sessionID), zap.Int64("count", deleted))
	return nil
}

// ToRoundRecord 将回合转换为日志记录
func ToRoundRecord(sessionID string, round *game.Round) *models.RoundRecord {
	result := round.Result

	rows := make(models.SymbolGrid, len(result.Rows))
	for i, row := range result.Rows {
		rows[i] = make([]string, len(row))
		for j, s := range row {
			rows[i][j] = string(s)
		}
	}

	record := &models.RoundRecord{
		SpinID:        result.ID,
		SessionID:     sessionID,
		Profile:       result.Profile,
		RoundNumber:   round.Number,
		Lines:         result.Lines,
		Bet:           result.Bet,
		Stake:         result.Stake,
		Winnings:      result.Winnings,
		BalanceBefore: round.BalanceBefore,
		BalanceAfter:  round.BalanceAfter,
		Rows:          rows,
		Busted:        round.Busted,
		CreatedAt:     result.Timestamp,
	}
	for _, wl := range result.WinLines {
		record.WinLines = append(record.WinLines, models.RoundWinLine{
			LineNumber: wl.Line,
			Symbol:     string(wl.Symbol),
			Payout:     wl.Payout,
			WinAmount:  wl.Amount,
		})
	}
	return record
}
