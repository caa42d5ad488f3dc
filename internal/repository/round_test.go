package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/reel-slot/internal/models"
	"gorm.io/gorm"
)

// RoundRepositoryTestSuite 回合日志仓储测试套件
type RoundRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo RoundRepository
}

func (suite *RoundRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.repo = NewRoundRepository(suite.db)
}

func (suite *RoundRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

func (suite *RoundRepositoryTestSuite) seed(sessionID string, rounds int) []*models.RoundRecord {
	ctx := context.Background()
	records := make([]*models.RoundRecord, 0, rounds)
	for i := 1; i <= rounds; i++ {
		var win int64
		if i%2 == 0 {
			win = 50
		}
		record := CreateTestRound(sessionID, i, 10, win)
		suite.Require().NoError(suite.repo.Create(ctx, record))
		records = append(records, record)
	}
	return records
}

func (suite *RoundRepositoryTestSuite) TestCreateAndFind() {
	records := suite.seed("s-1", 2)
	suite.NotZero(records[0].ID)

	found, err := suite.repo.FindBySpinID(context.Background(), records[1].SpinID)
	suite.Require().NoError(err)
	suite.Equal("s-1", found.SessionID)
	suite.Equal(2, found.RoundNumber)
	suite.True(decimal.NewFromInt(50).Equal(found.Winnings))
	suite.Equal(models.SymbolGrid{{"A", "A", "A"}, {"D", "D", "D"}, {"C", "B", "A"}}, found.Rows)
	suite.Require().Len(found.WinLines, 1)
	suite.Equal("A", found.WinLines[0].Symbol)
	suite.Equal(5, found.WinLines[0].Payout)
}

func (suite *RoundRepositoryTestSuite) TestFindNotFound() {
	_, err := suite.repo.FindBySpinID(context.Background(), "missing")
	suite.ErrorIs(err, ErrRoundNotFound)
}

func (suite *RoundRepositoryTestSuite) TestListBySessionPaginated() {
	suite.seed("s-1", 5)
	suite.seed("s-2", 2)

	p := NewPagination(1, 2)
	records, err := suite.repo.ListBySession(context.Background(), "s-1", p)
	suite.Require().NoError(err)
	suite.Equal(int64(5), p.Total)
	suite.Require().Len(records, 2)
	suite.Equal(5, records[0].RoundNumber)
	suite.Equal(4, records[1].RoundNumber)
	suite.Len(records[1].WinLines, 1)

	p = NewPagination(3, 2)
	records, err = suite.repo.ListBySession(context.Background(), "s-1", p)
	suite.Require().NoError(err)
	suite.Require().Len(records, 1)
	suite.Equal(1, records[0].RoundNumber)

	records, err = suite.repo.ListBySession(context.Background(), "nobody", NewPagination(1, 10))
	suite.Require().NoError(err)
	suite.Empty(records)
}

func (suite *RoundRepositoryTestSuite) TestSummary() {
	suite.seed("s-1", 4)

	summary, err := suite.repo.Summary(context.Background(), "s-1")
	suite.Require().NoError(err)
	suite.Equal(int64(4), summary.Rounds)
	suite.Equal(int64(2), summary.WinningRounds)
	suite.True(decimal.NewFromInt(40).Equal(summary.TotalStake))
	suite.True(decimal.NewFromInt(100).Equal(summary.TotalWin))
}

func (suite *RoundRepositoryTestSuite) TestDeleteBySession() {
	suite.seed("s-1", 3)
	suite.seed("s-2", 1)

	deleted, err := suite.repo.DeleteBySession(context.Background(), "s-1")
	suite.Require().NoError(err)
	suite.Equal(int64(3), deleted)

	var lines int64
	suite.db.Model(&models.RoundWinLine{}).Count(&lines)
	suite.Zero(lines)

	p := NewPagination(1, 10)
	_, err = suite.repo.ListBySession(context.Background(), "s-2", p)
	suite.Require().NoError(err)
	suite.Equal(int64(1), p.Total)
}

func TestRoundRepositorySuite(t *testing.T) {
	suite.Run(t, new(RoundRepositoryTestSuite))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0)
	if p.Page != 1 || p.PageSize != 10 || p.Offset() != 0 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	p = NewPagination(3, 500)
	if p.PageSize != 100 || p.Offset() != 200 {
		t.Fatalf("unexpected clamp: %+v", p)
	}
}
