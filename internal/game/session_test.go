package game

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/game/slot"
)

// 首次抽取 0,0,0 | 19,0,0 | 0,0,0 → 卷轴 AAB / DAA / AAB
// 行: A D A / A A A / B A B，仅第二行中奖
var secondRowOnly = []int{0, 0, 0, 19, 0, 0, 0, 0, 0}

func newTestSession(t *testing.T, profile *slot.Profile, rng slot.RandomSource, opts ...SessionOption) *Session {
	t.Helper()
	engine, err := slot.NewEngine(profile, slot.WithRandomSource(rng))
	require.NoError(t, err)
	return NewSession(engine, opts...)
}

func requireBalance(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "balance = %s, want %s", got, want)
}

type recordingJournal struct {
	mu        sync.Mutex
	rounds    []*Round
	forgotten []string
}

func (j *recordingJournal) Record(_ context.Context, _ string, round *Round) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rounds = append(j.rounds, round)
	return nil
}

func (j *recordingJournal) Forget(_ context.Context, sessionID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.forgotten = append(j.forgotten, sessionID)
	return nil
}

func (j *recordingJournal) Forgotten() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.forgotten...)
}

func TestSession_Deposit(t *testing.T) {
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSeededSource(1))

	for _, amount := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0, -5} {
		_, err := s.Deposit(amount)
		assert.True(t, errors.IsInvalidInput(err), "amount=%v", amount)
		assert.True(t, errors.Is(err, errors.ErrInvalidDeposit))
	}
	requireBalance(t, "0", s.Balance())

	balance, err := s.Deposit(100)
	require.NoError(t, err)
	requireBalance(t, "100", balance)

	// 默认模式下余额不为零时拒绝充值
	balance, err = s.Deposit(50)
	assert.True(t, errors.Is(err, errors.ErrInvalidDeposit))
	assert.True(t, errors.IsInvalidInput(err))
	requireBalance(t, "100", balance)
	requireBalance(t, "100", s.Info().Stats.Deposited)
}

func TestSession_DepositAfterWin(t *testing.T) {
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSequenceSource(0))
	_, err := s.Deposit(100)
	require.NoError(t, err)

	_, err = s.Spin(context.Background(), 1, 10)
	require.NoError(t, err)
	requireBalance(t, "140", s.Balance())

	_, err = s.Deposit(10)
	assert.True(t, errors.Is(err, errors.ErrInvalidDeposit))
	requireBalance(t, "140", s.Balance())
	requireBalance(t, "100", s.Info().Stats.Deposited)

	// 累加模式保留已有余额
	added := newTestSession(t, slot.ConsoleProfile(), slot.NewSequenceSource(0), WithDepositMode(DepositAdd))
	_, err = added.Deposit(100)
	require.NoError(t, err)
	_, err = added.Spin(context.Background(), 1, 10)
	require.NoError(t, err)
	balance, err := added.Deposit(10)
	require.NoError(t, err)
	requireBalance(t, "150", balance)
	requireBalance(t, "110", added.Info().Stats.Deposited)
}

func TestSession_DepositAfterBust(t *testing.T) {
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSequenceSource(secondRowOnly...))
	_, err := s.Deposit(10)
	require.NoError(t, err)
	_, err = s.Spin(context.Background(), 1, 10)
	require.NoError(t, err)

	balance, err := s.Deposit(30)
	require.NoError(t, err)
	requireBalance(t, "30", balance)
}

func TestSession_DepositAdd(t *testing.T) {
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSeededSource(1), WithDepositMode(DepositAdd))

	_, err := s.Deposit(100)
	require.NoError(t, err)
	balance, err := s.Deposit(50.5)
	require.NoError(t, err)
	requireBalance(t, "150.5", balance)
}

func TestSession_ValidateBet(t *testing.T) {
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSeededSource(1))
	_, err := s.Deposit(100)
	require.NoError(t, err)

	tests := []struct {
		name  string
		lines int
		bet   float64
		code  errors.ErrorCode
	}{
		{name: "零线", lines: 0, bet: 1, code: errors.ErrInvalidLines},
		{name: "四线", lines: 4, bet: 1, code: errors.ErrInvalidLines},
		{name: "零投注", lines: 1, bet: 0, code: errors.ErrInvalidBet},
		{name: "负投注", lines: 1, bet: -5, code: errors.ErrInvalidBet},
		{name: "NaN投注", lines: 1, bet: math.NaN(), code: errors.ErrInvalidBet},
		{name: "超过余额", lines: 3, bet: 34, code: errors.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ValidateBet(tt.lines, tt.bet)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))

			_, err = s.Spin(context.Background(), tt.lines, tt.bet)
			assert.Equal(t, tt.code, errors.GetCode(err))
			requireBalance(t, "100", s.Balance())
		})
	}

	assert.NoError(t, s.ValidateBet(3, 33.33))
	assert.NoError(t, s.ValidateBet(1, 100))
	assert.Zero(t, s.Info().Stats.Spins)
}

func TestSession_SpinLoss(t *testing.T) {
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSequenceSource(secondRowOnly...))
	_, err := s.Deposit(100)
	require.NoError(t, err)

	round, err := s.Spin(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, slot.RowMatrix{
		{slot.SymbolA, slot.SymbolD, slot.SymbolA},
		{slot.SymbolA, slot.SymbolA, slot.SymbolA},
		{slot.SymbolB, slot.SymbolA, slot.SymbolB},
	}, round.Result.Rows)
	assert.True(t, round.Result.Winnings.IsZero())
	requireBalance(t, "100", round.BalanceBefore)
	requireBalance(t, "90", round.BalanceAfter)
	requireBalance(t, "90", s.Balance())
	assert.False(t, round.Busted)
	assert.Equal(t, 1, round.Number)
}

func TestSession_SpinWin(t *testing.T) {
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSequenceSource(0))
	_, err := s.Deposit(100)
	require.NoError(t, err)

	// 行 AAA / AAA / BBB，单线 10 × 5
	round, err := s.Spin(context.Background(), 1, 10)
	require.NoError(t, err)
	requireBalance(t, "50", round.Result.Winnings)
	requireBalance(t, "140", s.Balance())
}

func TestSession_LinesBeyondNotEvaluated(t *testing.T) {
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSequenceSource(secondRowOnly...))
	_, err := s.Deposit(100)
	require.NoError(t, err)

	// 两线：第二行 AAA 中奖 10 × 5
	round, err := s.Spin(context.Background(), 2, 10)
	require.NoError(t, err)
	requireBalance(t, "20", round.Result.Stake)
	requireBalance(t, "50", round.Result.Winnings)
	requireBalance(t, "130", s.Balance())
	require.Len(t, round.Result.WinLines, 1)
	assert.Equal(t, 1, round.Result.WinLines[0].Line)
}

func TestSession_Busted(t *testing.T) {
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSequenceSource(secondRowOnly...))
	_, err := s.Deposit(10)
	require.NoError(t, err)

	round, err := s.Spin(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.True(t, round.Busted)
	requireBalance(t, "0", s.Balance())

	_, err = s.Spin(context.Background(), 1, 1)
	assert.True(t, errors.Is(err, errors.ErrInsufficientBalance))
}

func TestSession_EngineFailureRefundsStake(t *testing.T) {
	// 索引越界使引擎在扣款后失败
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSequenceSource(20))
	_, err := s.Deposit(100)
	require.NoError(t, err)

	_, err = s.Spin(context.Background(), 3, 10)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidMatrix, errors.GetCode(err))
	requireBalance(t, "100", s.Balance())
	assert.Zero(t, s.Info().Stats.Spins)
}

func TestSession_Play(t *testing.T) {
	s := newTestSession(t, slot.BrowserProfile(), slot.NewSequenceSource(0, 1, 0))
	ctx := context.Background()

	// 余额为零时点击即充值
	_, err := s.Play(ctx, -1, 1, 1)
	assert.True(t, errors.Is(err, errors.ErrInvalidDeposit))

	result, err := s.Play(ctx, 30, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, ActionDeposit, result.Action)
	requireBalance(t, "30", result.Balance)
	assert.Nil(t, result.Round)

	// A B A 不中奖
	result, err = s.Play(ctx, 30, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, ActionSpin, result.Action)
	require.NotNil(t, result.Round)
	requireBalance(t, "15", result.Balance)

	// 总投注超过余额
	_, err = s.Play(ctx, 30, 3, 6)
	assert.True(t, errors.Is(err, errors.ErrInsufficientBalance))
	requireBalance(t, "15", s.Balance())

	result, err = s.Play(ctx, 30, 3, 5)
	require.NoError(t, err)
	assert.True(t, result.Round.Busted)

	// 余额归零后再次点击重新充值
	result, err = s.Play(ctx, 20, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, ActionDeposit, result.Action)
	requireBalance(t, "20", s.Balance())
}

func TestSession_PlayBrowserWin(t *testing.T) {
	s := newTestSession(t, slot.BrowserProfile(), slot.NewSequenceSource(1))
	ctx := context.Background()

	_, err := s.Play(ctx, 100, 0, 0)
	require.NoError(t, err)

	// B B B，总投注 30 × 2
	result, err := s.Play(ctx, 0, 3, 10)
	require.NoError(t, err)
	requireBalance(t, "60", result.Round.Result.Winnings)
	requireBalance(t, "130", result.Balance)
}

func TestSession_StatsAndJournal(t *testing.T) {
	journal := &recordingJournal{}
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSequenceSource(0), WithJournal(journal))
	_, err := s.Deposit(100)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := s.Spin(context.Background(), 1, 1)
		require.NoError(t, err)
	}

	info := s.Info()
	assert.Equal(t, 3, info.Stats.Spins)
	assert.Equal(t, 3, info.Stats.WinningSpins)
	requireBalance(t, "3", info.Stats.TotalStake)
	requireBalance(t, "15", info.Stats.TotalWin)
	requireBalance(t, "112", info.Balance)
	require.NotNil(t, info.LastRound)
	assert.Equal(t, 3, info.LastRound.Number)
	assert.Equal(t, slot.ProfileConsole, info.Profile)

	require.Len(t, journal.rounds, 3)
	assert.Equal(t, 2, journal.rounds[1].Number)
}

func TestSession_ConcurrentSpinsKeepLedgerConsistent(t *testing.T) {
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSeededSource(99))
	_, err := s.Deposit(1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Spin(context.Background(), 3, 1)
		}()
	}
	wg.Wait()

	info := s.Info()
	expected := decimal.NewFromInt(1000).Sub(info.Stats.TotalStake).Add(info.Stats.TotalWin)
	assert.True(t, expected.Equal(info.Balance))
	assert.Equal(t, 50, info.Stats.Spins)
	assert.False(t, info.Balance.IsNegative())
}

func TestSession_MaxBet(t *testing.T) {
	s := newTestSession(t, slot.ConsoleProfile(), slot.NewSeededSource(1))
	_, err := s.Deposit(90)
	require.NoError(t, err)

	requireBalance(t, "30", s.MaxBet(3))
	requireBalance(t, "90", s.MaxBet(1))
	assert.True(t, s.MaxBet(0).IsZero())
}
