package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/game/slot"
	"go.uber.org/zap"
)

// RandomFactory 为每个会话创建独立随机源
type RandomFactory func() slot.RandomSource

// ManagerConfig 会话管理器配置
type ManagerConfig struct {
	Profiles       map[string]*slot.Profile
	DefaultProfile string
	DepositMode    DepositMode
	MaxSessions    int
	IdleTimeout    time.Duration
	Random         RandomFactory
	Journal        Journal
	Clock          quartz.Clock
	Logger         *zap.Logger
}

// Manager 内存会话管理器
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      ManagerConfig
	logger   *zap.Logger
}

// NewManager 创建会话管理器
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if len(cfg.Profiles) == 0 {
		cfg.Profiles = slot.BuiltinProfiles()
	}
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = slot.ProfileConsole
	}
	if _, ok := cfg.Profiles[cfg.DefaultProfile]; !ok {
		return nil, errors.Newf(errors.ErrInvalidProfile, "默认玩法 %q 不存在", cfg.DefaultProfile)
	}
	if cfg.DepositMode == "" {
		cfg.DepositMode = DepositReplace
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}

	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		logger:   cfg.Logger,
	}, nil
}

// Profiles 可用玩法，按名称排序
func (m *Manager) Profiles() []*slot.Profile {
	names := slot.ProfileNames(m.cfg.Profiles)
	out := make([]*slot.Profile, 0, len(names))
	for _, name := range names {
		out = append(out, m.cfg.Profiles[name])
	}
	return out
}

// DefaultProfile 默认玩法名称
func (m *Manager) DefaultProfile() string {
	return m.cfg.DefaultProfile
}

// Create 按玩法创建会话，玩法为空时使用默认玩法
func (m *Manager) Create(profileName string) (*Session, error) {
	if profileName == "" {
		profileName = m.cfg.DefaultProfile
	}
	profile, ok := m.cfg.Profiles[profileName]
	if !ok {
		return nil, errors.Newf(errors.ErrInvalidProfile, "未知玩法: %s", profileName)
	}

	opts := []slot.Option{slot.WithLogger(m.logger)}
	if m.cfg.Random != nil {
		opts = append(opts, slot.WithRandomSource(m.cfg.Random()))
	}
	engine, err := slot.NewEngine(profile, opts...)
	if err != nil {
		return nil, engineError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.cfg.MaxSessions {
		return nil, errors.Newf(errors.ErrSessionLimit, "最多 %d 个会话", m.cfg.MaxSessions)
	}

	session := NewSession(engine,
		WithDepositMode(m.cfg.DepositMode),
		WithJournal(m.cfg.Journal),
		WithSessionLogger(m.logger),
		WithClock(m.cfg.Clock),
	)
	m.sessions[session.ID] = session

	m.logger.Info("创建游戏会话",
		zap.String("session_id", session.ID),
		zap.String("profile", profileName))
	return session, nil
}

// Get 获取会话并刷新活动时间
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrSessionNotFound, "会话ID: %s", id)
	}
	session.touch()
	return session, nil
}

// Remove 移除会话
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return errors.Newf(errors.ErrSessionNotFound, "会话ID: %s", id)
	}

	info := session.Info()
	m.logger.Info("移除游戏会话",
		zap.String("session_id", id),
		zap.Int("total_spins", info.Stats.Spins),
		zap.String("total_stake", info.Stats.TotalStake.String()),
		zap.String("total_win", info.Stats.TotalWin.String()))
	m.forget(id)
	return nil
}

// forget 清除已移除会话的回合日志
func (m *Manager) forget(ids ...string) {
	if m.cfg.Journal == nil {
		return
	}
	for _, id := range ids {
		if err := m.cfg.Journal.Forget(context.Background(), id); err != nil {
			m.logger.Warn("清除回合日志失败", zap.String("session_id", id), zap.Error(err))
		}
	}
}

// Count 当前会话数
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs 当前会话ID列表
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// CleanupIdle 清理在 now 之前已超时的会话，返回清理数量
func (m *Manager) CleanupIdle(now time.Time) int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}

	m.mu.Lock()
	var removed []string
	for id, session := range m.sessions {
		if now.Sub(session.LastActive()) > m.cfg.IdleTimeout {
			delete(m.sessions, id)
			removed = append(removed, id)
		}
	}
	m.mu.Unlock()

	if len(removed) > 0 {
		m.logger.Info("清理不活跃会话", zap.Int("count", len(removed)))
		m.forget(removed...)
	}
	return len(removed)
}

// Run 定期清理不活跃会话，直到 ctx 结束
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := m.cfg.Clock.NewTicker(interval, "manager", "cleanup")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.CleanupIdle(now)
		}
	}
}
