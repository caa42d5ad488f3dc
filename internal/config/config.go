package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/wfunc/reel-slot/internal/errors"
)

// Config 全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Session  SessionConfig  `mapstructure:"session"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置（回合日志）
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// GameConfig 游戏配置
type GameConfig struct {
	DefaultProfile string                   `mapstructure:"default_profile"`
	DepositMode    string                   `mapstructure:"deposit_mode"` // replace | add
	Profiles       map[string]ProfileConfig `mapstructure:"profiles"`
}

// ProfileConfig 玩法配置，覆盖同名内置配置
type ProfileConfig struct {
	Rows            int            `mapstructure:"rows"`
	Cols            int            `mapstructure:"cols"`
	MaxLines        int            `mapstructure:"max_lines"`
	DrawMode        string         `mapstructure:"draw_mode"`
	Rule            string         `mapstructure:"rule"`
	MatchMultiplier int            `mapstructure:"match_multiplier"`
	Symbols         []SymbolConfig `mapstructure:"symbols"`
}

// SymbolConfig 符号权重配置
type SymbolConfig struct {
	Symbol string `mapstructure:"symbol"`
	Count  int    `mapstructure:"count"`
	Payout int    `mapstructure:"payout"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	MaxSessions     int           `mapstructure:"max_sessions"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

const (
	DepositModeReplace = "replace"
	DepositModeAdd     = "add"

	// DefaultJWTSecret 开发环境默认密钥，生产模式下禁止使用
	DefaultJWTSecret = "reel-slot-dev-secret"

	envPrefix = "REEL_SLOT"
)

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()
		var loaded *Config
		loaded, err = load(v, configPath)
		if err != nil {
			return
		}
		cfg = loaded
	})

	return err
}

// Load 读取配置但不修改全局实例，用于命令行工具和测试
func Load(configPath string) (*Config, error) {
	return load(viper.New(), configPath)
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 环境变量覆盖，如 REEL_SLOT_SERVER_PORT
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 未指定路径且找不到配置文件时使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "读取配置文件失败")
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 默认内存数据库，进程退出后不保留任何数据
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file::memory:?cache=shared")
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("game.default_profile", "console")
	v.SetDefault("game.deposit_mode", DepositModeReplace)

	v.SetDefault("session.max_sessions", 1000)
	v.SetDefault("session.idle_timeout", "30m")
	v.SetDefault("session.cleanup_interval", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "reel-slot.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("security.jwt.secret", DefaultJWTSecret)
	v.SetDefault("security.jwt.issuer", "reel-slot")
	v.SetDefault("security.jwt.expire_hours", 24)
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.Game.DepositMode {
	case DepositModeReplace, DepositModeAdd:
	default:
		return errors.Newf(errors.ErrConfigValidate, "game.deposit_mode 无效: %q", c.Game.DepositMode)
	}
	if c.Game.DefaultProfile == "" {
		return errors.New(errors.ErrConfigValidate, "game.default_profile 不能为空")
	}
	if c.Session.MaxSessions <= 0 {
		return errors.New(errors.ErrConfigValidate, "session.max_sessions 必须为正数")
	}
	if c.Security.JWT.Secret == "" {
		return errors.New(errors.ErrConfigValidate, "security.jwt.secret 不能为空")
	}
	if c.Server.IsProduction() && c.Security.JWT.Secret == DefaultJWTSecret {
		return errors.New(errors.ErrConfigValidate, "生产模式必须配置 security.jwt.secret")
	}
	return nil
}

// IsProduction 是否为生产模式
func (s ServerConfig) IsProduction() bool {
	return s.Mode == "production" || s.Mode == "release"
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}

		cfg = newCfg
		if callback != nil {
			callback(cfg)
		}

		fmt.Printf("配置已重新加载: %s\n", e.Name)
	})
}
