package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/reel-slot/internal/api"
	"github.com/wfunc/reel-slot/internal/config"
	"github.com/wfunc/reel-slot/internal/database"
	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/game"
	"github.com/wfunc/reel-slot/internal/logger"
	"github.com/wfunc/reel-slot/internal/service"
	"github.com/wfunc/reel-slot/internal/utils"
	ws "github.com/wfunc/reel-slot/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	db         *gorm.DB
	manager    *game.Manager
	hub        *ws.Hub
	httpServer *http.Server

	// 关闭控制
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动老虎机服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initComponents(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化组件失败")
	}

	s.startServices()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", s.httpServer.Addr),
		zap.Strings("profiles", profileNames(s.manager)),
	)
	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() error {
	db, err := database.Open(&s.cfg.Database, logger.GetModuleLogger("database"))
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化回合日志数据库失败")
	}
	s.db = db

	services := service.NewServices(db, logger.GetModuleLogger("database"))

	profiles, err := game.LoadProfiles(s.cfg.Game)
	if err != nil {
		return err
	}

	manager, err := game.NewManager(game.ManagerConfig{
		Profiles:       profiles,
		DefaultProfile: s.cfg.Game.DefaultProfile,
		DepositMode:    game.DepositMode(s.cfg.Game.DepositMode),
		MaxSessions:    s.cfg.Session.MaxSessions,
		IdleTimeout:    s.cfg.Session.IdleTimeout,
		Journal:        services.Journal,
		Logger:         logger.GetModuleLogger("game"),
	})
	if err != nil {
		return err
	}
	s.manager = manager

	s.hub = ws.NewHub(ws.NewGameHandler(manager, logger.GetModuleLogger("websocket")), logger.GetModuleLogger("websocket"))

	gin.SetMode(ginMode(s.cfg.Server.Mode))
	router := api.NewRouter(api.RouterConfig{
		Manager: manager,
		Journal: services.Journal,
		JWT: utils.NewJWTManager(
			s.cfg.Security.JWT.Secret,
			s.cfg.Security.JWT.Issuer,
			time.Duration(s.cfg.Security.JWT.ExpireHours)*time.Hour,
		),
		Hub:    s.hub,
		DB:     db,
		Logger: logger.GetModuleLogger("api"),
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	return nil
}

// startServices 启动服务
func (s *Server) startServices() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run(s.ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.manager.Run(s.ctx, s.cfg.Session.CleanupInterval)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
			s.cancel()
		}
	}()
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
	)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case <-s.ctx.Done():
	}
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP服务关闭失败", zap.Error(err))
	}

	// 取消主上下文，触发所有goroutine退出
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	if err := database.Close(s.db); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}
	return nil
}

// reloadConfig 重新加载配置，仅日志级别支持热更新
func (s *Server) reloadConfig(newCfg *config.Config) {
	logger.SetLevel(newCfg.Log.Level)
	s.logger.Info("配置重新加载完成", zap.String("log_level", newCfg.Log.Level))
}

func ginMode(mode string) string {
	switch mode {
	case "production", "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

func profileNames(m *game.Manager) []string {
	profiles := m.Profiles()
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	return names
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("老虎机游戏服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("老虎机游戏服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  reel-slot-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  REEL_SLOT_SERVER_PORT        监听端口")
	fmt.Println("  REEL_SLOT_DATABASE_DRIVER    回合日志数据库驱动 (sqlite/mysql/postgres)")
	fmt.Println("  REEL_SLOT_SECURITY_JWT_SECRET 令牌签名密钥")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  reel-slot-server -config=config/config.yaml")
	fmt.Println("  reel-slot-server -version")
}
