package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/shopspring/decimal"
	"github.com/wfunc/reel-slot/internal/config"
	"github.com/wfunc/reel-slot/internal/console"
	"github.com/wfunc/reel-slot/internal/game"
	"github.com/wfunc/reel-slot/internal/game/slot"
	"github.com/wfunc/reel-slot/internal/logger"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// CLI 控制台命令行参数
type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"显示版本信息"`
	Config   string           `short:"c" help:"配置文件路径" type:"path"`
	Profile  string           `short:"p" help:"玩法名称 (默认取配置 game.default_profile)"`
	Seed     uint64           `help:"随机种子，非零时结果可复现"`
	Simulate int              `help:"批量模拟旋转次数，大于零时不进入交互模式"`
	Workers  int              `default:"${workers}" help:"批量模拟并行数"`
	Lines    int              `help:"模拟投注线数 (默认取玩法最大线数)"`
	Bet      float64          `default:"1" help:"模拟单线投注"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("reel-slot"),
		kong.Description("老虎机控制台"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": versionString(),
			"workers": strconv.Itoa(runtime.NumCPU()),
		},
	)

	if err := run(cli); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "已中断")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(cli CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	// 日志不能与交互输出混在一起
	logCfg := cfg.Log
	if logCfg.Output == "stdout" || logCfg.Output == "" {
		logCfg.Output = "stderr"
		logCfg.Level = "warn"
	}
	log, err := logger.New(&logCfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	profiles, err := game.LoadProfiles(cfg.Game)
	if err != nil {
		return err
	}
	profileName := cli.Profile
	if profileName == "" {
		profileName = cfg.Game.DefaultProfile
	}
	profile, ok := profiles[profileName]
	if !ok {
		return fmt.Errorf("未知玩法: %s (可选: %v)", profileName, slot.ProfileNames(profiles))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cli.Simulate > 0 {
		return simulate(ctx, cli, profile)
	}

	var rng slot.RandomSource = slot.NewCryptoSource()
	if cli.Seed != 0 {
		rng = slot.NewSeededSource(cli.Seed)
	}
	engine, err := slot.NewEngine(profile, slot.WithRandomSource(rng), slot.WithLogger(log.Named("slot")))
	if err != nil {
		return err
	}

	session := game.NewSession(engine,
		game.WithDepositMode(game.DepositMode(cfg.Game.DepositMode)),
		game.WithSessionLogger(log.Named("game")),
	)
	log.Debug("控制台会话开始", zap.String("session_id", session.ID), zap.String("profile", profile.Name))

	return console.New(session, os.Stdin, os.Stdout).Run(ctx)
}

// simulate 并行批量模拟并输出统计
func simulate(ctx context.Context, cli CLI, profile *slot.Profile) error {
	lines := cli.Lines
	if lines <= 0 {
		lines = profile.MaxLines
	}
	bet := decimal.NewFromFloat(cli.Bet)

	newRandom := func(worker int) slot.RandomSource {
		if cli.Seed != 0 {
			return slot.NewSeededSource(cli.Seed + uint64(worker))
		}
		return slot.NewCryptoSource()
	}

	res, err := slot.SimulateParallel(ctx, profile, cli.Workers, cli.Simulate, bet, lines, newRandom)
	if err != nil {
		return err
	}
	console.PrintSimulation(os.Stdout, profile.Name, bet, lines, res)
	return nil
}

func versionString() string {
	return fmt.Sprintf("%s (构建时间: %s, Git提交: %s, %s)", Version, BuildTime, GitCommit, runtime.Version())
}
