// Package console 控制台交互循环：充值、选线、下注、旋转、再来一局
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/game"
	"github.com/wfunc/reel-slot/internal/game/slot"
)

// Console 控制台游戏
type Console struct {
	session *game.Session
	in      io.Reader
	out     io.Writer
	input   chan inputLine
}

type inputLine struct {
	text string
	err  error
}

// New 创建控制台游戏，输入输出由调用方注入
func New(session *game.Session, in io.Reader, out io.Writer) *Console {
	return &Console{
		session: session,
		in:      in,
		out:     out,
		input:   make(chan inputLine),
	}
}

// Run 运行游戏直到余额耗尽、玩家退出、输入结束或 ctx 取消
func (c *Console) Run(ctx context.Context) error {
	go c.readInput(ctx)

	if err := c.deposit(ctx); err != nil {
		return ignoreEOF(err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.printf("当前余额: $%s\n", c.session.Balance())

		lines, err := c.readLines(ctx)
		if err != nil {
			return ignoreEOF(err)
		}
		bet, err := c.readBet(ctx, lines)
		if err != nil {
			return ignoreEOF(err)
		}

		round, err := c.session.Spin(ctx, lines, bet)
		if err != nil {
			// 输入已校验，此处只可能是引擎故障
			return err
		}

		c.printf("%s", FormatRows(round.Result.Rows))
		c.printf("本局赢得: $%s\n", round.Result.Winnings)

		if round.Busted {
			c.printf("余额已用完！\n")
			return nil
		}

		answer, err := c.prompt(ctx, "是否再玩一局? (y/n): ")
		if err != nil {
			return ignoreEOF(err)
		}
		if answer != "y" {
			c.printf("感谢游玩！最终余额: $%s\n", c.session.Balance())
			return nil
		}
	}
}

// deposit 读取充值金额，无效时重新提示
func (c *Console) deposit(ctx context.Context) error {
	for {
		text, err := c.prompt(ctx, "请输入充值金额: ")
		if err != nil {
			return err
		}
		amount, err := strconv.ParseFloat(text, 64)
		if err == nil {
			if _, err = c.session.Deposit(amount); err == nil {
				return nil
			}
		}
		c.printf("充值金额无效，请重新输入。\n")
	}
}

// readLines 读取投注线数 [1, MaxLines]
func (c *Console) readLines(ctx context.Context) (int, error) {
	maxLines := c.session.Profile().MaxLines
	for {
		text, err := c.prompt(ctx, fmt.Sprintf("请输入投注线数 (1-%d): ", maxLines))
		if err != nil {
			return 0, err
		}
		lines, err := strconv.Atoi(text)
		if err == nil && lines >= 1 && lines <= maxLines {
			return lines, nil
		}
		c.printf("线数无效，请重新输入。\n")
	}
}

// readBet 读取单线投注，不得超过 余额/线数
func (c *Console) readBet(ctx context.Context, lines int) (float64, error) {
	for {
		text, err := c.prompt(ctx, "请输入每线投注金额: ")
		if err != nil {
			return 0, err
		}
		bet, err := strconv.ParseFloat(text, 64)
		if err == nil {
			if err = c.session.ValidateBet(lines, bet); err == nil {
				return bet, nil
			}
			if errors.Is(err, errors.ErrInsufficientBalance) {
				c.printf("投注超出余额，每线最多 $%s。\n", c.session.MaxBet(lines))
				continue
			}
		}
		c.printf("投注金额无效，请重新输入。\n")
	}
}

// readInput 逐行读取输入，阻塞读不影响 ctx 取消
func (c *Console) readInput(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case c.input <- inputLine{text: scanner.Text()}:
		case <-ctx.Done():
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case c.input <- inputLine{err: err}:
	case <-ctx.Done():
	}
}

func (c *Console) prompt(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.printf("%s", text)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line := <-c.input:
		if line.err != nil {
			return "", line.err
		}
		return strings.TrimSpace(line.text), nil
	}
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

func ignoreEOF(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}

// FormatRows 每行一条，符号以 " | " 分隔
func FormatRows(rows slot.RowMatrix) string {
	var b strings.Builder
	for _, row := range rows {
		for i, symbol := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(string(symbol))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// PrintSimulation 输出批量模拟结果
func PrintSimulation(out io.Writer, profile string, bet decimal.Decimal, lines int, res *slot.SimulationResult) {
	fmt.Fprintf(out, "玩法: %s  线数: %d  单线投注: %s\n", profile, lines, bet)
	fmt.Fprintf(out, "旋转次数: %d\n", res.Spins)
	fmt.Fprintf(out, "中奖次数: %d (%.2f%%)\n", res.WinningSpins, res.HitRate*100)
	fmt.Fprintf(out, "总投注: %s\n", res.TotalStake)
	fmt.Fprintf(out, "总中奖: %s\n", res.TotalWin)
	fmt.Fprintf(out, "RTP: %.4f\n", res.RTP)
	for _, symbol := range []slot.Symbol{slot.SymbolA, slot.SymbolB, slot.SymbolC, slot.SymbolD} {
		if hits := res.SymbolHits[symbol]; hits > 0 {
			fmt.Fprintf(out, "  %s 中奖线: %d\n", symbol, hits)
		}
	}
}
