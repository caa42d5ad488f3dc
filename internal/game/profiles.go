package game

import (
	"github.com/wfunc/reel-slot/internal/config"
	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/game/slot"
)

// LoadProfiles 合并内置玩法与配置文件中的玩法，同名时以配置为准
func LoadProfiles(cfg config.GameConfig) (map[string]*slot.Profile, error) {
	profiles := slot.BuiltinProfiles()

	for name, pc := range cfg.Profiles {
		base, ok := profiles[name]
		if !ok {
			base = &slot.Profile{Name: name}
		}
		profiles[name] = applyProfileConfig(base, pc)
	}

	for _, name := range slot.ProfileNames(profiles) {
		if err := profiles[name].Validate(); err != nil {
			return nil, errors.Wrapf(err, errors.ErrInvalidProfile, "玩法 %s", name)
		}
	}
	if _, ok := profiles[cfg.DefaultProfile]; !ok {
		return nil, errors.Newf(errors.ErrInvalidProfile, "默认玩法 %q 不存在", cfg.DefaultProfile)
	}
	return profiles, nil
}

// applyProfileConfig 仅覆盖配置中出现的字段
func applyProfileConfig(base *slot.Profile, pc config.ProfileConfig) *slot.Profile {
	p := *base
	if pc.Rows > 0 {
		p.Rows = pc.Rows
	}
	if pc.Cols > 0 {
		p.Cols = pc.Cols
	}
	if pc.MaxLines > 0 {
		p.MaxLines = pc.MaxLines
	}
	if pc.DrawMode != "" {
		p.DrawMode = slot.DrawMode(pc.DrawMode)
	}
	if pc.Rule != "" {
		p.Rule = slot.RuleType(pc.Rule)
	}
	if pc.MatchMultiplier > 0 {
		p.MatchMultiplier = pc.MatchMultiplier
	}
	if len(pc.Symbols) > 0 {
		p.Symbols = make([]slot.SymbolWeight, len(pc.Symbols))
		for i, s := range pc.Symbols {
			p.Symbols[i] = slot.SymbolWeight{
				Symbol: slot.Symbol(s.Symbol),
				Count:  s.Count,
				Payout: s.Payout,
			}
		}
	}
	return &p
}
