package slot

import (
	"testing"
)

func TestConsoleProfile(t *testing.T) {
	p := ConsoleProfile()

	if p.Name != ProfileConsole {
		t.Errorf("Name = %v, want %v", p.Name, ProfileConsole)
	}
	if p.Rows != 3 || p.Cols != 3 {
		t.Errorf("Rows x Cols = %dx%d, want 3x3", p.Rows, p.Cols)
	}
	if p.Rule != RuleLine {
		t.Errorf("Rule = %v, want %v", p.Rule, RuleLine)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// 验证符号表
	want := map[Symbol][2]int{
		SymbolA: {2, 5},
		SymbolB: {4, 4},
		SymbolC: {6, 3},
		SymbolD: {8, 2},
	}
	table, err := p.Table()
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	for sym, cv := range want {
		if got := table.Count(sym); got != cv[0] {
			t.Errorf("Count(%s) = %d, want %d", sym, got, cv[0])
		}
		if got, _ := table.Payout(sym); got != cv[1] {
			t.Errorf("Payout(%s) = %d, want %d", sym, got, cv[1])
		}
	}
}

func TestBrowserProfile(t *testing.T) {
	p := BrowserProfile()

	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.Rows != 1 || p.Cols != 3 {
		t.Errorf("Rows x Cols = %dx%d, want 1x3", p.Rows, p.Cols)
	}
	if p.DrawMode != DrawWithReplacement {
		t.Errorf("DrawMode = %v, want %v", p.DrawMode, DrawWithReplacement)
	}
	if p.MatchMultiplier != 2 {
		t.Errorf("MatchMultiplier = %d, want 2", p.MatchMultiplier)
	}
	// 网页版线数只影响总投注
	if p.MaxLines != 3 {
		t.Errorf("MaxLines = %d, want 3", p.MaxLines)
	}
}

func TestBuiltinProfiles(t *testing.T) {
	profiles := BuiltinProfiles()
	names := ProfileNames(profiles)

	if len(names) != 2 || names[0] != ProfileBrowser || names[1] != ProfileConsole {
		t.Errorf("ProfileNames() = %v", names)
	}
	for name, p := range profiles {
		if p.Name != name {
			t.Errorf("profile %s has Name %s", name, p.Name)
		}
	}
}

func TestProfile_ValidateDrawMode(t *testing.T) {
	p := ConsoleProfile()
	p.DrawMode = ""
	if err := p.Validate(); err == nil {
		t.Error("Validate() expected error for empty draw mode")
	}

	var nilProfile *Profile
	if err := nilProfile.Validate(); err == nil {
		t.Error("Validate() expected error for nil profile")
	}
}
