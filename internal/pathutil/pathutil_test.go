package pathutil

import "testing"

func TestSanitizeBranch(t *testing.T) {
	cases := map[string]string{
		"feature/add-gpu-support": "feature-add-gpu-support",
		"Bugfix_123":              "bugfix_123",
		"  spaced out  ":          "spaced-out",
		"a//b\\c":                 "a-b-c",
	}
	for in, want := range cases {
		if got := SanitizeBranch(in); got != want {
			t.Errorf("SanitizeBranch(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeBranch_Idempotent(t *testing.T) {
	samples := []string{
		"feature/add-gpu-support",
		"already-clean",
		"---leading-trailing---",
		"Ünïcödé Bránch",
		"",
	}
	for _, s := range samples {
		once := SanitizeBranch(s)
		twice := SanitizeBranch(once)
		if once != twice {
			t.Errorf("SanitizeBranch not idempotent for %q: %q vs %q", s, once, twice)
		}
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank("   \t\n") {
		t.Error("expected whitespace-only string to be blank")
	}
	if IsBlank("not blank") {
		t.Error("expected non-whitespace string to not be blank")
	}
}
