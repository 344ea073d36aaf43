// Package pathutil holds small, dependency-light string transforms shared
// across the CLI surface: branch-name sanitizing for per-branch scratch
// directories, and the scheduler's duration grammar.
package pathutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeBranch turns a VCS branch name into a filesystem-safe directory
// component: Unicode-normalized (NFC), lowercased, with any run of
// characters outside [a-z0-9._-] collapsed to a single hyphen, and
// leading/trailing hyphens trimmed. It is idempotent:
// SanitizeBranch(SanitizeBranch(s)) == SanitizeBranch(s).
func SanitizeBranch(s string) string {
	normalized := norm.NFC.String(s)
	normalized = strings.ToLower(normalized)

	var b strings.Builder
	b.Grow(len(normalized))
	lastHyphen := false
	for _, r := range normalized {
		if isBranchSafe(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.Trim(b.String(), "-")
}

func isBranchSafe(r rune) bool {
	if r >= '0' && r <= '9' {
		return true
	}
	if r >= 'a' && r <= 'z' {
		return true
	}
	return r == '.' || r == '_' || r == '-'
}

// IsBlank reports whether s contains only Unicode whitespace.
func IsBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}
