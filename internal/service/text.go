package service

import (
	"strings"
	"unicode/utf8"
)

const ellipsis = "…"

// truncateRunes cuts s to at most max runes. When s is cut, marker is
// appended and counted against max.
func truncateRunes(s string, max int, marker string) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	keep := max - utf8.RuneCountInString(marker)
	if keep <= 0 {
		return string([]rune(marker)[:max])
	}
	return strings.TrimRight(string([]rune(s)[:keep]), " \n\t") + marker
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
