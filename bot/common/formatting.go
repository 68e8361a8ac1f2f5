package common

import (
	"fmt"
	"strings"
)

// FormatPoints formats a point amount with thousand separators
func FormatPoints(points int64) string {
	str := fmt.Sprintf("%d", points)

	n := len(str)
	if n <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// Spoiler wraps text in Discord spoiler markers so secrets stay hidden until
// the user reveals them
func Spoiler(text string) string {
	return "||" + strings.ReplaceAll(text, "||", "\\|\\|") + "||"
}
