package utils

import (
	"strings"
)

// NormalizePhone strips punctuation and adds the Egyptian country code to
// local numbers. It returns "" when the result is not a plausible number.
func NormalizePhone(phone string) string {
	plus := strings.HasPrefix(strings.TrimSpace(phone), "+")

	var b strings.Builder
	for _, char := range phone {
		switch {
		case char >= '0' && char <= '9':
			b.WriteRune(char)
		case char == ' ', char == '-', char == '(', char == ')', char == '.', char == '+':
		default:
			return ""
		}
	}
	cleaned := b.String()

	switch {
	case !plus && strings.HasPrefix(cleaned, "00"):
		cleaned = cleaned[2:]
	case !plus && strings.HasPrefix(cleaned, "0") && len(cleaned) >= 9:
		cleaned = "20" + cleaned[1:]
	case !plus && len(cleaned) == 10 && cleaned[0] == '1':
		cleaned = "20" + cleaned
	}

	if len(cleaned) < 7 || len(cleaned) > 15 {
		return ""
	}
	return "+" + cleaned
}

func ValidPhone(phone string) bool {
	return NormalizePhone(phone) != ""
}
