package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MaxWindowMonths = 24
	maxNameLength   = 100
)

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrency accepts ISO 4217 style codes.
func ValidateCurrency(code string) bool {
	return currencyRe.MatchString(code)
}

func ValidateName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && utf8.RuneCountInString(name) <= maxNameLength
}

// ParseWindow reads an analytics window in months. Empty means fallback.
func ParseWindow(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxWindowMonths {
		return 0, fmt.Errorf("window must be between 1 and %d months", MaxWindowMonths)
	}
	return n, nil
}
