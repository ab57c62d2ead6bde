package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/user/olx-watcher/internal/entity"
)

// First run of digits, optionally separated by spaces ("1 200 zł"). Listing
// prices use non-breaking spaces as thousands separators too.
var priceDigits = regexp.MustCompile(`\d[\d\s\x{00a0}\x{202f}]*`)

// ParsePrice extracts the numeric value from a raw price text. It returns the
// text to record alongside the value: a missing price becomes entity.PriceNotFound.
// A text without digits, or one that does not fit an int, yields 0.
func ParsePrice(raw string) (text string, value int) {
	text = strings.TrimSpace(raw)
	if text == "" {
		return entity.PriceNotFound, 0
	}

	match := priceDigits.FindString(text)
	if match == "" {
		return text, 0
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, match)

	value, err := strconv.Atoi(digits)
	if err != nil {
		return text, 0
	}
	return text, value
}
