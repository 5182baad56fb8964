package adapter

import (
	"fmt"
	"strconv"
	"strings"
)

var countSuffixes = map[byte]float64{
	'K': 1_000,
	'M': 1_000_000,
	'B': 1_000_000_000,
}

// ParseAbbreviatedCount converts display figures like "12.3K", "1,234" or
// "2M" into an approximate integer.
func ParseAbbreviatedCount(raw string) (int64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0, fmt.Errorf("empty count")
	}

	multiplier := 1.0
	last := s[len(s)-1]
	if m, ok := countSuffixes[toUpperByte(last)]; ok {
		multiplier = m
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative count %q", raw)
	}
	return int64(value * multiplier), nil
}

func toUpperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
