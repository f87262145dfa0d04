package posting

import (
	"strconv"
	"strings"
)

// Pay periods and their multipliers to an annual amount.
var periodsPerYear = map[string]float64{
	"HOURLY":   2080,
	"DAILY":    260,
	"WEEKLY":   52,
	"BIWEEKLY": 26,
	"MONTHLY":  12,
	"YEARLY":   1,
	"ANNUAL":   1,
}

// ParseAmount parses a raw numeric cell. Empty, unparseable and non-positive
// values yield nil.
func ParseAmount(raw string) *float64 {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// NormalizeSalary converts an amount paid per period to an annual figure.
// An unknown or empty period is treated as yearly.
func NormalizeSalary(amount *float64, period string) *float64 {
	if amount == nil || *amount <= 0 {
		return nil
	}
	mult, ok := periodsPerYear[strings.ToUpper(strings.TrimSpace(period))]
	if !ok {
		mult = 1
	}
	v := *amount * mult
	return &v
}
