package token

import (
	"fmt"
	"strconv"
	"time"
	"unicode"
)

// AddLifetime advances t by a lifetime shorthand: a leading numeric run
// followed by an optional unit letter. With a unit the amount is a calendar
// offset ("2h", "30d", "3M"); without one it is raw milliseconds ("3600000").
// Month and year offsets use calendar arithmetic rather than fixed durations.
func AddLifetime(t time.Time, shorthand string) (time.Time, error) {
	amount, unit := splitAmountUnit(shorthand)
	if amount == "" {
		return time.Time{}, fmt.Errorf("invalid lifetime %q", shorthand)
	}

	n, err := strconv.Atoi(amount)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid lifetime %q", shorthand)
	}

	switch unit {
	case "", "ms":
		return t.Add(time.Duration(n) * time.Millisecond), nil
	case "s":
		return t.Add(time.Duration(n) * time.Second), nil
	case "m":
		return t.Add(time.Duration(n) * time.Minute), nil
	case "h":
		return t.Add(time.Duration(n) * time.Hour), nil
	case "d":
		return t.AddDate(0, 0, n), nil
	case "w":
		return t.AddDate(0, 0, 7*n), nil
	case "M":
		return t.AddDate(0, n, 0), nil
	case "y":
		return t.AddDate(n, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown lifetime unit %q", unit)
	}
}

func splitAmountUnit(shorthand string) (amount, unit string) {
	i := 0
	for i < len(shorthand) && unicode.IsDigit(rune(shorthand[i])) {
		i++
	}
	return shorthand[:i], shorthand[i:]
}
