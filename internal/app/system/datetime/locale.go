package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// Locale selects month, weekday, and meridiem names for Format.
type Locale string

const (
	LocaleJA Locale = "ja"
	LocaleEN Locale = "en"
)

// ParseLocale accepts "ja" or "en" in any case.
func ParseLocale(s string) (Locale, error) {
	switch Locale(strings.ToLower(strings.TrimSpace(s))) {
	case LocaleJA:
		return LocaleJA, nil
	case LocaleEN:
		return LocaleEN, nil
	}
	return "", fmt.Errorf("unsupported locale %q (want ja or en)", s)
}

// calendar maps l to its monday locale. Unknown locales read as Japanese.
func (l Locale) calendar() monday.Locale {
	if l == LocaleEN {
		return monday.LocaleEnUS
	}
	return monday.LocaleJaJP
}

func (l Locale) month(t time.Time, long bool) string {
	if long {
		return monday.Format(t, "January", l.calendar())
	}
	return monday.Format(t, "Jan", l.calendar())
}

func (l Locale) weekday(t time.Time, long bool) string {
	if long {
		return monday.Format(t, "Monday", l.calendar())
	}
	return monday.Format(t, "Mon", l.calendar())
}

func (l Locale) meridiem(t time.Time) string {
	return monday.Format(t, "PM", l.calendar())
}
