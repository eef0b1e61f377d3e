package datetime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vjeantet/jodaTime"
	"go.uber.org/zap"
)

// FormatError is returned by Format in place of a date when the pattern
// cannot be applied.
const FormatError = "日付エラー"

// Common display patterns.
const (
	PatternDate     = "yyyy/MM/dd"
	PatternDateTime = "yyyy/MM/dd HH:mm"
	PatternLongDate = "yyyy年M月d日(E)"
)

var errUnclosedQuote = errors.New("unterminated quoted literal")

// maxWidth is the longest run accepted for each pattern letter.
var maxWidth = map[rune]int{
	'y': 4, 'Y': 4, 'x': 4,
	'M': 4, 'd': 2, 'D': 2, 'w': 2, 'e': 2, 'E': 4,
	'H': 2, 'h': 2, 'K': 2, 'k': 2, 'm': 2, 's': 2, 'S': 3,
	'a': 1, 'z': 1, 'Z': 3, 'G': 1, 'C': 1,
}

// Format normalizes v and renders it with a Joda-style date pattern
// (yyyy, MM, d, HH, h, mm, ss, SSS, a, E, EEEE, MMM, MMMM, 'literal').
// Month, weekday and meridiem names follow the normalizer's locale.
// It never panics; an unusable pattern yields FormatError.
func (n *Normalizer) Format(v any, pattern string) (out string) {
	t := n.Normalize(v).In(n.loc)
	defer func() {
		if r := recover(); r != nil {
			out = n.formatFailed(pattern, fmt.Errorf("panic: %v", r))
		}
	}()
	p, err := localize(pattern, t, n.locale)
	if err != nil {
		return n.formatFailed(pattern, err)
	}
	return jodaTime.Format(p, t)
}

func (n *Normalizer) formatFailed(pattern string, err error) string {
	n.log.Warn("date format failed", zap.String("pattern", pattern), zap.Error(err))
	if n.onFallback != nil {
		n.onFallback("format")
	}
	return FormatError
}

// localize checks pattern and rewrites it for jodaTime: name fields become
// quoted literals in locale l, and quoted text is re-quoted so embedded
// quotes survive.
func localize(pattern string, t time.Time, l Locale) (string, error) {
	var b strings.Builder
	rs := []rune(pattern)
	for i := 0; i < len(rs); {
		c := rs[i]

		if c == '\'' {
			if i+1 < len(rs) && rs[i+1] == '\'' {
				b.WriteString("''")
				i += 2
				continue
			}
			var lit strings.Builder
			j := i + 1
			for ; j < len(rs); j++ {
				if rs[j] == '\'' {
					if j+1 < len(rs) && rs[j+1] == '\'' {
						lit.WriteRune('\'')
						j++
						continue
					}
					break
				}
				lit.WriteRune(rs[j])
			}
			if j >= len(rs) {
				return "", errUnclosedQuote
			}
			b.WriteString(quote(lit.String()))
			i = j + 1
			continue
		}

		if !isASCIILetter(c) {
			b.WriteRune(c)
			i++
			continue
		}

		j := i
		for j < len(rs) && rs[j] == c {
			j++
		}
		count := j - i
		if limit, ok := maxWidth[c]; !ok || count > limit {
			return "", fmt.Errorf("unsupported pattern field %q", string(rs[i:j]))
		}
		switch {
		case c == 'M' && count >= 3:
			b.WriteString(quote(l.month(t, count == 4)))
		case c == 'E':
			b.WriteString(quote(l.weekday(t, count == 4)))
		case c == 'a':
			b.WriteString(quote(l.meridiem(t)))
		default:
			b.WriteString(string(rs[i:j]))
		}
		i = j
	}
	return b.String(), nil
}

// quote wraps s as jodaTime literal text. jodaTime has no escape inside a
// quoted run, so each quote in s is emitted as a standalone ''.
func quote(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteString("''")
		}
		if p != "" {
			b.WriteString("'" + p + "'")
		}
	}
	return b.String()
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
