// Package datetime turns the assorted date representations found in stored
// documents into time.Time values and human-readable strings.
//
// Stored documents carry dates as BSON datetimes, BSON timestamps, ISO-8601
// strings, locale-formatted strings, and epoch milliseconds depending on when
// and by which tool they were written. Normalizer accepts all of them and
// never fails: anything it cannot read becomes "now" and a warning is logged.
package datetime

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dalemusser/newsdesk/internal/app/system/clock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Normalizer converts heterogeneous date values to time.Time.
// It is safe for concurrent use.
type Normalizer struct {
	clock      clock.Clock
	loc        *time.Location
	locale     Locale
	log        *zap.Logger
	onFallback func(reason string)
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLocation sets the zone used for strings without an offset and for
// formatting. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// WithLocale sets the locale used by Format. Defaults to LocaleJA.
func WithLocale(l Locale) Option {
	return func(n *Normalizer) { n.locale = l }
}

// WithFallbackHook registers fn to be called every time Normalize substitutes
// the current time or Format returns FormatError.
func WithFallbackHook(fn func(reason string)) Option {
	return func(n *Normalizer) { n.onFallback = fn }
}

// New builds a Normalizer. A nil clock means the system clock; a nil logger
// discards diagnostics.
func New(c clock.Clock, log *zap.Logger, opts ...Option) *Normalizer {
	if c == nil {
		c = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	n := &Normalizer{clock: c, loc: time.UTC, locale: LocaleJA, log: log}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Location returns the display zone.
func (n *Normalizer) Location() *time.Location { return n.loc }

// Now returns the normalizer's current time in the display zone.
func (n *Normalizer) Now() time.Time { return n.clock.Now().In(n.loc) }

// timeLike matches values that convert themselves to time.Time, such as
// primitive.DateTime.
type timeLike interface {
	Time() time.Time
}

// Normalize returns v as a valid time.Time. The checks run in order:
// time.Time, values with a Time() method, BSON timestamps, strings, numeric
// epoch milliseconds. Anything else, or any candidate that is not a valid
// date, yields the current time.
func (n *Normalizer) Normalize(v any) time.Time {
	t, ok := n.parse(v)
	if ok {
		return t
	}
	return n.fallback(v)
}

// TryNormalize is Normalize without the fallback: ok is false when v holds
// no readable date.
func (n *Normalizer) TryNormalize(v any) (time.Time, bool) {
	return n.parse(v)
}

func (n *Normalizer) parse(v any) (t time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t, ok = time.Time{}, false
		}
	}()

	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x, valid(x)
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, valid(*x)
	case timeLike:
		got := x.Time()
		return got, valid(got)
	case primitive.Timestamp:
		got := time.Unix(int64(x.T), 0).In(n.loc)
		return got, x.T != 0 && valid(got)
	case string:
		return n.parseString(x)
	case int:
		return n.fromMillis(float64(x))
	case int32:
		return n.fromMillis(float64(x))
	case int64:
		return n.fromMillis(float64(x))
	case uint:
		return n.fromMillis(float64(x))
	case uint32:
		return n.fromMillis(float64(x))
	case uint64:
		return n.fromMillis(float64(x))
	case float32:
		return n.fromMillis(float64(x))
	case float64:
		return n.fromMillis(x)
	case json.Number:
		if ms, err := x.Float64(); err == nil {
			return n.fromMillis(ms)
		}
		return n.parseString(x.String())
	}
	return time.Time{}, false
}

var jaDateReplacer = strings.NewReplacer("年", "/", "月", "/", "日", "", "時", ":", "分", "")

func (n *Normalizer) parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := dateparse.ParseIn(s, n.loc); err == nil && valid(t) {
		return t, true
	}
	// Locale-formatted values such as "2024年06月01日 09:00".
	if strings.ContainsAny(s, "年月日") {
		alt := strings.TrimSpace(jaDateReplacer.Replace(s))
		if t, err := dateparse.ParseIn(alt, n.loc); err == nil && valid(t) {
			return t, true
		}
	}
	return time.Time{}, false
}

func (n *Normalizer) fromMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, false
	}
	if ms > maxMillis || ms < minMillis {
		return time.Time{}, false
	}
	t := time.UnixMilli(int64(ms)).In(n.loc)
	return t, valid(t)
}

func (n *Normalizer) fallback(v any) time.Time {
	now := n.Now()
	n.log.Warn("unreadable date value, using current time",
		zap.String("type", fmt.Sprintf("%T", v)),
		zap.String("value", preview(v)),
	)
	if n.onFallback != nil {
		n.onFallback("normalize")
	}
	return now
}

// AtOrBefore reports whether a is at or before b once both are normalized.
func (n *Normalizer) AtOrBefore(a, b any) bool {
	return !n.Normalize(a).After(n.Normalize(b))
}

var combineLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2 15:04",
}

// Combine joins a date string ("2024-06-01") and a time string ("09:00")
// into one instant in the display zone. An empty time means midnight. ok is
// false when the pair cannot be read.
func (n *Normalizer) Combine(date, clockTime string) (time.Time, bool) {
	date = strings.TrimSpace(date)
	clockTime = strings.TrimSpace(clockTime)
	if date == "" {
		return time.Time{}, false
	}
	if clockTime == "" {
		clockTime = "00:00"
	}
	joined := date + " " + clockTime
	for _, layout := range combineLayouts {
		if t, err := time.ParseInLocation(layout, joined, n.loc); err == nil {
			return t, true
		}
	}
	return n.parseString(joined)
}

// Epoch-millisecond bounds for years 1 through 9999.
const (
	minMillis = -62135596800000
	maxMillis = 253402300799999
)

func valid(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	y := t.Year()
	return y >= 1 && y <= 9999
}

func preview(v any) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > 64 {
		s = s[:64] + "..."
	}
	return s
}
