// Package viewmodel derives the filtered, sorted rows shown in the article
// and notification lists from the live entity lists.
//
// Views are plain state holders: setters record new inputs and Rows
// recomputes lazily, reusing the previous result only while no input has
// changed since it was built.
package viewmodel

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "asc" or "desc"; anything else reports false.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return "", false
}

// Sort is the active sort key and direction.
type Sort[K comparable] struct {
	Key K         `json:"key"`
	Dir Direction `json:"dir"`
}

// Toggle returns the sort after the user selects key: the same key flips
// direction, a different key starts descending.
func (s Sort[K]) Toggle(key K) Sort[K] {
	if s.Key == key {
		if s.Dir == Asc {
			return Sort[K]{Key: key, Dir: Desc}
		}
		return Sort[K]{Key: key, Dir: Asc}
	}
	return Sort[K]{Key: key, Dir: Desc}
}

// missing returns the sort value for an absent date: +Inf ascending and
// -Inf descending, so such rows always end up last.
func missing(dir Direction) float64 {
	if dir == Asc {
		return math.Inf(1)
	}
	return math.Inf(-1)
}

// sortByNumber stable-sorts rows by value. value receives the fallback to
// use when a row has no usable value.
func sortByNumber[T any](rows []T, dir Direction, value func(row T, fallback float64) float64) {
	fb := missing(dir)
	slices.SortStableFunc(rows, func(a, b T) int {
		c := compareFloat(value(a, fb), value(b, fb))
		if dir == Desc {
			return -c
		}
		return c
	})
}

// sortByString stable-sorts rows by a string key.
func sortByString[T any](rows []T, dir Direction, value func(T) string) {
	slices.SortStableFunc(rows, func(a, b T) int {
		c := strings.Compare(value(a), value(b))
		if dir == Desc {
			return -c
		}
		return c
	})
}

// compareFloat treats equal infinities as equal so stability holds.
func compareFloat(a, b float64) int {
	if a == b {
		return 0
	}
	return cmp.Compare(a, b)
}
