// internal/domain/models/targets.go
package models

import "strings"

// AllTargets is the sentinel label meaning "every member of the enumeration".
const AllTargets = "all"

// Faculties is the fixed enumeration of faculty labels a Notification can
// target.
var Faculties = []string{
	"law",
	"medicine",
	"engineering",
	"letters",
	"science",
	"agriculture",
	"economics",
	"arts-and-sciences",
	"education",
	"pharmaceutical-sciences",
}

// Grades is the fixed enumeration of grade labels a Notification can target.
var Grades = []string{
	"undergraduate-1",
	"undergraduate-2",
	"undergraduate-3",
	"undergraduate-4",
	"master",
	"doctoral",
}

// IsFaculty reports whether label is a known faculty.
func IsFaculty(label string) bool { return contains(Faculties, label) }

// IsGrade reports whether label is a known grade.
func IsGrade(label string) bool { return contains(Grades, label) }

// CoversAll reports whether a target list means "everyone" for the given
// enumeration: it has the enumeration's full length or carries the sentinel.
func CoversAll(targets, enum []string) bool {
	if len(enum) > 0 && len(targets) == len(enum) {
		return true
	}
	return contains(targets, AllTargets)
}

// Targets reports whether a target list applies to value. A list covering
// the whole enumeration applies to every value.
func Targets(targets, enum []string, value string) bool {
	if CoversAll(targets, enum) {
		return true
	}
	return contains(targets, value)
}

// FormatTargets summarises faculty and grade targets, e.g.
// "all faculties / master, doctoral".
func FormatTargets(faculties, grades []string) string {
	return summarize(faculties, Faculties, "all faculties") + " / " +
		summarize(grades, Grades, "all grades")
}

func summarize(targets, enum []string, allLabel string) string {
	if CoversAll(targets, enum) {
		return allLabel
	}
	if len(targets) <= 2 {
		return strings.Join(targets, ", ")
	}
	return strings.Join(targets[:2], ", ") + "..."
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
