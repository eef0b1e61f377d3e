package docstore

import (
	"reflect"
	"testing"
)

func TestQueryMatches(t *testing.T) {
	group := Query{Collection: "news", Group: true}
	single := Query{Collection: "notifications"}

	tests := []struct {
		q    Query
		path string
		want bool
	}{
		{group, "companies/acme/news", true},
		{group, "media-group/tic/news", true},
		{group, "news", true},
		{group, "companies/acme/archive", false},
		{group, "companies/news", false},
		{single, "notifications", true},
		{single, "companies/acme/notifications", false},
	}
	for _, tt := range tests {
		if got := tt.q.Matches(tt.path); got != tt.want {
			t.Errorf("%+v.Matches(%q) = %v, want %v", tt.q, tt.path, got, tt.want)
		}
	}
}

func TestQueryWithCopies(t *testing.T) {
	base := Query{Collection: "news", Where: []Filter{{Field: "a", Op: OpEq, Value: 1}}}
	q1 := base.With(Filter{Field: "b", Op: OpEq, Value: 2})
	q2 := base.With(Filter{Field: "c", Op: OpEq, Value: 3})

	if len(base.Where) != 1 {
		t.Errorf("base mutated: %v", base.Where)
	}
	if q1.Where[1].Field != "b" || q2.Where[1].Field != "c" {
		t.Errorf("With shares backing array: %v / %v", q1.Where, q2.Where)
	}
}

func TestPaths(t *testing.T) {
	if got := Split("/companies/acme/news/"); !reflect.DeepEqual(got, []string{"companies", "acme", "news"}) {
		t.Errorf("Split = %v", got)
	}
	if Join("companies", "acme", "news") != "companies/acme/news" {
		t.Error("Join mismatch")
	}
	for path, want := range map[string]bool{
		"notifications":       true,
		"companies/acme/news": true,
		"companies/acme":      false,
		"":                    false,
		"companies//news":     false,
		"/notifications":      false,
	} {
		if got := ValidCollectionPath(path); got != want {
			t.Errorf("ValidCollectionPath(%q) = %v, want %v", path, got, want)
		}
	}
}
