package clock

import (
	"testing"
	"time"
)

func TestManual(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	c := NewManual(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", c.Now(), start)
	}

	c.Advance(90 * time.Second)
	if want := start.Add(90 * time.Second); !c.Now().Equal(want) {
		t.Errorf("after Advance, Now() = %v, want %v", c.Now(), want)
	}

	later := start.AddDate(0, 0, 7)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("after Set, Now() = %v, want %v", c.Now(), later)
	}
}

func TestFunc(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	var c Clock = Func(func() time.Time { return fixed })
	if !c.Now().Equal(fixed) {
		t.Errorf("Func clock returned %v", c.Now())
	}
}
