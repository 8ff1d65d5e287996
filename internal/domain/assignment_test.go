package domain_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/neomorfeo/studiobook/internal/domain"
)

func TestInterval_Overlaps(t *testing.T) {
	base := time.Date(2030, 6, 15, 0, 0, 0, 0, time.UTC)
	h := func(n int) time.Time { return base.Add(time.Duration(n) * time.Hour) }
	iv := func(a, b int) domain.Interval { return domain.Interval{Start: h(a), End: h(b)} }

	tests := []struct {
		name string
		a, b domain.Interval
		want bool
	}{
		{"identical", iv(10, 12), iv(10, 12), true},
		{"partial", iv(10, 12), iv(11, 13), true},
		{"contained", iv(9, 17), iv(12, 13), true},
		{"touching", iv(10, 12), iv(12, 14), false},
		{"disjoint", iv(8, 9), iv(12, 14), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("reversed Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}

// Overlap must agree with a minute-by-minute scan of both intervals.
func TestInterval_OverlapsMatchesScan(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	base := time.Date(2030, 6, 15, 0, 0, 0, 0, time.UTC)
	random := func() domain.Interval {
		start := r.IntN(120)
		return domain.Interval{
			Start: base.Add(time.Duration(start) * time.Minute),
			End:   base.Add(time.Duration(start+1+r.IntN(60)) * time.Minute),
		}
	}

	for range 1000 {
		a, b := random(), random()
		shared := false
		for m := a.Start; m.Before(a.End); m = m.Add(time.Minute) {
			if !m.Before(b.Start) && m.Before(b.End) {
				shared = true
				break
			}
		}
		if got := a.Overlaps(b); got != shared {
			t.Fatalf("Overlaps(%v, %v) = %v, scan says %v", a, b, got, shared)
		}
	}
}

func TestInterval_Valid(t *testing.T) {
	now := time.Now()
	if (domain.Interval{Start: now, End: now}).Valid() {
		t.Error("empty interval should be invalid")
	}
	if !(domain.Interval{Start: now, End: now.Add(time.Minute)}).Valid() {
		t.Error("one-minute interval should be valid")
	}
}

func TestResourceKey_String(t *testing.T) {
	key := domain.ResourceKey{
		Kind:       domain.ResourceRoom,
		ResourceID: "studio-a",
		Date:       time.Date(2030, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	if got := key.String(); got != "room/studio-a/2030-06-15" {
		t.Errorf("String = %q", got)
	}
	a := domain.ResourceAssignment{ResourceKind: key.Kind, ResourceID: key.ResourceID, Date: key.Date}
	if a.Key() != key {
		t.Errorf("Key = %+v, want %+v", a.Key(), key)
	}
}
