package sim

import (
	"testing"

	"refpay.org/internal/assignment"
	"refpay.org/internal/period"
)

func TestSeasonFixturesFitTheMonth(t *testing.T) {
	month, _ := period.ParseMonth("2026-08")
	g := NewGenerator(42)
	sc := g.Season(month, 18, 8)

	if len(sc.Fixtures) == 0 {
		t.Fatal("expected fixtures")
	}
	for _, f := range sc.Fixtures {
		if !month.Contains(f.Match.StartsAt) {
			t.Fatalf("fixture %s starts outside the month: %s", f.Match.ID, f.Match.StartsAt)
		}
		if len(f.Crew) != len(assignment.Roles) {
			t.Fatalf("fixture %s has incomplete crew: %d", f.Match.ID, len(f.Crew))
		}
	}
}

func TestCrewsRespectSpecialty(t *testing.T) {
	month, _ := period.ParseMonth("2026-08")
	g := NewGenerator(7)
	sc := g.Season(month, 18, 4)

	byID := make(map[string]int)
	for i, ref := range sc.Referees {
		byID[ref.ID] = i
	}
	for _, f := range sc.Fixtures {
		seen := make(map[string]bool)
		for _, slot := range f.Crew {
			if seen[slot.RefereeID] {
				t.Fatalf("fixture %s double-books %s", f.Match.ID, slot.RefereeID)
			}
			seen[slot.RefereeID] = true
			ref := sc.Referees[byID[slot.RefereeID]]
			if !ref.Specialty.Covers(assignment.RoleSpecialty(slot.Role)) {
				t.Fatalf("fixture %s: %s cannot take %s", f.Match.ID, ref.ID, slot.Role)
			}
		}
	}
}

func TestSeasonIsDeterministicPerSeed(t *testing.T) {
	month, _ := period.ParseMonth("2026-08")
	a := NewGenerator(99).Season(month, 15, 3)
	b := NewGenerator(99).Season(month, 15, 3)

	if len(a.Fixtures) != len(b.Fixtures) {
		t.Fatalf("fixture counts differ: %d vs %d", len(a.Fixtures), len(b.Fixtures))
	}
	for i := range a.Fixtures {
		if a.Fixtures[i].Match.ID != b.Fixtures[i].Match.ID {
			t.Fatalf("fixture order differs at %d", i)
		}
		for j := range a.Fixtures[i].Crew {
			if a.Fixtures[i].Crew[j] != b.Fixtures[i].Crew[j] {
				t.Fatalf("crew differs at fixture %d slot %d", i, j)
			}
		}
	}
}
