package rates

import (
	"context"
	"testing"

	"refpay.org/internal/assignment"
	"refpay.org/internal/catalog"
)

func TestBaseAmounts(t *testing.T) {
	cases := map[catalog.Rank]int64{
		catalog.RankFIBA:      1_500_000,
		catalog.RankFirst:     800_000,
		catalog.RankSecond:    500_000,
		catalog.RankThird:     300_000,
		catalog.RankFormation: 150_000,
		catalog.Rank("OTHER"): 100_000,
	}
	for rank, want := range cases {
		if got := BaseAmount(rank); got != want {
			t.Fatalf("BaseAmount(%s) = %d, want %d", rank, got, want)
		}
	}
}

func TestCreateFormulaExactness(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	e, err := s.Create(ctx, "t-1", catalog.RankFirst, assignment.RoleFirstReferee, 50_000, "regional")
	if err != nil {
		t.Fatal(err)
	}
	if e.Amount != 850_000 {
		t.Fatalf("expected 850000, got %d", e.Amount)
	}
	if !e.Active {
		t.Fatal("created entries must be active")
	}

	// Repeated creation for other keys keeps the formula exact.
	e2, err := s.Create(ctx, "t-1", catalog.RankFIBA, assignment.RoleAnnotator, 123, "")
	if err != nil {
		t.Fatal(err)
	}
	if e2.Amount != 1_500_123 {
		t.Fatalf("expected 1500123, got %d", e2.Amount)
	}
}

func TestActiveKeyUniqueness(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	first, err := s.Create(ctx, "t-1", catalog.RankSecond, assignment.RoleTimekeeper, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "t-1", catalog.RankSecond, assignment.RoleTimekeeper, 10_000, ""); err != ErrDuplicateKey {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// Deactivate, create a replacement, then refuse to re-activate the old one.
	if _, err := s.Deactivate(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "t-1", catalog.RankSecond, assignment.RoleTimekeeper, 10_000, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Activate(ctx, first.ID); err != ErrDuplicateKey {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if _, err := s.Resolve(ctx, "t-1", catalog.RankThird, assignment.RoleAnnotator); err != ErrNotResolved {
		t.Fatalf("expected ErrNotResolved, got %v", err)
	}

	e, err := s.Create(ctx, "t-1", catalog.RankThird, assignment.RoleAnnotator, 25_000, "")
	if err != nil {
		t.Fatal(err)
	}
	amount, err := s.Resolve(ctx, "t-1", catalog.RankThird, assignment.RoleAnnotator)
	if err != nil {
		t.Fatal(err)
	}
	if amount != 325_000 {
		t.Fatalf("expected 325000, got %d", amount)
	}

	// Deactivated entries do not resolve.
	if _, err := s.Deactivate(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Resolve(ctx, "t-1", catalog.RankThird, assignment.RoleAnnotator); err != ErrNotResolved {
		t.Fatalf("expected ErrNotResolved after deactivation, got %v", err)
	}

	// Other keys never match.
	if _, err := s.Create(ctx, "t-1", catalog.RankThird, assignment.RoleTimekeeper, 0, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Resolve(ctx, "t-2", catalog.RankThird, assignment.RoleTimekeeper); err != ErrNotResolved {
		t.Fatalf("tournament is part of the key, got %v", err)
	}
}

func TestUpdateAndList(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	e, err := s.Create(ctx, "t-1", catalog.RankFirst, assignment.RoleFirstReferee, 0, "metro cup")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "t-2", catalog.RankFirst, assignment.RoleFirstReferee, 0, "coastal open"); err != nil {
		t.Fatal(err)
	}

	updated, err := s.Update(ctx, e.ID, 900_000, "metro cup, revised")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Amount != 900_000 {
		t.Fatalf("expected 900000, got %d", updated.Amount)
	}
	if _, err := s.Update(ctx, "ghost", 1, ""); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Update(ctx, e.ID, -1, ""); err != ErrValidation {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	all, _ := s.List(ctx, Filter{})
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	byTournament, _ := s.List(ctx, Filter{TournamentID: "t-2"})
	if len(byTournament) != 1 || byTournament[0].TournamentID != "t-2" {
		t.Fatalf("unexpected filter result: %+v", byTournament)
	}
	bySearch, _ := s.List(ctx, Filter{Search: "revised"})
	if len(bySearch) != 1 || bySearch[0].ID != e.ID {
		t.Fatalf("unexpected search result: %+v", bySearch)
	}
}
