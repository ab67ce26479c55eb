package catalog

import (
	"context"
	"testing"
	"time"
)

func TestParseEnums(t *testing.T) {
	if _, err := ParseRank("FIBA"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseRank("GRANDMASTER"); err != ErrUnknownEnum {
		t.Fatalf("expected ErrUnknownEnum, got %v", err)
	}
	if _, err := ParseSpecialty("BOTH"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseSpecialty("field"); err != ErrUnknownEnum {
		t.Fatalf("enum values are case sensitive, got %v", err)
	}
	if _, err := ParseMatchState("SUSPENDED"); err != nil {
		t.Fatal(err)
	}
}

func TestSpecialtyCovers(t *testing.T) {
	if !SpecialtyBoth.Covers(SpecialtyField) || !SpecialtyBoth.Covers(SpecialtyTable) {
		t.Fatal("BOTH must cover either duty")
	}
	if !SpecialtyField.Covers(SpecialtyField) {
		t.Fatal("FIELD must cover FIELD")
	}
	if SpecialtyField.Covers(SpecialtyTable) {
		t.Fatal("FIELD must not cover TABLE")
	}
}

func TestInMemoryLookups(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if _, err := s.GetReferee(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s.PutReferee(Referee{ID: "ref-1", Rank: RankFirst, Specialty: SpecialtyBoth, Active: true})
	s.PutMatch(Match{ID: "match-1", TournamentID: "t-1", StartsAt: time.Now().UTC(), State: MatchProgrammed})
	s.PutTournament(Tournament{ID: "t-1", Name: "Metro League"})

	r, err := s.GetReferee(ctx, "ref-1")
	if err != nil || r.Rank != RankFirst {
		t.Fatalf("unexpected referee: %v %v", r, err)
	}
	if _, err := s.GetMatch(ctx, "match-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetTournament(ctx, "t-1"); err != nil {
		t.Fatal(err)
	}
	refs, err := s.ListReferees(ctx)
	if err != nil || len(refs) != 1 {
		t.Fatalf("unexpected referees: %v %v", refs, err)
	}
}
