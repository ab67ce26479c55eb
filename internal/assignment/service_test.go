package assignment

import (
	"context"
	"sync"
	"testing"
	"time"

	"refpay.org/internal/catalog"
	"refpay.org/internal/period"
)

func testCatalog() *catalog.InMemory {
	cat := catalog.NewInMemory()
	cat.PutTournament(catalog.Tournament{ID: "t-1", Name: "Metro League"})
	cat.PutReferee(catalog.Referee{ID: "ref-1", Rank: catalog.RankFirst, Specialty: catalog.SpecialtyBoth, Active: true})
	cat.PutReferee(catalog.Referee{ID: "ref-2", Rank: catalog.RankSecond, Specialty: catalog.SpecialtyField, Active: true})
	cat.PutReferee(catalog.Referee{ID: "ref-3", Rank: catalog.RankThird, Specialty: catalog.SpecialtyTable, Active: true})
	cat.PutReferee(catalog.Referee{ID: "ref-idle", Rank: catalog.RankThird, Specialty: catalog.SpecialtyBoth, Active: false})
	cat.PutMatch(catalog.Match{
		ID:           "m-1",
		TournamentID: "t-1",
		StartsAt:     time.Date(2026, 8, 15, 18, 0, 0, 0, time.UTC),
		State:        catalog.MatchProgrammed,
	})
	cat.PutMatch(catalog.Match{
		ID:           "m-2",
		TournamentID: "t-1",
		StartsAt:     time.Date(2026, 8, 15, 19, 0, 0, 0, time.UTC), // overlaps m-1
		State:        catalog.MatchProgrammed,
	})
	cat.PutMatch(catalog.Match{
		ID:           "m-3",
		TournamentID: "t-1",
		StartsAt:     time.Date(2026, 8, 22, 18, 0, 0, 0, time.UTC),
		State:        catalog.MatchProgrammed,
	})
	return cat
}

func TestBulkAssignReplaceSemantics(t *testing.T) {
	s := NewInMemory(testCatalog())
	ctx := context.Background()

	first, err := s.BulkAssign(ctx, "m-1", []string{"ref-1", "ref-2"}, []Role{RoleFirstReferee, RoleSecondReferee})
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(first))
	}
	for _, a := range first {
		if a.State != StatePending {
			t.Fatalf("new assignments must be PENDING, got %s", a.State)
		}
		if a.CreatedAt.IsZero() || !a.CreatedAt.Equal(a.UpdatedAt) {
			t.Fatalf("creation must set both timestamps: %v %v", a.CreatedAt, a.UpdatedAt)
		}
	}

	second, err := s.BulkAssign(ctx, "m-1", []string{"ref-3"}, []Role{RoleAnnotator})
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(second))
	}

	got, err := s.FindByMatch(ctx, "m-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].RefereeID != "ref-3" || got[0].Role != RoleAnnotator {
		t.Fatalf("replace semantics violated: %+v", got)
	}
	for _, old := range first {
		if _, err := s.FindByID(ctx, old.ID); err != ErrNotFound {
			t.Fatalf("prior assignment %s must be gone, got %v", old.ID, err)
		}
	}
}

func TestBulkAssignValidation(t *testing.T) {
	s := NewInMemory(testCatalog())
	ctx := context.Background()

	cases := []struct {
		name     string
		matchID  string
		referees []string
		roles    []Role
		want     error
	}{
		{"length mismatch", "m-1", []string{"ref-1"}, []Role{RoleFirstReferee, RoleAnnotator}, ErrValidation},
		{"empty batch", "m-1", nil, nil, ErrValidation},
		{"duplicate referee", "m-1", []string{"ref-1", "ref-1"}, []Role{RoleFirstReferee, RoleSecondReferee}, ErrValidation},
		{"unknown role", "m-1", []string{"ref-1"}, []Role{Role("MASCOT")}, ErrValidation},
		{"missing match", "nope", []string{"ref-1"}, []Role{RoleFirstReferee}, ErrNotFound},
		{"missing referee", "m-1", []string{"ghost"}, []Role{RoleFirstReferee}, ErrNotFound},
		{"inactive referee", "m-1", []string{"ref-idle"}, []Role{RoleFirstReferee}, ErrValidation},
		{"field referee at table", "m-1", []string{"ref-2"}, []Role{RoleTimekeeper}, ErrValidation},
		{"table referee on court", "m-1", []string{"ref-3"}, []Role{RoleFirstReferee}, ErrValidation},
	}
	for _, tc := range cases {
		if _, err := s.BulkAssign(ctx, tc.matchID, tc.referees, tc.roles); err != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	// A failed batch must not disturb existing assignments.
	if _, err := s.BulkAssign(ctx, "m-1", []string{"ref-1"}, []Role{RoleFirstReferee}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.BulkAssign(ctx, "m-1", []string{"ref-1", "ghost"}, []Role{RoleFirstReferee, RoleSecondReferee}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, _ := s.FindByMatch(ctx, "m-1")
	if len(got) != 1 {
		t.Fatalf("failed batch must leave prior set intact, got %d", len(got))
	}
}

func TestScheduleConflict(t *testing.T) {
	s := NewInMemory(testCatalog())
	ctx := context.Background()

	if _, err := s.BulkAssign(ctx, "m-1", []string{"ref-1"}, []Role{RoleFirstReferee}); err != nil {
		t.Fatal(err)
	}
	// m-2 starts one hour into m-1's window.
	if _, err := s.BulkAssign(ctx, "m-2", []string{"ref-1"}, []Role{RoleFirstReferee}); err != ErrScheduleConflict {
		t.Fatalf("expected ErrScheduleConflict, got %v", err)
	}
	// m-3 is a week later.
	if _, err := s.BulkAssign(ctx, "m-3", []string{"ref-1"}, []Role{RoleFirstReferee}); err != nil {
		t.Fatalf("non-overlapping match must be allowed: %v", err)
	}

	// Once the conflicting assignment is rejected it no longer blocks.
	list, _ := s.FindByMatch(ctx, "m-1")
	if _, err := s.Reject(ctx, list[0].ID, "unavailable"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.BulkAssign(ctx, "m-2", []string{"ref-1"}, []Role{RoleFirstReferee}); err != nil {
		t.Fatalf("rejected assignment must not block: %v", err)
	}
}

func TestStateMachineLegality(t *testing.T) {
	s := NewInMemory(testCatalog())
	ctx := context.Background()

	created, err := s.BulkAssign(ctx, "m-1", []string{"ref-1"}, []Role{RoleFirstReferee})
	if err != nil {
		t.Fatal(err)
	}
	id := created[0].ID

	// COMPLETED is only reachable from ACCEPTED.
	if _, err := s.Complete(ctx, id); err != ErrInvalidTransition {
		t.Fatalf("complete without accept must fail, got %v", err)
	}

	acc, err := s.Accept(ctx, id, "confirmed")
	if err != nil {
		t.Fatal(err)
	}
	if acc.State != StateAccepted || acc.ResponseAt == nil || acc.Comment != "confirmed" {
		t.Fatalf("unexpected accepted assignment: %+v", acc)
	}
	firstResponse := *acc.ResponseAt

	// Re-accepting must not re-stamp the response.
	if _, err := s.Accept(ctx, id, "again"); err != ErrInvalidTransition {
		t.Fatalf("re-accept must fail, got %v", err)
	}
	if _, err := s.Reject(ctx, id, ""); err != ErrInvalidTransition {
		t.Fatalf("reject after accept must fail, got %v", err)
	}

	done, err := s.Complete(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if done.State != StateCompleted {
		t.Fatalf("expected COMPLETED, got %s", done.State)
	}
	if !done.ResponseAt.Equal(firstResponse) {
		t.Fatal("response timestamp must never be reset")
	}

	// Terminal finality.
	if _, err := s.Accept(ctx, id, ""); err != ErrInvalidTransition {
		t.Fatalf("transition out of COMPLETED must fail, got %v", err)
	}
	if _, err := s.Complete(ctx, id); err != ErrInvalidTransition {
		t.Fatalf("re-complete must fail, got %v", err)
	}

	// Missing ids surface ErrNotFound instead of a silent no-op.
	if _, err := s.Accept(ctx, "ghost", ""); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectIsTerminal(t *testing.T) {
	s := NewInMemory(testCatalog())
	ctx := context.Background()

	created, _ := s.BulkAssign(ctx, "m-1", []string{"ref-1"}, []Role{RoleFirstReferee})
	id := created[0].ID
	rej, err := s.Reject(ctx, id, "travelling")
	if err != nil {
		t.Fatal(err)
	}
	if rej.State != StateRejected || rej.ResponseAt == nil {
		t.Fatalf("unexpected rejected assignment: %+v", rej)
	}
	if _, err := s.Accept(ctx, id, ""); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := s.Complete(ctx, id); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelAllLeavesTerminalStates(t *testing.T) {
	s := NewInMemory(testCatalog())
	ctx := context.Background()

	created, err := s.BulkAssign(ctx, "m-1",
		[]string{"ref-1", "ref-2", "ref-3"},
		[]Role{RoleFirstReferee, RoleSecondReferee, RoleAnnotator})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Accept(ctx, created[0].ID, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Complete(ctx, created[0].ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Accept(ctx, created[1].ID, ""); err != nil {
		t.Fatal(err)
	}

	canceled, err := s.CancelAll(ctx, "m-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(canceled) != 2 {
		t.Fatalf("expected 2 cancellations, got %d", len(canceled))
	}
	for _, a := range canceled {
		if a.State != StateCanceled {
			t.Fatalf("returned rows must be CANCELED, got %s", a.State)
		}
		if a.ID == created[0].ID {
			t.Fatal("completed assignment must not be returned as canceled")
		}
	}

	byState := map[State]int{}
	list, _ := s.FindByMatch(ctx, "m-1")
	for _, a := range list {
		byState[a.State]++
	}
	if byState[StateCompleted] != 1 || byState[StateCanceled] != 2 {
		t.Fatalf("unexpected states after cancel: %v", byState)
	}

	// Repeating the cancel changes nothing and returns nothing.
	again, err := s.CancelAll(ctx, "m-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Fatalf("second cancel must return no rows, got %d", len(again))
	}

	if _, err := s.CancelAll(ctx, "ghost"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByRefereeAndMonthBoundaries(t *testing.T) {
	cat := testCatalog()
	lastSecond := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)
	cat.PutMatch(catalog.Match{ID: "m-edge", TournamentID: "t-1", StartsAt: lastSecond, State: catalog.MatchProgrammed})
	cat.PutMatch(catalog.Match{ID: "m-next", TournamentID: "t-1", StartsAt: lastSecond.Add(time.Second), State: catalog.MatchProgrammed})

	s := NewInMemory(cat)
	ctx := context.Background()

	// Complete the edge assignment first so the back-to-back match
	// does not trip the schedule overlap check.
	created, err := s.BulkAssign(ctx, "m-edge", []string{"ref-1"}, []Role{RoleFirstReferee})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Accept(ctx, created[0].ID, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Complete(ctx, created[0].ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.BulkAssign(ctx, "m-next", []string{"ref-1"}, []Role{RoleFirstReferee}); err != nil {
		t.Fatal(err)
	}

	month, _ := period.ParseMonth("2026-08")
	got, err := s.FindByRefereeAndMonth(ctx, "ref-1", month)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].MatchID != "m-edge" {
		t.Fatalf("month boundary violated: %+v", got)
	}

	next, _ := period.ParseMonth("2026-09")
	got, err = s.FindByRefereeAndMonth(ctx, "ref-1", next)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].MatchID != "m-next" {
		t.Fatalf("next month must pick up the later match: %+v", got)
	}
}

func TestQueriesAndCounts(t *testing.T) {
	s := NewInMemory(testCatalog())
	ctx := context.Background()

	a1, _ := s.BulkAssign(ctx, "m-1", []string{"ref-1", "ref-2"}, []Role{RoleFirstReferee, RoleSecondReferee})
	if _, err := s.BulkAssign(ctx, "m-3", []string{"ref-1"}, []Role{RoleFirstReferee}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Accept(ctx, a1[0].ID, ""); err != nil {
		t.Fatal(err)
	}

	byRef, _ := s.FindByReferee(ctx, "ref-1")
	if len(byRef) != 2 {
		t.Fatalf("expected 2 assignments for ref-1, got %d", len(byRef))
	}
	accepted, _ := s.FindByRefereeAndState(ctx, "ref-1", StateAccepted)
	if len(accepted) != 1 {
		t.Fatalf("expected 1 accepted, got %d", len(accepted))
	}
	pending, _ := s.CountByState(ctx, StatePending)
	if pending != 2 {
		t.Fatalf("expected 2 pending, got %d", pending)
	}
}

func TestConcurrentBulkAssignSerializes(t *testing.T) {
	s := NewInMemory(testCatalog())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = s.BulkAssign(ctx, "m-1", []string{"ref-1"}, []Role{RoleFirstReferee})
			} else {
				_, _ = s.BulkAssign(ctx, "m-1", []string{"ref-2"}, []Role{RoleSecondReferee})
			}
		}(i)
	}
	wg.Wait()

	got, _ := s.FindByMatch(ctx, "m-1")
	if len(got) != 1 {
		t.Fatalf("interleaved replaces left %d assignments", len(got))
	}
}
