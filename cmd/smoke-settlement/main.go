package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"refpay.org/internal/client"
	"refpay.org/internal/period"
)

// Smoke test against a running API: assign a referee, walk the
// assignment through accept and complete, then verify the settlement
// picked up the resolved amount.
func main() {
	log.SetFlags(0)
	var (
		baseURL   = flag.String("base-url", "http://localhost:8080", "API base URL")
		matchID   = flag.String("match", "m-demo-1", "Match to assign")
		refereeID = flag.String("referee", "ref-aliya", "Referee to assign")
		role      = flag.String("role", "FIRST_REFEREE", "Role to offer")
		monthRaw  = flag.String("month", "2026-08", "Settlement month")
	)
	flag.Parse()

	month, err := period.ParseMonth(*monthRaw)
	if err != nil {
		log.Fatalf("month: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New(*baseURL)
	if err := c.Authenticate(ctx, "smoke", []string{"admin"}); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable {
			log.Println("auth disabled, continuing without token")
		} else {
			log.Fatalf("authenticate: %v", err)
		}
	}

	before, err := c.Settlement(ctx, *refereeID, month)
	if err != nil {
		log.Fatalf("settlement before: %v", err)
	}

	created, err := c.BulkAssign(ctx, *matchID, []client.AssignmentItem{
		{RefereeID: *refereeID, Role: *role},
	})
	if err != nil {
		log.Fatalf("bulk assign: %v", err)
	}
	if len(created) != 1 {
		log.Fatalf("expected 1 assignment, got %d", len(created))
	}
	id := created[0].ID

	if _, err := c.Accept(ctx, id, "smoke run"); err != nil {
		log.Fatalf("accept: %v", err)
	}
	if _, err := c.Complete(ctx, id); err != nil {
		log.Fatalf("complete: %v", err)
	}

	after, err := c.Settlement(ctx, *refereeID, month)
	if err != nil {
		log.Fatalf("settlement after: %v", err)
	}

	if after.TotalMatches != before.TotalMatches+1 {
		log.Fatalf("settlement did not pick up the completed match: before=%d after=%d",
			before.TotalMatches, after.TotalMatches)
	}
	delta := after.TotalAmount - before.TotalAmount
	if delta < 0 {
		log.Fatalf("settlement total went backwards: %d", delta)
	}
	if delta == 0 && after.Unresolved == before.Unresolved {
		log.Fatalf("completed match contributed nothing and was not flagged unresolved")
	}

	fmt.Printf("smoke settlement passed: assignment=%s month=%s delta=%d unresolved=%d\n",
		id, month, delta, after.Unresolved)
}
