package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"refpay.org/internal/assignment"
	"refpay.org/internal/catalog"
	"refpay.org/internal/client"
	"refpay.org/internal/httpapi"
	"refpay.org/internal/obs"
	"refpay.org/internal/period"
	"refpay.org/internal/rates"
	"refpay.org/internal/settlement"
	"refpay.org/internal/sim"
	"refpay.org/internal/stream"
)

// Season simulator: builds an in-process API over in-memory stores,
// then drives a generated month of fixtures through the real HTTP
// surface and prints the resulting settlement stats.
func main() {
	log.SetFlags(0)
	var (
		seed      = flag.Int64("seed", 0, "Random seed (0 = time-based)")
		monthRaw  = flag.String("month", period.MonthOf(time.Now().UTC()).String(), "Simulated month")
		referees  = flag.Int("referees", 18, "Referee pool size")
		matchdays = flag.Int("matchdays", 8, "Number of matchdays")
	)
	flag.Parse()

	month, err := period.ParseMonth(*monthRaw)
	if err != nil {
		log.Fatalf("month: %v", err)
	}

	gen := sim.NewGenerator(*seed)
	scenario := gen.Season(month, *referees, *matchdays)

	cat := catalog.NewInMemory()
	cat.PutTournament(scenario.Tournament)
	for _, ref := range scenario.Referees {
		cat.PutReferee(ref)
	}
	for _, f := range scenario.Fixtures {
		cat.PutMatch(f.Match)
	}

	registry := assignment.NewInMemory(cat)
	rateTable := rates.NewInMemory()
	calc := settlement.NewCalculator(registry, rateTable, cat)

	obs.Init()
	api := httpapi.New(httpapi.ReadyProbe{}, "sim", registry, rateTable, calc, stream.New())
	api.SetLimits(1000, 1000, 1<<20)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: api.Handler()}
	go func() {
		if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c := client.New("http://" + lis.Addr().String())
	if err := c.Authenticate(ctx, "simulator", []string{"admin"}); err != nil {
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
			log.Fatalf("authenticate: %v", err)
		}
	}

	// Full rate table so every completed assignment resolves.
	for _, rank := range []string{"FIBA", "FIRST", "SECOND", "THIRD", "FORMATION"} {
		for _, role := range assignment.Roles {
			if _, err := c.CreateRate(ctx, scenario.Tournament.ID, rank, string(role), 0, "simulated"); err != nil {
				log.Fatalf("create rate %s/%s: %v", rank, role, err)
			}
		}
	}

	var stats sim.Counter
	for _, fixture := range scenario.Fixtures {
		items := make([]client.AssignmentItem, 0, len(fixture.Crew))
		for _, slot := range fixture.Crew {
			items = append(items, client.AssignmentItem{RefereeID: slot.RefereeID, Role: string(slot.Role)})
		}

		created, err := c.BulkAssign(ctx, fixture.Match.ID, items)
		if err != nil {
			log.Fatalf("bulk assign %s: %v", fixture.Match.ID, err)
		}
		stats.AddAssigned(len(created))

		if gen.CancelChance() {
			n, err := c.CancelAll(ctx, fixture.Match.ID)
			if err != nil {
				log.Fatalf("cancel %s: %v", fixture.Match.ID, err)
			}
			stats.AddCanceled(n)
			continue
		}

		for _, a := range created {
			if !gen.AcceptChance() {
				if _, err := c.Reject(ctx, a.ID, "unavailable"); err != nil {
					log.Fatalf("reject %s: %v", a.ID, err)
				}
				stats.AddRejected()
				continue
			}
			if _, err := c.Accept(ctx, a.ID, ""); err != nil {
				log.Fatalf("accept %s: %v", a.ID, err)
			}
			stats.AddAccepted()
			if _, err := c.Complete(ctx, a.ID); err != nil {
				log.Fatalf("complete %s: %v", a.ID, err)
			}
			stats.AddCompleted()
		}
	}

	summary, err := c.MonthlySummary(ctx, month)
	if err != nil {
		log.Fatalf("monthly summary: %v", err)
	}
	for _, row := range summary {
		stats.AddPay(row.TotalAmount)
	}

	fmt.Printf("season %s: fixtures=%d assigned=%d accepted=%d rejected=%d completed=%d canceled=%d\n",
		month, len(scenario.Fixtures), stats.Assigned, stats.Accepted, stats.Rejected, stats.Completed, stats.Canceled)
	fmt.Printf("payroll: referees_paid=%d total_amount=%d\n", len(summary), stats.TotalPay)
}
