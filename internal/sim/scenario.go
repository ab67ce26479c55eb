// Package sim synthesizes a plausible season of fixtures so the
// service can be exercised end to end without real catalog data.
package sim

import (
	"fmt"
	"math/rand"
	"time"

	"refpay.org/internal/assignment"
	"refpay.org/internal/catalog"
	"refpay.org/internal/period"
)

// Fixture is one scheduled match plus the crew the operator intends to
// assign to it.
type Fixture struct {
	Match catalog.Match
	Crew  []CrewSlot
}

// CrewSlot pairs a referee with the role they are offered.
type CrewSlot struct {
	RefereeID string
	Role      assignment.Role
}

// Scenario is a generated month of basketball.
type Scenario struct {
	Tournament catalog.Tournament
	Courts     []catalog.Court
	Referees   []catalog.Referee
	Fixtures   []Fixture
}

// Generator builds scenarios and drives random outcomes.
type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

var ranks = []catalog.Rank{
	catalog.RankFIBA, catalog.RankFirst, catalog.RankSecond,
	catalog.RankThird, catalog.RankFormation,
}

// Season lays out fixtures across the month: one per court per
// matchday, every third day, each with a full six-role crew. Crews are
// spread so no referee is double-booked inside the two-hour window.
func (g *Generator) Season(month period.Month, refereeCount, matchdays int) Scenario {
	if refereeCount < 12 {
		refereeCount = 12
	}
	if matchdays < 1 {
		matchdays = 1
	}

	sc := Scenario{
		Tournament: catalog.Tournament{ID: "trn-sim", Name: "Simulated Regional League"},
		Courts: []catalog.Court{
			{ID: "crt-sim-1", Name: "Court One"},
			{ID: "crt-sim-2", Name: "Court Two"},
		},
	}

	for i := 0; i < refereeCount; i++ {
		specialty := catalog.SpecialtyField
		if i%3 == 1 {
			specialty = catalog.SpecialtyTable
		} else if i%3 == 2 {
			specialty = catalog.SpecialtyBoth
		}
		sc.Referees = append(sc.Referees, catalog.Referee{
			ID:        fmt.Sprintf("ref-sim-%03d", i+1),
			Name:      fmt.Sprintf("Referee %03d", i+1),
			Rank:      ranks[g.rnd.Intn(len(ranks))],
			Specialty: specialty,
			Active:    true,
		})
	}

	start, end := month.Range()
	matchNo := 0
	for day := 0; day < matchdays; day++ {
		tipoff := start.AddDate(0, 0, day*3).Add(18 * time.Hour)
		if tipoff.After(end) {
			break
		}
		for _, court := range sc.Courts {
			matchNo++
			m := catalog.Match{
				ID:           fmt.Sprintf("m-sim-%03d", matchNo),
				TournamentID: sc.Tournament.ID,
				CourtID:      court.ID,
				StartsAt:     tipoff,
				State:        catalog.MatchProgrammed,
			}
			crew := g.pickCrew(sc.Referees, matchNo)
			sc.Fixtures = append(sc.Fixtures, Fixture{Match: m, Crew: crew})
			tipoff = tipoff.Add(assignment.MatchWindow + time.Hour)
		}
	}
	return sc
}

// pickCrew fills the six roles with compatible referees. The offset
// rotates crews between fixtures so the same people are not assigned
// to overlapping matches.
func (g *Generator) pickCrew(referees []catalog.Referee, offset int) []CrewSlot {
	crew := make([]CrewSlot, 0, len(assignment.Roles))
	used := make(map[string]bool)
	for i, role := range assignment.Roles {
		need := assignment.RoleSpecialty(role)
		for probe := 0; probe < len(referees); probe++ {
			ref := referees[(offset*7+i+probe)%len(referees)]
			if used[ref.ID] || !ref.Specialty.Covers(need) {
				continue
			}
			used[ref.ID] = true
			crew = append(crew, CrewSlot{RefereeID: ref.ID, Role: role})
			break
		}
	}
	return crew
}

// AcceptChance reports whether a referee accepts an offer; roughly one
// in ten declines.
func (g *Generator) AcceptChance() bool {
	return g.rnd.Intn(10) != 0
}

// CancelChance reports whether a fixture gets called off.
func (g *Generator) CancelChance() bool {
	return g.rnd.Intn(20) == 0
}
