package settlement

import (
	"context"
	"errors"
	"sort"
	"time"

	"refpay.org/internal/assignment"
	"refpay.org/internal/catalog"
	"refpay.org/internal/obs"
	"refpay.org/internal/period"
	"refpay.org/internal/rates"
)

var ErrRefereeNotFound = errors.New("settlement: referee not found")

// Line is one completed assignment's contribution to a settlement.
// Unresolved lines stay visible with a zero amount so a human can
// reconcile the referee's pay instead of chasing a silently shrunken
// total.
type Line struct {
	Assignment    assignment.Assignment `json:"assignment"`
	TournamentID  string                `json:"tournament_id"`
	MatchStartsAt time.Time             `json:"match_starts_at"`
	Amount        int64                 `json:"amount"`
	Unresolved    bool                  `json:"unresolved,omitempty"`
}

// Settlement is a computed monthly pay report for one referee. It is
// never persisted; callers recompute it on demand.
type Settlement struct {
	RefereeID     string                    `json:"referee_id"`
	Period        period.Month              `json:"period"`
	Lines         []Line                    `json:"lines"`
	TotalAmount   int64                     `json:"total_amount"`
	TotalMatches  int                       `json:"total_matches"`
	MatchesByRole map[assignment.Role]int   `json:"matches_by_role"`
	AmountsByRole map[assignment.Role]int64 `json:"amounts_by_role"`
	Unresolved    int                       `json:"unresolved"`
}

// Summary is one referee's row in a monthly roll-up.
type Summary struct {
	RefereeID    string `json:"referee_id"`
	RefereeName  string `json:"referee_name"`
	TotalMatches int    `json:"total_matches"`
	TotalAmount  int64  `json:"total_amount"`
	Unresolved   int    `json:"unresolved"`
}

// Calculator computes settlements from the assignment registry and the
// rate table. It holds no state and mutates nothing; calling it twice
// with unchanged inputs yields identical output.
type Calculator struct {
	assignments assignment.Service
	rates       rates.Service
	catalog     catalog.Store
}

// NewCalculator wires the calculator's collaborators.
func NewCalculator(assignments assignment.Service, rateTable rates.Service, cat catalog.Store) *Calculator {
	return &Calculator{assignments: assignments, rates: rateTable, catalog: cat}
}

// Calculate builds the referee's settlement for one calendar month:
// all assignments whose match falls in the month, filtered to
// COMPLETED, each resolved against the rate table by
// (tournament, referee rank, role) and summed as fixed-point integers.
func (c *Calculator) Calculate(ctx context.Context, refereeID string, month period.Month) (Settlement, error) {
	referee, err := c.catalog.GetReferee(ctx, refereeID)
	if err != nil {
		return Settlement{}, ErrRefereeNotFound
	}

	inMonth, err := c.assignments.FindByRefereeAndMonth(ctx, refereeID, month)
	if err != nil {
		return Settlement{}, err
	}

	out := Settlement{
		RefereeID:     refereeID,
		Period:        month,
		Lines:         []Line{},
		MatchesByRole: make(map[assignment.Role]int),
		AmountsByRole: make(map[assignment.Role]int64),
	}

	for _, a := range inMonth {
		if a.State != assignment.StateCompleted {
			continue
		}
		match, err := c.catalog.GetMatch(ctx, a.MatchID)
		if err != nil {
			return Settlement{}, err
		}

		line := Line{
			Assignment:    a,
			TournamentID:  match.TournamentID,
			MatchStartsAt: match.StartsAt,
		}
		amount, err := c.rates.Resolve(ctx, match.TournamentID, referee.Rank, a.Role)
		switch {
		case errors.Is(err, rates.ErrNotResolved):
			// Degrades to zero pay, but visibly: flagged on the line,
			// counted, and logged for reconciliation.
			line.Unresolved = true
			out.Unresolved++
			obs.RateUnresolved()
			obs.Log("warn", "rate unresolved", map[string]any{
				"assignment_id": a.ID,
				"tournament_id": match.TournamentID,
				"rank":          string(referee.Rank),
				"role":          string(a.Role),
			})
		case err != nil:
			return Settlement{}, err
		default:
			line.Amount = amount
		}

		out.Lines = append(out.Lines, line)
		out.TotalAmount += line.Amount
		out.MatchesByRole[a.Role]++
		out.AmountsByRole[a.Role] += line.Amount
	}

	sort.Slice(out.Lines, func(i, j int) bool {
		if !out.Lines[i].MatchStartsAt.Equal(out.Lines[j].MatchStartsAt) {
			return out.Lines[i].MatchStartsAt.Before(out.Lines[j].MatchStartsAt)
		}
		return out.Lines[i].Assignment.ID < out.Lines[j].Assignment.ID
	})
	out.TotalMatches = len(out.Lines)

	obs.SettlementCalculated()
	return out, nil
}

// MonthlySummary computes per-referee totals for every active referee
// in the catalog, ordered by referee id.
func (c *Calculator) MonthlySummary(ctx context.Context, month period.Month) ([]Summary, error) {
	referees, err := c.catalog.ListReferees(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(referees, func(i, j int) bool { return referees[i].ID < referees[j].ID })

	var out []Summary
	for _, ref := range referees {
		if !ref.Active {
			continue
		}
		st, err := c.Calculate(ctx, ref.ID, month)
		if err != nil {
			return nil, err
		}
		if st.TotalMatches == 0 {
			continue
		}
		out = append(out, Summary{
			RefereeID:    ref.ID,
			RefereeName:  ref.Name,
			TotalMatches: st.TotalMatches,
			TotalAmount:  st.TotalAmount,
			Unresolved:   st.Unresolved,
		})
	}
	return out, nil
}
