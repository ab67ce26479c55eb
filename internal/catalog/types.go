package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("catalog: not found")
	ErrUnknownEnum = errors.New("catalog: unknown enum value")
)

// Rank is a referee's certification tier, ordered FIBA > FIRST >
// SECOND > THIRD > FORMATION. It is one of the three rate lookup keys.
type Rank string

const (
	RankFIBA      Rank = "FIBA"
	RankFirst     Rank = "FIRST"
	RankSecond    Rank = "SECOND"
	RankThird     Rank = "THIRD"
	RankFormation Rank = "FORMATION"
)

// ParseRank validates a wire value.
func ParseRank(s string) (Rank, error) {
	switch Rank(s) {
	case RankFIBA, RankFirst, RankSecond, RankThird, RankFormation:
		return Rank(s), nil
	}
	return "", ErrUnknownEnum
}

// Specialty constrains which duties a referee may be offered.
type Specialty string

const (
	SpecialtyField Specialty = "FIELD"
	SpecialtyTable Specialty = "TABLE"
	SpecialtyBoth  Specialty = "BOTH"
)

// ParseSpecialty validates a wire value.
func ParseSpecialty(s string) (Specialty, error) {
	switch Specialty(s) {
	case SpecialtyField, SpecialtyTable, SpecialtyBoth:
		return Specialty(s), nil
	}
	return "", ErrUnknownEnum
}

// Covers reports whether a referee with specialty s may take a duty
// that needs the given specialty.
func (s Specialty) Covers(need Specialty) bool {
	return s == SpecialtyBoth || s == need
}

// MatchState is the match's own lifecycle. It is correlated with, but
// independent of, the states of the match's assignments.
type MatchState string

const (
	MatchProgrammed MatchState = "PROGRAMMED"
	MatchInProgress MatchState = "IN_PROGRESS"
	MatchFinished   MatchState = "FINISHED"
	MatchCanceled   MatchState = "CANCELED"
	MatchSuspended  MatchState = "SUSPENDED"
)

// ParseMatchState validates a wire value.
func ParseMatchState(s string) (MatchState, error) {
	switch MatchState(s) {
	case MatchProgrammed, MatchInProgress, MatchFinished, MatchCanceled, MatchSuspended:
		return MatchState(s), nil
	}
	return "", ErrUnknownEnum
}

// Referee is a catalog record; lifecycle owned outside the core.
type Referee struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rank      Rank      `json:"rank"`
	Specialty Specialty `json:"specialty"`
	Active    bool      `json:"active"`
}

// Match is a scheduled fixture.
type Match struct {
	ID           string     `json:"id"`
	TournamentID string     `json:"tournament_id"`
	CourtID      string     `json:"court_id"`
	StartsAt     time.Time  `json:"starts_at"`
	State        MatchState `json:"state"`
}

// Tournament participates in rate keys by identity.
type Tournament struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Court is a venue record.
type Court struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
