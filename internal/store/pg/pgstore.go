package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"refpay.org/internal/catalog"
)

// Store implements the assignment registry, the rate table and the
// read-only catalog against PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ catalog.Store = (*Store)(nil)

// Open connects with tuned pool defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewWithDB(db), nil
}

// NewWithDB wraps an existing connection pool. Used by tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// --- catalog.Store ---

func (s *Store) GetReferee(ctx context.Context, id string) (catalog.Referee, error) {
	var r catalog.Referee
	err := s.db.QueryRowContext(ctx, `
		select id, name, rank, specialty, active from referees where id=$1
	`, id).Scan(&r.ID, &r.Name, &r.Rank, &r.Specialty, &r.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Referee{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Referee{}, err
	}
	return r, nil
}

func (s *Store) GetMatch(ctx context.Context, id string) (catalog.Match, error) {
	var m catalog.Match
	err := s.db.QueryRowContext(ctx, `
		select id, tournament_id, court_id, starts_at, state from matches where id=$1
	`, id).Scan(&m.ID, &m.TournamentID, &m.CourtID, &m.StartsAt, &m.State)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Match{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Match{}, err
	}
	m.StartsAt = m.StartsAt.UTC()
	return m, nil
}

func (s *Store) GetTournament(ctx context.Context, id string) (catalog.Tournament, error) {
	var t catalog.Tournament
	err := s.db.QueryRowContext(ctx, `
		select id, name from tournaments where id=$1
	`, id).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Tournament{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Tournament{}, err
	}
	return t, nil
}

func (s *Store) ListReferees(ctx context.Context) ([]catalog.Referee, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, rank, specialty, active from referees order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Referee
	for rows.Next() {
		var r catalog.Referee
		if err := rows.Scan(&r.ID, &r.Name, &r.Rank, &r.Specialty, &r.Active); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
