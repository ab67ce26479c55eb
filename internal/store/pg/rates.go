package pg

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"refpay.org/internal/assignment"
	"refpay.org/internal/catalog"
	"refpay.org/internal/ids"
	"refpay.org/internal/rates"
)

var _ rates.Service = RateStore{}

// RateStore adapts Store to rates.Service. The rates FindByID cannot
// be a Store method because assignment.Service already claims that
// name with a different return type; every other method is promoted
// from the embedded Store.
type RateStore struct{ *Store }

// Rates returns the rates.Service view of the store.
func (s *Store) Rates() RateStore { return RateStore{s} }

func (s RateStore) FindByID(ctx context.Context, id string) (rates.Entry, error) {
	return s.findRateByID(ctx, id)
}

const rateColumns = `id, tournament_id, rank, role, amount, active, description, created_at, updated_at`

// uniqueViolation is the Postgres error code raised by the partial
// unique index on active (tournament_id, rank, role) keys.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Store) Resolve(ctx context.Context, tournamentID string, rank catalog.Rank, role assignment.Role) (int64, error) {
	var amount int64
	err := s.db.QueryRowContext(ctx, `
		select amount from rate_entries
		where tournament_id=$1 and rank=$2 and role=$3 and active
	`, tournamentID, rank, role).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, rates.ErrNotResolved
	}
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// Create inserts an active entry with amount = base(rank) + supplement.
// The partial unique index turns a racing duplicate into ErrDuplicateKey.
func (s *Store) Create(ctx context.Context, tournamentID string, rank catalog.Rank, role assignment.Role, supplement int64, description string) (rates.Entry, error) {
	if strings.TrimSpace(tournamentID) == "" {
		return rates.Entry{}, rates.ErrValidation
	}
	if _, err := assignment.ParseRole(string(role)); err != nil {
		return rates.Entry{}, rates.ErrValidation
	}
	if supplement < 0 {
		return rates.Entry{}, rates.ErrValidation
	}

	now := s.now()
	e := rates.Entry{
		ID:           ids.New(),
		TournamentID: tournamentID,
		Rank:         rank,
		Role:         role,
		Amount:       rates.BaseAmount(rank) + supplement,
		Active:       true,
		Description:  description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.db.ExecContext(ctx, `
		insert into rate_entries(id, tournament_id, rank, role, amount, active, description, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,nullif($7,''),$8,$9)
	`, e.ID, e.TournamentID, e.Rank, e.Role, e.Amount, e.Active, e.Description, e.CreatedAt, e.UpdatedAt)
	if isUniqueViolation(err) {
		return rates.Entry{}, rates.ErrDuplicateKey
	}
	if err != nil {
		return rates.Entry{}, err
	}
	return e, nil
}

func (s *Store) Update(ctx context.Context, id string, amount int64, description string) (rates.Entry, error) {
	if amount < 0 {
		return rates.Entry{}, rates.ErrValidation
	}
	res, err := s.db.ExecContext(ctx, `
		update rate_entries set amount=$2, description=nullif($3,''), updated_at=$4 where id=$1
	`, id, amount, description, s.now())
	if err != nil {
		return rates.Entry{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return rates.Entry{}, err
	} else if n == 0 {
		return rates.Entry{}, rates.ErrNotFound
	}
	return s.findRateByID(ctx, id)
}

func (s *Store) Deactivate(ctx context.Context, id string) (rates.Entry, error) {
	return s.setActive(ctx, id, false)
}

func (s *Store) Activate(ctx context.Context, id string) (rates.Entry, error) {
	return s.setActive(ctx, id, true)
}

func (s *Store) setActive(ctx context.Context, id string, active bool) (rates.Entry, error) {
	res, err := s.db.ExecContext(ctx, `
		update rate_entries set active=$2, updated_at=$3 where id=$1
	`, id, active, s.now())
	if isUniqueViolation(err) {
		return rates.Entry{}, rates.ErrDuplicateKey
	}
	if err != nil {
		return rates.Entry{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return rates.Entry{}, err
	} else if n == 0 {
		return rates.Entry{}, rates.ErrNotFound
	}
	return s.findRateByID(ctx, id)
}

func (s *Store) findRateByID(ctx context.Context, id string) (rates.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+rateColumns+` from rate_entries where id=$1
	`, id)
	e, err := scanRate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rates.Entry{}, rates.ErrNotFound
	}
	return e, err
}

func (s *Store) List(ctx context.Context, f rates.Filter) ([]rates.Entry, error) {
	query := `select ` + rateColumns + ` from rate_entries`
	var clauses []string
	var args []any
	add := func(cond string, val any) {
		args = append(args, val)
		clauses = append(clauses, cond+"$"+strconv.Itoa(len(args)))
	}
	if f.TournamentID != "" {
		add("tournament_id=", f.TournamentID)
	}
	if f.Rank != "" {
		add("rank=", string(f.Rank))
	}
	if f.Role != "" {
		add("role=", string(f.Role))
	}
	if f.ActiveOnly {
		clauses = append(clauses, "active")
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		add("description ilike ", "%"+search+"%")
	}
	if len(clauses) > 0 {
		query += " where " + strings.Join(clauses, " and ")
	}
	query += " order by id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rates.Entry
	for rows.Next() {
		e, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRate(row rowScanner) (rates.Entry, error) {
	var e rates.Entry
	var description sql.NullString
	if err := row.Scan(&e.ID, &e.TournamentID, &e.Rank, &e.Role, &e.Amount,
		&e.Active, &description, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return rates.Entry{}, err
	}
	if description.Valid {
		e.Description = description.String
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}
