package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"refpay.org/internal/assignment"
	"refpay.org/internal/catalog"
	"refpay.org/internal/ids"
	"refpay.org/internal/period"
)

var _ assignment.Service = (*Store)(nil)

const assignmentColumns = `id, match_id, referee_id, role, state, response_at, comment, created_at, updated_at`

// BulkAssign replaces the match's assignment set inside one
// transaction. The `for update` lock on the match row serializes
// concurrent replaces for the same match, so delete-then-insert cannot
// interleave.
func (s *Store) BulkAssign(ctx context.Context, matchID string, refereeIDs []string, roles []assignment.Role) ([]assignment.Assignment, error) {
	if len(refereeIDs) != len(roles) || len(refereeIDs) == 0 {
		return nil, assignment.ErrValidation
	}
	for _, r := range roles {
		if _, err := assignment.ParseRole(string(r)); err != nil {
			return nil, assignment.ErrValidation
		}
	}
	seen := make(map[string]struct{}, len(refereeIDs))
	for _, id := range refereeIDs {
		if id == "" {
			return nil, assignment.ErrValidation
		}
		if _, dup := seen[id]; dup {
			return nil, assignment.ErrValidation
		}
		seen[id] = struct{}{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var startsAt time.Time
	err = tx.QueryRowContext(ctx, `
		select starts_at from matches where id=$1 for update
	`, matchID).Scan(&startsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, assignment.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	startsAt = startsAt.UTC()
	windowEnd := startsAt.Add(assignment.MatchWindow)

	for i, refID := range refereeIDs {
		var specialty catalog.Specialty
		var active bool
		err := tx.QueryRowContext(ctx, `
			select specialty, active from referees where id=$1
		`, refID).Scan(&specialty, &active)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, assignment.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		if !active || !specialty.Covers(assignment.RoleSpecialty(roles[i])) {
			return nil, assignment.ErrValidation
		}

		var conflicts int
		err = tx.QueryRowContext(ctx, `
			select count(*)
			from assignments a
			join matches m on m.id = a.match_id
			where a.referee_id = $1
			  and a.match_id <> $2
			  and a.state in ('PENDING', 'ACCEPTED')
			  and m.starts_at < $3
			  and m.starts_at + interval '2 hours' > $4
		`, refID, matchID, windowEnd, startsAt).Scan(&conflicts)
		if err != nil {
			return nil, err
		}
		if conflicts > 0 {
			return nil, assignment.ErrScheduleConflict
		}
	}

	if _, err := tx.ExecContext(ctx, `delete from assignments where match_id=$1`, matchID); err != nil {
		return nil, err
	}

	now := s.now()
	created := make([]assignment.Assignment, 0, len(refereeIDs))
	for i, refID := range refereeIDs {
		a := assignment.Assignment{
			ID:        ids.New(),
			MatchID:   matchID,
			RefereeID: refID,
			Role:      roles[i],
			State:     assignment.StatePending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := tx.ExecContext(ctx, `
			insert into assignments(id, match_id, referee_id, role, state, created_at, updated_at)
			values ($1,$2,$3,$4,$5,$6,$7)
		`, a.ID, a.MatchID, a.RefereeID, a.Role, a.State, a.CreatedAt, a.UpdatedAt); err != nil {
			return nil, err
		}
		created = append(created, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) Accept(ctx context.Context, id, comment string) (assignment.Assignment, error) {
	return s.transition(ctx, id, assignment.StateAccepted, comment)
}

func (s *Store) Reject(ctx context.Context, id, comment string) (assignment.Assignment, error) {
	return s.transition(ctx, id, assignment.StateRejected, comment)
}

func (s *Store) Complete(ctx context.Context, id string) (assignment.Assignment, error) {
	return s.transition(ctx, id, assignment.StateCompleted, "")
}

// transition locks the row, checks the edge and applies the write, so
// two writers racing on the same assignment serialize and the loser
// sees the already-applied state.
func (s *Store) transition(ctx context.Context, id string, to assignment.State, comment string) (assignment.Assignment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return assignment.Assignment{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var a assignment.Assignment
	var responseAt sql.NullTime
	var storedComment sql.NullString
	err = tx.QueryRowContext(ctx, `
		select `+assignmentColumns+` from assignments where id=$1 for update
	`, id).Scan(&a.ID, &a.MatchID, &a.RefereeID, &a.Role, &a.State,
		&responseAt, &storedComment, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	if err != nil {
		return assignment.Assignment{}, err
	}
	if !assignment.CanTransition(a.State, to) {
		return assignment.Assignment{}, assignment.ErrInvalidTransition
	}

	now := s.now()
	a.State = to
	a.UpdatedAt = now
	if responseAt.Valid {
		t := responseAt.Time.UTC()
		a.ResponseAt = &t
	} else if to == assignment.StateAccepted || to == assignment.StateRejected {
		a.ResponseAt = &now
	}
	if comment != "" {
		a.Comment = comment
	} else if storedComment.Valid {
		a.Comment = storedComment.String
	}

	if _, err := tx.ExecContext(ctx, `
		update assignments
		set state=$2, response_at=$3, comment=nullif($4,''), updated_at=$5
		where id=$1
	`, a.ID, a.State, a.ResponseAt, a.Comment, a.UpdatedAt); err != nil {
		return assignment.Assignment{}, err
	}
	if err := tx.Commit(); err != nil {
		return assignment.Assignment{}, err
	}
	return a, nil
}

// CancelAll cancels the match's non-terminal assignments and returns
// exactly the rows this call changed.
func (s *Store) CancelAll(ctx context.Context, matchID string) ([]assignment.Assignment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx, `select 1 from matches where id=$1 for update`, matchID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, assignment.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		update assignments
		set state='CANCELED', updated_at=$2
		where match_id=$1 and state in ('PENDING', 'ACCEPTED')
		returning `+assignmentColumns+`
	`, matchID, s.now())
	if err != nil {
		return nil, err
	}
	canceled, err := scanAssignments(rows)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return canceled, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (assignment.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+assignmentColumns+` from assignments where id=$1
	`, id)
	if err != nil {
		return assignment.Assignment{}, err
	}
	list, err := scanAssignments(rows)
	if err != nil {
		return assignment.Assignment{}, err
	}
	if len(list) == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return list[0], nil
}

func (s *Store) FindByMatch(ctx context.Context, matchID string) ([]assignment.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+assignmentColumns+` from assignments
		where match_id=$1 order by created_at, id
	`, matchID)
	if err != nil {
		return nil, err
	}
	return scanAssignments(rows)
}

func (s *Store) FindByReferee(ctx context.Context, refereeID string) ([]assignment.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+assignmentColumns+` from assignments
		where referee_id=$1 order by created_at, id
	`, refereeID)
	if err != nil {
		return nil, err
	}
	return scanAssignments(rows)
}

func (s *Store) FindByRefereeAndState(ctx context.Context, refereeID string, state assignment.State) ([]assignment.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+assignmentColumns+` from assignments
		where referee_id=$1 and state=$2 order by created_at, id
	`, refereeID, state)
	if err != nil {
		return nil, err
	}
	return scanAssignments(rows)
}

func (s *Store) FindByRefereeAndMonth(ctx context.Context, refereeID string, month period.Month) ([]assignment.Assignment, error) {
	start, end := month.Range()
	rows, err := s.db.QueryContext(ctx, `
		select a.id, a.match_id, a.referee_id, a.role, a.state, a.response_at, a.comment, a.created_at, a.updated_at
		from assignments a
		join matches m on m.id = a.match_id
		where a.referee_id=$1 and m.starts_at between $2 and $3
		order by a.created_at, a.id
	`, refereeID, start, end)
	if err != nil {
		return nil, err
	}
	return scanAssignments(rows)
}

func (s *Store) CountByState(ctx context.Context, state assignment.State) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		select count(*) from assignments where state=$1
	`, state).Scan(&n)
	return n, err
}

func scanAssignments(rows *sql.Rows) ([]assignment.Assignment, error) {
	defer rows.Close()
	var out []assignment.Assignment
	for rows.Next() {
		var a assignment.Assignment
		var responseAt sql.NullTime
		var comment sql.NullString
		if err := rows.Scan(&a.ID, &a.MatchID, &a.RefereeID, &a.Role, &a.State,
			&responseAt, &comment, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if responseAt.Valid {
			t := responseAt.Time.UTC()
			a.ResponseAt = &t
		}
		if comment.Valid {
			a.Comment = comment.String
		}
		a.CreatedAt = a.CreatedAt.UTC()
		a.UpdatedAt = a.UpdatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
