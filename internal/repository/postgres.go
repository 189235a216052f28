package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store on a pgx connection pool.
//
// ─────────────────────────────────────────────────────────────────────────────
// LOCKING
// ─────────────────────────────────────────────────────────────────────────────
//
// A swap touches three rows: the request and its two events. Reading the
// event statuses and writing them back in separate statements would let two
// proposals for the same SWAPPABLE event both see SWAPPABLE and both lock it:
//
//	tx A: SELECT status FROM events WHERE id = E  → SWAPPABLE
//	tx B: SELECT status FROM events WHERE id = E  → SWAPPABLE
//	tx A: INSERT swap, UPDATE events SET status = 'SWAP_PENDING'
//	tx B: INSERT swap, UPDATE events SET status = 'SWAP_PENDING'
//	Result: two PENDING requests on one event.
//
// Every decision row is therefore loaded with SELECT … FOR UPDATE inside the
// transaction that writes it. The second transaction blocks on the row lock,
// then re-reads the committed SWAP_PENDING status and fails with a conflict.
// The service locks events in ascending id order so two transactions never
// wait on each other in a cycle.
//
// Overlap checks lock nothing that already exists for a new event, so writes
// to one owner's calendar are serialised with pg_advisory_xact_lock instead.
// ─────────────────────────────────────────────────────────────────────────────
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithinTx begins a transaction, runs fn and commits when fn succeeds.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Releases the connection on error and on panic. A no-op after Commit.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

const eventColumns = `id, owner_id, title, start_time, end_time, status, created_at, updated_at`

func scanEvent(row pgx.Row) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &e.StartTime, &e.EndTime, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (t *pgTx) LockOwner(ctx context.Context, ownerID string) error {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, ownerID); err != nil {
		return fmt.Errorf("lock owner calendar: %w", err)
	}
	return nil
}

func (t *pgTx) EventForUpdate(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(t.tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: event %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	return &e, nil
}

func (t *pgTx) EventsByOwner(ctx context.Context, ownerID string) ([]model.Event, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE owner_id = $1
		 ORDER BY start_time ASC, id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events by owner: %w", err)
	}
	return collectEvents(rows)
}

func (t *pgTx) SwappableEvents(ctx context.Context, excludingOwner string) ([]model.Event, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE status = $1 AND owner_id <> $2
		 ORDER BY start_time ASC, id ASC`,
		model.StatusSwappable, excludingOwner,
	)
	if err != nil {
		return nil, fmt.Errorf("list swappable events: %w", err)
	}
	return collectEvents(rows)
}

func (t *pgTx) EventsByIDs(ctx context.Context, ids []string) ([]model.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := t.tx.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list events by id: %w", err)
	}
	return collectEvents(rows)
}

func (t *pgTx) InsertEvent(ctx context.Context, e *model.Event) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO events (id, owner_id, title, start_time, end_time, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.OwnerID, e.Title, e.StartTime, e.EndTime, e.Status, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateEvent(ctx context.Context, e *model.Event) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE events
		 SET owner_id = $2, title = $3, start_time = $4, end_time = $5, status = $6, updated_at = $7
		 WHERE id = $1`,
		e.ID, e.OwnerID, e.Title, e.StartTime, e.EndTime, e.Status, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: event %s", model.ErrNotFound, e.ID)
	}
	return nil
}

func (t *pgTx) DeleteEvent(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: event %s", model.ErrNotFound, id)
	}
	return nil
}

const swapColumns = `id, requester_id, receiver_id, offered_slot_id, requested_slot_id, status, created_at, updated_at`

func scanSwap(row pgx.Row) (model.SwapRequest, error) {
	var s model.SwapRequest
	err := row.Scan(&s.ID, &s.RequesterID, &s.ReceiverID, &s.OfferedSlotID, &s.RequestedSlotID, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (t *pgTx) InsertSwap(ctx context.Context, s *model.SwapRequest) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO swap_requests (id, requester_id, receiver_id, offered_slot_id, requested_slot_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.RequesterID, s.ReceiverID, s.OfferedSlotID, s.RequestedSlotID, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: slot already has a pending swap request", model.ErrConflict)
		}
		return fmt.Errorf("insert swap request: %w", err)
	}
	return nil
}

func (t *pgTx) SwapForUpdate(ctx context.Context, id string) (*model.SwapRequest, error) {
	s, err := scanSwap(t.tx.QueryRow(ctx,
		`SELECT `+swapColumns+` FROM swap_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: swap request %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("lock swap request row: %w", err)
	}
	return &s, nil
}

func (t *pgTx) UpdateSwap(ctx context.Context, s *model.SwapRequest) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE swap_requests SET status = $2, updated_at = $3 WHERE id = $1`,
		s.ID, s.Status, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update swap request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: swap request %s", model.ErrNotFound, s.ID)
	}
	return nil
}

func (t *pgTx) PendingSwaps(ctx context.Context, f SwapFilter) ([]model.SwapRequest, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+swapColumns+`
		 FROM swap_requests
		 WHERE status = $1
		   AND ($2::text = '' OR requester_id = $2::text)
		   AND ($3::text = '' OR receiver_id = $3::text)
		 ORDER BY created_at DESC, id DESC`,
		model.SwapPending, f.RequesterID, f.ReceiverID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending swap requests: %w", err)
	}
	defer rows.Close()

	var swaps []model.SwapRequest
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap request: %w", err)
		}
		swaps = append(swaps, s)
	}
	return swaps, rows.Err()
}

const userColumns = `id, name, email, password_hash, created_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (t *pgTx) InsertUser(ctx context.Context, u *model.User) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: user with this email already exists", model.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (t *pgTx) UserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (t *pgTx) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user", model.ErrNotFound)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (t *pgTx) UsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := t.tx.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list users by id: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
