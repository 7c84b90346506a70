package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harshk49/nexell-backend/internal/board"

	"github.com/jackc/pgx/v5/pgconn"
)

// ---- task CRUD ----

func (s *PostgresStore) InsertTask(ctx context.Context, task Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, owner_id, title, description, lane, position, due_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, task.ID, task.OwnerID, task.Title, task.Description, task.Lane, task.Position, task.DueAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, ownerID, taskID string) (Task, error) {
	var item Task
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, description, lane, position, due_at, created_at, updated_at
		FROM tasks
		WHERE id=$1 AND owner_id=$2
	`, taskID, ownerID).Scan(
		&item.ID,
		&item.OwnerID,
		&item.Title,
		&item.Description,
		&item.Lane,
		&item.Position,
		&item.DueAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	return item, nil
}

// ListTasks returns every task for the owner in board order: lane
// grouping is the caller's concern, ordering inside a lane is position
// with creation time then id breaking ties.
func (s *PostgresStore) ListTasks(ctx context.Context, ownerID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, description, lane, position, due_at, created_at, updated_at
		FROM tasks
		WHERE owner_id=$1
		ORDER BY lane ASC, position ASC, created_at ASC, id ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		var item Task
		if err := rows.Scan(
			&item.ID,
			&item.OwnerID,
			&item.Title,
			&item.Description,
			&item.Lane,
			&item.Position,
			&item.DueAt,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateTaskDetails(ctx context.Context, task Task) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET title=$3, description=$4, due_at=$5, updated_at=NOW()
		WHERE id=$1 AND owner_id=$2
	`, task.ID, task.OwnerID, task.Title, task.Description, task.DueAt)
	if err != nil {
		return false, fmt.Errorf("update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update task rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteTask removes the task and leaves its neighbors' positions
// untouched; the board tolerates gaps until the next rebalance.
func (s *PostgresStore) DeleteTask(ctx context.Context, ownerID, taskID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1 AND owner_id=$2`, taskID, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task rows: %w", err)
	}
	return affected > 0, nil
}

// ---- board.Store adapter ----

// BoardStore adapts the tasks table to the board engine's transactional
// contract.
type BoardStore struct {
	db *sql.DB
}

func NewBoardStore(db *sql.DB) *BoardStore {
	return &BoardStore{db: db}
}

// InTx runs fn inside one read-committed transaction, rolling back on
// any error or panic. Postgres serialization and deadlock aborts are
// translated to board.ErrSerialization so the engine can retry.
func (s *BoardStore) InTx(ctx context.Context, fn func(tx board.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin board tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(&boardTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return translateTxError(err)
	}
	if err = tx.Commit(); err != nil {
		return translateTxError(fmt.Errorf("commit board tx: %w", err))
	}
	return nil
}

func translateTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return fmt.Errorf("%w: %v", board.ErrSerialization, err)
		}
	}
	return err
}

type boardTx struct {
	tx *sql.Tx
}

func (t *boardTx) GetItemForUpdate(ctx context.Context, id string) (board.Item, error) {
	var item board.Item
	var lane string
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, owner_id, lane, position, created_at
		FROM tasks
		WHERE id=$1
		FOR UPDATE
	`, id).Scan(&item.ID, &item.Owner, &lane, &item.Position, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return board.Item{}, board.ErrNoItem
	}
	if err != nil {
		return board.Item{}, fmt.Errorf("load task for update: %w", err)
	}
	item.Lane = board.Lane(lane)
	return item, nil
}

func (t *boardTx) MaxPosition(ctx context.Context, owner string, lane board.Lane) (int64, bool, error) {
	var max sql.NullInt64
	err := t.tx.QueryRowContext(ctx, `
		SELECT MAX(position) FROM tasks WHERE owner_id=$1 AND lane=$2
	`, owner, lane.String()).Scan(&max)
	if err != nil {
		return 0, false, fmt.Errorf("max position: %w", err)
	}
	return max.Int64, max.Valid, nil
}

func (t *boardTx) ShiftRange(ctx context.Context, owner string, lane board.Lane, lo, hi, delta int64, excludeID string) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE tasks
		SET position = position + $5, updated_at=NOW()
		WHERE owner_id=$1 AND lane=$2
			AND position BETWEEN $3 AND $4
			AND ($6='' OR id <> $6)
	`, owner, lane.String(), lo, hi, delta, excludeID)
	if err != nil {
		return fmt.Errorf("shift positions: %w", err)
	}
	return nil
}

func (t *boardTx) PlaceItem(ctx context.Context, id string, lane board.Lane, position int64) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE tasks SET lane=$2, position=$3, updated_at=NOW() WHERE id=$1
	`, id, lane.String(), position)
	if err != nil {
		return fmt.Errorf("place task: %w", err)
	}
	return nil
}

func (t *boardTx) ListPartition(ctx context.Context, owner string, lane board.Lane) ([]board.Item, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, owner_id, lane, position, created_at
		FROM tasks
		WHERE owner_id=$1 AND lane=$2
		ORDER BY position ASC, created_at ASC, id ASC
		FOR UPDATE
	`, owner, lane.String())
	if err != nil {
		return nil, fmt.Errorf("list partition: %w", err)
	}
	defer rows.Close()

	items := make([]board.Item, 0)
	for rows.Next() {
		var item board.Item
		var laneValue string
		if err := rows.Scan(&item.ID, &item.Owner, &laneValue, &item.Position, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan partition item: %w", err)
		}
		item.Lane = board.Lane(laneValue)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partition: %w", err)
	}
	return items, nil
}

func (t *boardTx) LanesWithItems(ctx context.Context, owner string) ([]board.Lane, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT DISTINCT lane FROM tasks WHERE owner_id=$1
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("lanes with items: %w", err)
	}
	defer rows.Close()

	present := make(map[board.Lane]bool)
	for rows.Next() {
		var lane string
		if err := rows.Scan(&lane); err != nil {
			return nil, fmt.Errorf("scan lane: %w", err)
		}
		present[board.Lane(lane)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lanes: %w", err)
	}

	// Keep board order stable.
	lanes := make([]board.Lane, 0, len(present))
	for _, lane := range board.Lanes {
		if present[lane] {
			lanes = append(lanes, lane)
		}
	}
	return lanes, nil
}
