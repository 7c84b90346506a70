package board

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Spacing is the canonical gap between neighboring positions. The first
// task in an empty lane sits at Spacing, not 0.
const Spacing int64 = 1000

// maxMoveAttempts bounds the transparent retry of a Move whose
// transaction hit a serialization conflict.
const maxMoveAttempts = 3

// Store gives the engine transactional access to task placement.
// Implementations must roll the transaction back on any error, panic,
// or context cancellation, and must serialize conflicting writers to the
// same partition without blocking writers on disjoint partitions.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is one board transaction. All reads and writes within a single
// Allocate, Move, or per-lane Rebalance go through one Tx and commit or
// roll back together.
type Tx interface {
	// GetItemForUpdate loads an item and locks its row for the rest of
	// the transaction. Returns ErrNoItem when the id does not exist.
	GetItemForUpdate(ctx context.Context, id string) (Item, error)

	// MaxPosition returns the highest position in a partition, and
	// whether the partition holds any items at all.
	MaxPosition(ctx context.Context, owner string, lane Lane) (int64, bool, error)

	// ShiftRange adds delta to the position of every item in the
	// partition whose position lies in [lo, hi], excluding excludeID
	// when it is non-empty.
	ShiftRange(ctx context.Context, owner string, lane Lane, lo, hi, delta int64, excludeID string) error

	// PlaceItem writes an item's lane and position.
	PlaceItem(ctx context.Context, id string, lane Lane, position int64) error

	// ListPartition returns a partition's items ordered by position with
	// creation time then id as tie-breakers, locking the rows.
	ListPartition(ctx context.Context, owner string, lane Lane) ([]Item, error)

	// LanesWithItems returns the lanes in which the owner has at least
	// one item.
	LanesWithItems(ctx context.Context, owner string) ([]Lane, error)
}

// Engine allocates, moves, and rebalances board positions.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Allocate returns the position for a task appended to (owner, lane):
// the current maximum plus Spacing, or Spacing for an empty lane. It
// never touches any other partition.
func (e *Engine) Allocate(ctx context.Context, owner string, lane Lane) (int64, error) {
	if !lane.Valid() {
		return 0, &InvalidArgumentError{Field: "lane", Value: lane, Reason: "unknown lane"}
	}

	var position int64
	err := e.store.InTx(ctx, func(tx Tx) error {
		max, exists, err := tx.MaxPosition(ctx, owner, lane)
		if err != nil {
			return err
		}
		if !exists {
			position = Spacing
			return nil
		}
		position = max + Spacing
		return nil
	})
	if err != nil {
		return 0, &StorageError{Op: "allocate", Err: err}
	}
	return position, nil
}

// Move relocates one task to a new lane and/or position, shifting its
// neighbors by Spacing to open a slot at the target and close the gap
// left behind. The whole relocation is one transaction: on any failure
// nothing is persisted.
//
// The target position is taken as supplied. A client that wants to land
// between two neighbors should send a value between their positions
// (the midpoint, or an unoccupied grid value); the engine makes room
// around whatever it is given and relies on Rebalance to restore even
// spacing over time.
func (e *Engine) Move(ctx context.Context, itemID string, lane Lane, position int64) (Item, error) {
	if !lane.Valid() {
		return Item{}, &InvalidArgumentError{Field: "lane", Value: lane, Reason: "unknown lane"}
	}
	if position < 0 {
		return Item{}, &InvalidArgumentError{Field: "position", Value: position, Reason: "must not be negative"}
	}

	var moved Item
	var err error
	for attempt := 1; attempt <= maxMoveAttempts; attempt++ {
		err = e.store.InTx(ctx, func(tx Tx) error {
			item, txErr := tx.GetItemForUpdate(ctx, itemID)
			if errors.Is(txErr, ErrNoItem) {
				return &NotFoundError{ItemID: itemID}
			}
			if txErr != nil {
				return txErr
			}

			if txErr := e.shiftNeighbors(ctx, tx, item, lane, position); txErr != nil {
				return txErr
			}
			if txErr := tx.PlaceItem(ctx, itemID, lane, position); txErr != nil {
				return txErr
			}

			moved = item
			moved.Lane = lane
			moved.Position = position
			return nil
		})
		if !errors.Is(err, ErrSerialization) {
			break
		}
	}
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return Item{}, notFound
		}
		if errors.Is(err, ErrSerialization) {
			return Item{}, &ConflictError{Attempts: maxMoveAttempts, Err: err}
		}
		return Item{}, &StorageError{Op: "move", Err: err}
	}
	return moved, nil
}

// shiftNeighbors opens a slot at the target and closes the gap at the
// origin. Ranges are inclusive, so the contract's open bounds become
// position±1.
func (e *Engine) shiftNeighbors(ctx context.Context, tx Tx, item Item, lane Lane, position int64) error {
	const unbounded = math.MaxInt64

	if lane != item.Lane {
		// Destination first: everything at or beyond the target slides up.
		if err := tx.ShiftRange(ctx, item.Owner, lane, position, unbounded, Spacing, ""); err != nil {
			return err
		}
		// Then the source lane closes over the hole the task leaves.
		return tx.ShiftRange(ctx, item.Owner, item.Lane, item.Position+1, unbounded, -Spacing, "")
	}

	switch {
	case position < item.Position:
		// Moving up: [position, oldPosition) slides down the board.
		return tx.ShiftRange(ctx, item.Owner, lane, position, item.Position-1, Spacing, item.ID)
	case position > item.Position:
		// Moving down: (oldPosition, position] slides up.
		return tx.ShiftRange(ctx, item.Owner, lane, item.Position+1, position, -Spacing, item.ID)
	}
	// Same slot; PlaceItem just confirms the current state.
	return nil
}

// Rebalance rewrites the positions of the given lanes (or, with none
// given, every lane the owner has tasks in) to Spacing, 2*Spacing, ...
// in the current order. Each lane is its own transaction and failures
// do not stop the remaining lanes; the joined errors are returned.
// Running it twice with no intervening moves is a no-op the second time.
func (e *Engine) Rebalance(ctx context.Context, owner string, lanes ...Lane) error {
	for _, lane := range lanes {
		if !lane.Valid() {
			return &InvalidArgumentError{Field: "lane", Value: lane, Reason: "unknown lane"}
		}
	}

	if len(lanes) == 0 {
		err := e.store.InTx(ctx, func(tx Tx) error {
			found, txErr := tx.LanesWithItems(ctx, owner)
			if txErr != nil {
				return txErr
			}
			lanes = found
			return nil
		})
		if err != nil {
			return &StorageError{Op: "rebalance", Err: err}
		}
	}

	var errs []error
	for _, lane := range lanes {
		if err := e.rebalanceLane(ctx, owner, lane); err != nil {
			errs = append(errs, fmt.Errorf("lane %s: %w", lane, err))
		}
	}
	if len(errs) > 0 {
		return &StorageError{Op: "rebalance", Err: errors.Join(errs...)}
	}
	return nil
}

func (e *Engine) rebalanceLane(ctx context.Context, owner string, lane Lane) error {
	return e.store.InTx(ctx, func(tx Tx) error {
		items, err := tx.ListPartition(ctx, owner, lane)
		if err != nil {
			return err
		}
		for i, item := range items {
			want := Spacing * int64(i+1)
			if item.Position == want {
				continue
			}
			if err := tx.PlaceItem(ctx, item.ID, lane, want); err != nil {
				return err
			}
		}
		return nil
	})
}
