// Package board maintains the ordering of tasks on the kanban board.
//
// Tasks are ordered within a partition, the set of tasks sharing one
// (owner, lane) pair. Order is ascending position with creation time as
// the tie-breaker. Positions are spaced by Spacing so a client can drop
// a task between two neighbors without renumbering the whole lane; the
// rebalancer restores canonical spacing when the gaps wear out.
package board

import "time"

// Lane is a kanban column. The set is closed; anything else is rejected
// at the boundary.
type Lane string

const (
	LaneTodo       Lane = "todo"
	LaneInProgress Lane = "in-progress"
	LaneInReview   Lane = "in-review"
	LaneDone       Lane = "done"
)

// Lanes lists every lane in board order.
var Lanes = []Lane{LaneTodo, LaneInProgress, LaneInReview, LaneDone}

func (l Lane) Valid() bool {
	switch l {
	case LaneTodo, LaneInProgress, LaneInReview, LaneDone:
		return true
	}
	return false
}

func (l Lane) String() string {
	return string(l)
}

// ParseLane validates a caller-supplied lane key.
func ParseLane(value string) (Lane, error) {
	lane := Lane(value)
	if !lane.Valid() {
		return "", &InvalidArgumentError{Field: "lane", Value: value, Reason: "unknown lane"}
	}
	return lane, nil
}

// Item is the slice of a task the engine cares about.
type Item struct {
	ID        string
	Owner     string
	Lane      Lane
	Position  int64
	CreatedAt time.Time
}
