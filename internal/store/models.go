package store

import "time"

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	PasswordHash          string
	Role                  string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Workspace struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}

type Folder struct {
	ID        string
	OwnerID   string
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Note struct {
	ID        string
	OwnerID   string
	FolderID  *string
	Title     string
	Body      string
	Tags      []string
	Pinned    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Task is a kanban card. Lane and Position are owned by the board
// engine after creation; everything else is plain CRUD.
type Task struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Lane        string
	Position    int64
	DueAt       *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TimeLog is one tracked interval. EndedAt is nil while the timer is
// running; DurationSeconds is derived at stop time or supplied for
// manual entries.
type TimeLog struct {
	ID              string
	OwnerID         string
	TaskID          *string
	Note            string
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationSeconds int64
	CreatedAt       time.Time
}

// TimeSummaryRow is one bucket of the time-log aggregation.
type TimeSummaryRow struct {
	Day          time.Time
	TaskID       *string
	TaskTitle    string
	TotalSeconds int64
	Entries      int
}

type Attachment struct {
	ID          string
	NoteID      string
	OwnerID     string
	Filename    string
	ObjectKey   string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}

// RevisionInfo describes one commit in a note's history.
type RevisionInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}
