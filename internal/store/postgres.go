package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- users ----

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, role, is_email_verified, verification_token)
		VALUES ($1, $2, LOWER($3), $4, $5, $6, NULLIF($7, ''))
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Role, user.IsEmailVerified, user.VerificationToken)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	var verificationToken sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role, is_email_verified, COALESCE(verification_token, ''), verification_expires_at, created_at, updated_at
		FROM users
		WHERE email = LOWER($1)
	`, email).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsEmailVerified,
		&verificationToken,
		&user.VerificationExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	user.VerificationToken = verificationToken.String
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, role, is_email_verified, created_at, updated_at
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role, &user.IsEmailVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW()
		WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("update verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_email_verified=TRUE, verification_token=NULL, verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND verification_expires_at > NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, used_at=NULL
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

// ---- refresh sessions (Postgres fallback when Redis is not configured) ----

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash string, user User, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, user.ID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.display_name, u.email, u.role
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// ---- workspaces ----

// EnsureDefaultWorkspace creates the single workspace row on first boot.
// The slug is fixed; reruns are no-ops.
func (s *PostgresStore) EnsureDefaultWorkspace(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, slug)
		VALUES ($1, $2, 'default')
		ON CONFLICT (slug) DO NOTHING
	`, id, name)
	if err != nil {
		return fmt.Errorf("ensure default workspace: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDefaultWorkspace(ctx context.Context) (Workspace, error) {
	var item Workspace
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, created_at
		FROM workspaces
		WHERE slug='default'
		LIMIT 1
	`).Scan(&item.ID, &item.Name, &item.Slug, &item.CreatedAt)
	if err != nil {
		return Workspace{}, fmt.Errorf("get default workspace: %w", err)
	}
	return item, nil
}

// WorkspaceCounts aggregates the content counters shown on the
// workspace overview.
func (s *PostgresStore) WorkspaceCounts(ctx context.Context, ownerID string) (notes, tasks, folders int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE owner_id=$1`, ownerID).Scan(&notes); err != nil {
		err = fmt.Errorf("count notes: %w", err)
		return
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE owner_id=$1`, ownerID).Scan(&tasks); err != nil {
		err = fmt.Errorf("count tasks: %w", err)
		return
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM folders WHERE owner_id=$1`, ownerID).Scan(&folders); err != nil {
		err = fmt.Errorf("count folders: %w", err)
		return
	}
	return
}

// ---- folders ----

func (s *PostgresStore) ListFolders(ctx context.Context, ownerID string) ([]Folder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, COALESCE(color, ''), created_at, updated_at
		FROM folders
		WHERE owner_id=$1
		ORDER BY name ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	items := make([]Folder, 0)
	for rows.Next() {
		var item Folder
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Color, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetFolder(ctx context.Context, ownerID, folderID string) (Folder, error) {
	var item Folder
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, COALESCE(color, ''), created_at, updated_at
		FROM folders
		WHERE id=$1 AND owner_id=$2
	`, folderID, ownerID).Scan(&item.ID, &item.OwnerID, &item.Name, &item.Color, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Folder{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertFolder(ctx context.Context, folder Folder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO folders (id, owner_id, name, color)
		VALUES ($1, $2, $3, NULLIF($4, ''))
	`, folder.ID, folder.OwnerID, folder.Name, folder.Color)
	if err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateFolder(ctx context.Context, ownerID, folderID, name, color string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE folders SET name=$3, color=NULLIF($4, ''), updated_at=NOW()
		WHERE id=$1 AND owner_id=$2
	`, folderID, ownerID, name, color)
	if err != nil {
		return false, fmt.Errorf("update folder: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update folder rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteFolder detaches the folder's notes rather than deleting them.
func (s *PostgresStore) DeleteFolder(ctx context.Context, ownerID, folderID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete folder: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE notes SET folder_id=NULL, updated_at=NOW() WHERE folder_id=$1 AND owner_id=$2
	`, folderID, ownerID); err != nil {
		return false, fmt.Errorf("detach folder notes: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id=$1 AND owner_id=$2`, folderID, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete folder: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete folder rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete folder: %w", err)
	}
	return affected > 0, nil
}

// ---- notes ----

func (s *PostgresStore) ListNotes(ctx context.Context, ownerID, folderID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, folder_id, title, body, tags, pinned, created_at, updated_at
		FROM notes
		WHERE owner_id=$1 AND ($2='' OR folder_id=$2)
		ORDER BY pinned DESC, updated_at DESC
	`, ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	items := make([]Note, 0)
	for rows.Next() {
		item, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetNote(ctx context.Context, ownerID, noteID string) (Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, folder_id, title, body, tags, pinned, created_at, updated_at
		FROM notes
		WHERE id=$1 AND owner_id=$2
	`, noteID, ownerID)
	return scanNote(row)
}

// GetNoteByID looks a note up without an owner filter. Callers doing
// access control must use GetNote instead.
func (s *PostgresStore) GetNoteByID(ctx context.Context, noteID string) (Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, folder_id, title, body, tags, pinned, created_at, updated_at
		FROM notes
		WHERE id=$1
	`, noteID)
	return scanNote(row)
}

func (s *PostgresStore) InsertNote(ctx context.Context, note Note) error {
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notes (id, owner_id, folder_id, title, body, tags, pinned)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
	`, note.ID, note.OwnerID, note.FolderID, note.Title, note.Body, tags, note.Pinned)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateNote(ctx context.Context, note Note) (bool, error) {
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return false, err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET folder_id=$3, title=$4, body=$5, tags=$6::jsonb, pinned=$7, updated_at=NOW()
		WHERE id=$1 AND owner_id=$2
	`, note.ID, note.OwnerID, note.FolderID, note.Title, note.Body, tags, note.Pinned)
	if err != nil {
		return false, fmt.Errorf("update note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update note rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DeleteNote(ctx context.Context, ownerID, noteID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id=$1 AND owner_id=$2`, noteID, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete note rows: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (Note, error) {
	var item Note
	var tagsRaw []byte
	if err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.FolderID,
		&item.Title,
		&item.Body,
		&tagsRaw,
		&item.Pinned,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Note{}, err
		}
		return Note{}, fmt.Errorf("scan note: %w", err)
	}
	_ = json.Unmarshal(tagsRaw, &item.Tags)
	return item, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal note tags: %w", err)
	}
	return string(encoded), nil
}

// ---- attachments ----

func (s *PostgresStore) InsertAttachment(ctx context.Context, attachment Attachment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, note_id, owner_id, filename, object_key, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, attachment.ID, attachment.NoteID, attachment.OwnerID, attachment.Filename, attachment.ObjectKey, attachment.ContentType, attachment.SizeBytes)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAttachment(ctx context.Context, ownerID, attachmentID string) (Attachment, error) {
	var item Attachment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, note_id, owner_id, filename, object_key, content_type, size_bytes, created_at
		FROM attachments
		WHERE id=$1 AND owner_id=$2
	`, attachmentID, ownerID).Scan(&item.ID, &item.NoteID, &item.OwnerID, &item.Filename, &item.ObjectKey, &item.ContentType, &item.SizeBytes, &item.CreatedAt)
	if err != nil {
		return Attachment{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListAttachments(ctx context.Context, ownerID, noteID string) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, note_id, owner_id, filename, object_key, content_type, size_bytes, created_at
		FROM attachments
		WHERE note_id=$1 AND owner_id=$2
		ORDER BY created_at ASC
	`, noteID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	items := make([]Attachment, 0)
	for rows.Next() {
		var item Attachment
		if err := rows.Scan(&item.ID, &item.NoteID, &item.OwnerID, &item.Filename, &item.ObjectKey, &item.ContentType, &item.SizeBytes, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteAttachment(ctx context.Context, ownerID, attachmentID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id=$1 AND owner_id=$2`, attachmentID, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete attachment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete attachment rows: %w", err)
	}
	return affected > 0, nil
}

// ---- time logs ----

// StartTimer creates a running time log. The check for an already
// running timer and the insert share one transaction so two concurrent
// starts cannot both succeed.
func (s *PostgresStore) StartTimer(ctx context.Context, entry TimeLog) (TimeLog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TimeLog{}, fmt.Errorf("begin start timer: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var runningID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM time_logs WHERE owner_id=$1 AND ended_at IS NULL LIMIT 1 FOR UPDATE
	`, entry.OwnerID).Scan(&runningID)
	if err == nil {
		return TimeLog{}, ErrTimerRunning
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return TimeLog{}, fmt.Errorf("check running timer: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO time_logs (id, owner_id, task_id, note, started_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, entry.ID, entry.OwnerID, entry.TaskID, entry.Note, entry.StartedAt).Scan(&entry.CreatedAt); err != nil {
		return TimeLog{}, fmt.Errorf("insert time log: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return TimeLog{}, fmt.Errorf("commit start timer: %w", err)
	}
	return entry, nil
}

// ErrTimerRunning is returned by StartTimer when the owner already has
// a running timer.
var ErrTimerRunning = errors.New("a timer is already running")

func (s *PostgresStore) StopTimer(ctx context.Context, ownerID string, endedAt time.Time) (TimeLog, error) {
	var entry TimeLog
	err := s.db.QueryRowContext(ctx, `
		UPDATE time_logs
		SET ended_at=$2, duration_seconds=EXTRACT(EPOCH FROM ($2 - started_at))::bigint
		WHERE owner_id=$1 AND ended_at IS NULL
		RETURNING id, owner_id, task_id, note, started_at, ended_at, duration_seconds, created_at
	`, ownerID, endedAt).Scan(
		&entry.ID,
		&entry.OwnerID,
		&entry.TaskID,
		&entry.Note,
		&entry.StartedAt,
		&entry.EndedAt,
		&entry.DurationSeconds,
		&entry.CreatedAt,
	)
	if err != nil {
		return TimeLog{}, err
	}
	return entry, nil
}

func (s *PostgresStore) GetRunningTimer(ctx context.Context, ownerID string) (*TimeLog, error) {
	var entry TimeLog
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, task_id, note, started_at, ended_at, duration_seconds, created_at
		FROM time_logs
		WHERE owner_id=$1 AND ended_at IS NULL
	`, ownerID).Scan(
		&entry.ID,
		&entry.OwnerID,
		&entry.TaskID,
		&entry.Note,
		&entry.StartedAt,
		&entry.EndedAt,
		&entry.DurationSeconds,
		&entry.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get running timer: %w", err)
	}
	return &entry, nil
}

func (s *PostgresStore) InsertTimeLog(ctx context.Context, entry TimeLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_logs (id, owner_id, task_id, note, started_at, ended_at, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.OwnerID, entry.TaskID, entry.Note, entry.StartedAt, entry.EndedAt, entry.DurationSeconds)
	if err != nil {
		return fmt.Errorf("insert time log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTimeLogs(ctx context.Context, ownerID string, from, to time.Time, limit int) ([]TimeLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, task_id, note, started_at, ended_at, duration_seconds, created_at
		FROM time_logs
		WHERE owner_id=$1 AND started_at >= $2 AND started_at < $3
		ORDER BY started_at DESC
		LIMIT $4
	`, ownerID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("list time logs: %w", err)
	}
	defer rows.Close()

	items := make([]TimeLog, 0)
	for rows.Next() {
		var item TimeLog
		if err := rows.Scan(
			&item.ID,
			&item.OwnerID,
			&item.TaskID,
			&item.Note,
			&item.StartedAt,
			&item.EndedAt,
			&item.DurationSeconds,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan time log: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time logs: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteTimeLog(ctx context.Context, ownerID, logID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM time_logs WHERE id=$1 AND owner_id=$2`, logID, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete time log: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete time log rows: %w", err)
	}
	return affected > 0, nil
}

// TimeSummary aggregates finished time logs per day and task.
func (s *PostgresStore) TimeSummary(ctx context.Context, ownerID string, from, to time.Time) ([]TimeSummaryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date_trunc('day', tl.started_at) AS day,
			tl.task_id,
			COALESCE(t.title, ''),
			COALESCE(SUM(tl.duration_seconds), 0)::bigint,
			COUNT(*)::int
		FROM time_logs tl
		LEFT JOIN tasks t ON t.id = tl.task_id
		WHERE tl.owner_id=$1 AND tl.started_at >= $2 AND tl.started_at < $3 AND tl.ended_at IS NOT NULL
		GROUP BY day, tl.task_id, t.title
		ORDER BY day DESC, t.title ASC
	`, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("time summary: %w", err)
	}
	defer rows.Close()

	items := make([]TimeSummaryRow, 0)
	for rows.Next() {
		var item TimeSummaryRow
		if err := rows.Scan(&item.Day, &item.TaskID, &item.TaskTitle, &item.TotalSeconds, &item.Entries); err != nil {
			return nil, fmt.Errorf("scan time summary: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time summary: %w", err)
	}
	return items, nil
}
