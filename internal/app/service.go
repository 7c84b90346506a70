package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/harshk49/nexell-backend/internal/attach"
	"github.com/harshk49/nexell-backend/internal/auth"
	"github.com/harshk49/nexell-backend/internal/authpw"
	"github.com/harshk49/nexell-backend/internal/board"
	"github.com/harshk49/nexell-backend/internal/config"
	"github.com/harshk49/nexell-backend/internal/email"
	"github.com/harshk49/nexell-backend/internal/export"
	"github.com/harshk49/nexell-backend/internal/history"
	"github.com/harshk49/nexell-backend/internal/search"
	"github.com/harshk49/nexell-backend/internal/store"
	"github.com/harshk49/nexell-backend/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type NoteInput struct {
	FolderID *string  `json:"folderId"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags"`
	Pinned   bool     `json:"pinned"`
}

type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Lane        string     `json:"lane"`
	DueAt       *time.Time `json:"dueAt"`
}

type TimeLogInput struct {
	TaskID    *string    `json:"taskId"`
	Note      string     `json:"note"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt"`
}

type dataStore interface {
	GetUserByID(context.Context, string) (store.User, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)

	ListFolders(context.Context, string) ([]store.Folder, error)
	GetFolder(context.Context, string, string) (store.Folder, error)
	InsertFolder(context.Context, store.Folder) error
	UpdateFolder(context.Context, string, string, string, string) (bool, error)
	DeleteFolder(context.Context, string, string) (bool, error)

	ListNotes(context.Context, string, string) ([]store.Note, error)
	GetNote(context.Context, string, string) (store.Note, error)
	GetNoteByID(context.Context, string) (store.Note, error)
	InsertNote(context.Context, store.Note) error
	UpdateNote(context.Context, store.Note) (bool, error)
	DeleteNote(context.Context, string, string) (bool, error)

	InsertAttachment(context.Context, store.Attachment) error
	GetAttachment(context.Context, string, string) (store.Attachment, error)
	ListAttachments(context.Context, string, string) ([]store.Attachment, error)
	DeleteAttachment(context.Context, string, string) (bool, error)

	InsertTask(context.Context, store.Task) error
	GetTask(context.Context, string, string) (store.Task, error)
	ListTasks(context.Context, string) ([]store.Task, error)
	UpdateTaskDetails(context.Context, store.Task) (bool, error)
	DeleteTask(context.Context, string, string) (bool, error)

	EnsureDefaultWorkspace(context.Context, string, string) error
	GetDefaultWorkspace(context.Context) (store.Workspace, error)
	WorkspaceCounts(context.Context, string) (int, int, int, error)

	StartTimer(context.Context, store.TimeLog) (store.TimeLog, error)
	StopTimer(context.Context, string, time.Time) (store.TimeLog, error)
	GetRunningTimer(context.Context, string) (*store.TimeLog, error)
	InsertTimeLog(context.Context, store.TimeLog) error
	ListTimeLogs(context.Context, string, time.Time, time.Time, int) ([]store.TimeLog, error)
	DeleteTimeLog(context.Context, string, string) (bool, error)
	TimeSummary(context.Context, string, time.Time, time.Time) ([]store.TimeSummaryRow, error)

	Ping(ctx context.Context) error
}

// sessionStore holds refresh tokens. Redis when configured, the
// Postgres store otherwise; both satisfy this.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type boardEngine interface {
	Allocate(ctx context.Context, owner string, lane board.Lane) (int64, error)
	Move(ctx context.Context, itemID string, lane board.Lane, position int64) (board.Item, error)
	Rebalance(ctx context.Context, owner string, lanes ...board.Lane) error
}

type revisionStore interface {
	EnsureNoteRepo(noteID string, initial history.Snapshot, author string) error
	CommitRevision(noteID string, snap history.Snapshot, author, message string) (store.RevisionInfo, error)
	History(noteID string, limit int) ([]store.RevisionInfo, error)
	GetRevision(noteID, hash string) (history.Snapshot, error)
	RemoveNoteRepo(noteID string) error
}

// Deps bundles the optional subsystems wired in by main. Nil fields
// disable the corresponding feature.
type Deps struct {
	Sessions sessionStore
	Board    *board.Engine
	History  *history.Service
	AuthPW   *authpw.Service
	Search   *search.Service
	Attach   *attach.Service
	Email    *email.Service
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	board    boardEngine
	history  revisionStore
	authpw   *authpw.Service
	search   *search.Service
	export   *export.Service
	attach   *attach.Service
	email    *email.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, deps Deps) *Service {
	sessions := deps.Sessions
	if sessions == nil {
		sessions = dataStore
	}
	s := &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		board:    deps.Board,
		authpw:   deps.AuthPW,
		search:   deps.Search,
		attach:   deps.Attach,
		email:    deps.Email,
	}
	if deps.History != nil {
		s.history = deps.History
	}
	s.export = export.NewService(exportSource{s})
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap seeds the default workspace. Safe to rerun.
func (s *Service) Bootstrap(ctx context.Context) error {
	return s.store.EnsureDefaultWorkspace(ctx, util.NewID("ws"), "Nexell")
}

// Workspace returns the workspace overview with the caller's content counts.
func (s *Service) Workspace(ctx context.Context, ownerID string) (map[string]any, error) {
	ws, err := s.store.GetDefaultWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	notes, tasks, folders, err := s.store.WorkspaceCounts(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"workspace": map[string]any{
			"id":   ws.ID,
			"name": ws.Name,
			"slug": ws.Slug,
		},
		"counts": map[string]any{
			"notes":   notes,
			"tasks":   tasks,
			"folders": folders,
		},
	}, nil
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// SendVerificationEmail delivers the sign-up verification link in the
// background. Failures are logged, not surfaced; the dev bypass token
// covers local setups.
func (s *Service) SendVerificationEmail(to, userName, token string) {
	if !s.SMTPConfigured() {
		return
	}
	go func() {
		url := fmt.Sprintf("%s/verify-email?token=%s", strings.TrimRight(s.cfg.CORSOrigin, "/"), token)
		if err := s.email.SendVerificationEmail(to, userName, url); err != nil {
			log.Printf("app: send verification email to %s: %v", to, err)
		}
	}()
}

// SendPasswordResetEmail delivers the reset link in the background.
func (s *Service) SendPasswordResetEmail(to, userName, token string) {
	if !s.SMTPConfigured() {
		return
	}
	go func() {
		url := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.CORSOrigin, "/"), token)
		if err := s.email.SendPasswordResetEmail(to, userName, url); err != nil {
			log.Printf("app: send password reset email to %s: %v", to, err)
		}
	}()
}

// ---- sessions ----

func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// ---- folders ----

func (s *Service) ListFolders(ctx context.Context, ownerID string) (map[string]any, error) {
	folders, err := s.store.ListFolders(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(folders))
	for _, folder := range folders {
		items = append(items, folderJSON(folder))
	}
	return map[string]any{"folders": items}, nil
}

func (s *Service) CreateFolder(ctx context.Context, ownerID, name, color string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	folder := store.Folder{
		ID:      util.NewID("fld"),
		OwnerID: ownerID,
		Name:    name,
		Color:   strings.TrimSpace(color),
	}
	if err := s.store.InsertFolder(ctx, folder); err != nil {
		return nil, err
	}
	return folderJSON(folder), nil
}

func (s *Service) UpdateFolder(ctx context.Context, ownerID, folderID, name, color string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	updated, err := s.store.UpdateFolder(ctx, ownerID, folderID, name, strings.TrimSpace(color))
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Folder not found", nil)
	}
	folder, err := s.store.GetFolder(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	return folderJSON(folder), nil
}

func (s *Service) DeleteFolder(ctx context.Context, ownerID, folderID string) error {
	deleted, err := s.store.DeleteFolder(ctx, ownerID, folderID)
	if err != nil {
		return err
	}
	if !deleted {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Folder not found", nil)
	}
	return nil
}

// ---- notes ----

func (s *Service) ListNotes(ctx context.Context, ownerID, folderID string) (map[string]any, error) {
	notes, err := s.store.ListNotes(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(notes))
	for _, note := range notes {
		items = append(items, noteJSON(note))
	}
	return map[string]any{"notes": items}, nil
}

func (s *Service) GetNote(ctx context.Context, ownerID, noteID string) (map[string]any, error) {
	note, err := s.store.GetNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}
	payload := noteJSON(note)
	attachments, err := s.store.ListAttachments(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}
	attachmentItems := make([]map[string]any, 0, len(attachments))
	for _, item := range attachments {
		attachmentItems = append(attachmentItems, attachmentJSON(item))
	}
	payload["attachments"] = attachmentItems
	return payload, nil
}

func (s *Service) CreateNote(ctx context.Context, session Session, input NoteInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if input.FolderID != nil {
		if _, err := s.store.GetFolder(ctx, session.UserID, *input.FolderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "folder does not exist", nil)
			}
			return nil, err
		}
	}

	note := store.Note{
		ID:       util.NewID("note"),
		OwnerID:  session.UserID,
		FolderID: input.FolderID,
		Title:    title,
		Body:     input.Body,
		Tags:     input.Tags,
		Pinned:   input.Pinned,
	}
	if err := s.store.InsertNote(ctx, note); err != nil {
		return nil, err
	}

	if s.history != nil {
		if err := s.history.EnsureNoteRepo(note.ID, snapshotOf(note), session.UserName); err != nil {
			log.Printf("app: init revision history for note %s: %v", note.ID, err)
		}
	}
	s.indexNote(note)

	return noteJSON(note), nil
}

func (s *Service) UpdateNote(ctx context.Context, session Session, noteID string, input NoteInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	note := store.Note{
		ID:       noteID,
		OwnerID:  session.UserID,
		FolderID: input.FolderID,
		Title:    title,
		Body:     input.Body,
		Tags:     input.Tags,
		Pinned:   input.Pinned,
	}
	updated, err := s.store.UpdateNote(ctx, note)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Note not found", nil)
	}

	if s.history != nil {
		if _, err := s.history.CommitRevision(noteID, snapshotOf(note), session.UserName, "Update note"); err != nil {
			log.Printf("app: record revision for note %s: %v", noteID, err)
		}
	}
	s.indexNote(note)

	stored, err := s.store.GetNote(ctx, session.UserID, noteID)
	if err != nil {
		return nil, err
	}
	return noteJSON(stored), nil
}

func (s *Service) DeleteNote(ctx context.Context, ownerID, noteID string) error {
	deleted, err := s.store.DeleteNote(ctx, ownerID, noteID)
	if err != nil {
		return err
	}
	if !deleted {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Note not found", nil)
	}

	if s.history != nil {
		if err := s.history.RemoveNoteRepo(noteID); err != nil {
			log.Printf("app: remove revision history for note %s: %v", noteID, err)
		}
	}
	if s.search != nil {
		s.search.DeleteNote(noteID)
	}
	if s.attach != nil {
		go s.attach.DeleteNoteObjects(context.Background(), noteID)
	}
	return nil
}

func (s *Service) NoteHistory(ctx context.Context, ownerID, noteID string, limit int) (map[string]any, error) {
	if s.history == nil {
		return nil, domainError(http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "Revision history not configured", nil)
	}
	if _, err := s.store.GetNote(ctx, ownerID, noteID); err != nil {
		return nil, err
	}
	revisions, err := s.history.History(noteID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(revisions))
	for _, rev := range revisions {
		items = append(items, revisionJSON(rev))
	}
	return map[string]any{"noteId": noteID, "revisions": items}, nil
}

func (s *Service) NoteRevision(ctx context.Context, ownerID, noteID, hash string) (map[string]any, error) {
	if s.history == nil {
		return nil, domainError(http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "Revision history not configured", nil)
	}
	if _, err := s.store.GetNote(ctx, ownerID, noteID); err != nil {
		return nil, err
	}
	snap, err := s.history.GetRevision(noteID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}
	return map[string]any{
		"noteId": noteID,
		"hash":   hash,
		"title":  snap.Title,
		"body":   snap.Body,
		"tags":   snap.Tags,
		"pinned": snap.Pinned,
	}, nil
}

// RestoreNoteRevision rewrites the note to an old snapshot and records
// the restore itself as a new revision, so nothing is lost.
func (s *Service) RestoreNoteRevision(ctx context.Context, session Session, noteID, hash string) (map[string]any, error) {
	if s.history == nil {
		return nil, domainError(http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "Revision history not configured", nil)
	}
	current, err := s.store.GetNote(ctx, session.UserID, noteID)
	if err != nil {
		return nil, err
	}
	snap, err := s.history.GetRevision(noteID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}

	restored := current
	restored.Title = snap.Title
	restored.Body = snap.Body
	restored.Tags = snap.Tags
	restored.Pinned = snap.Pinned
	if _, err := s.store.UpdateNote(ctx, restored); err != nil {
		return nil, err
	}
	if _, err := s.history.CommitRevision(noteID, snap, session.UserName, "Restore revision "+hash); err != nil {
		log.Printf("app: record restore revision for note %s: %v", noteID, err)
	}
	s.indexNote(restored)

	return noteJSON(restored), nil
}

func (s *Service) indexNote(note store.Note) {
	if s.search == nil {
		return
	}
	folderID := ""
	if note.FolderID != nil {
		folderID = *note.FolderID
	}
	s.search.IndexNote(search.NoteRecord{
		ID:       note.ID,
		Title:    note.Title,
		Body:     note.Body,
		OwnerID:  note.OwnerID,
		FolderID: folderID,
		Pinned:   note.Pinned,
	})
}

// ---- search ----

func (s *Service) Search(ctx context.Context, ownerID, text, filterType, folderID string, limit, offset int) (map[string]any, error) {
	if s.search == nil {
		return nil, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search not configured", nil)
	}
	if filterType != "" && filterType != string(search.ResultNote) && filterType != string(search.ResultTask) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be note or task", nil)
	}
	resp := s.search.Search(search.Query{
		Text:           text,
		OwnerID:        ownerID,
		FilterType:     search.ResultType(filterType),
		FilterFolderID: folderID,
		Limit:          limit,
		Offset:         offset,
	})
	return map[string]any{
		"results": resp.Results,
		"total":   resp.Total,
		"query":   resp.Query,
	}, nil
}

// ---- export ----

func (s *Service) ExportNote(ctx context.Context, ownerID, noteID, revision, format string) (*export.Result, error) {
	switch export.Format(format) {
	case export.FormatPDF, export.FormatHTML, export.FormatMarkdown:
	default:
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be pdf, html, or markdown", nil)
	}
	if _, err := s.store.GetNote(ctx, ownerID, noteID); err != nil {
		return nil, err
	}
	result, err := s.export.Export(ctx, export.Request{
		NoteID:   noteID,
		Revision: revision,
		Format:   export.Format(format),
	})
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF rendering is not available on this host", nil)
		}
		if errors.Is(err, export.ErrContentUnavailable) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
		}
		return nil, err
	}
	return result, nil
}

// exportSource adapts the service to the export package. Revision ""
// means the current note; anything else is resolved through history.
type exportSource struct {
	s *Service
}

func (es exportSource) GetNoteForExport(ctx context.Context, noteID, revision string) (export.NoteInfo, error) {
	// Ownership was checked by the caller; notes are looked up by ID
	// scoped to their owner there, so this runs owner-less on purpose.
	note, folderName, err := es.s.noteWithFolderName(ctx, noteID)
	if err != nil {
		return export.NoteInfo{}, err
	}

	info := export.NoteInfo{
		ID:         note.ID,
		Title:      note.Title,
		Body:       note.Body,
		Tags:       note.Tags,
		Author:     "",
		FolderName: folderName,
		UpdatedAt:  note.UpdatedAt,
	}
	if user, err := es.s.store.GetUserByID(ctx, note.OwnerID); err == nil {
		info.Author = user.DisplayName
	}

	if revision != "" && es.s.history != nil {
		snap, err := es.s.history.GetRevision(noteID, revision)
		if err != nil {
			return export.NoteInfo{}, err
		}
		info.Title = snap.Title
		info.Body = snap.Body
		info.Tags = snap.Tags
	}
	return info, nil
}

func (s *Service) noteWithFolderName(ctx context.Context, noteID string) (store.Note, string, error) {
	note, err := s.store.GetNoteByID(ctx, noteID)
	if err != nil {
		return store.Note{}, "", err
	}
	folderName := ""
	if note.FolderID != nil {
		if folder, err := s.store.GetFolder(ctx, note.OwnerID, *note.FolderID); err == nil {
			folderName = folder.Name
		}
	}
	return note, folderName, nil
}

// ---- attachments ----

func (s *Service) UploadAttachment(ctx context.Context, ownerID, noteID, filename, contentType string, size int64, r io.Reader) (map[string]any, error) {
	if s.attach == nil {
		return nil, domainError(http.StatusServiceUnavailable, "ATTACHMENTS_UNAVAILABLE", "Attachment storage not configured", nil)
	}
	if strings.TrimSpace(filename) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "filename is required", nil)
	}
	if _, err := s.store.GetNote(ctx, ownerID, noteID); err != nil {
		return nil, err
	}

	attachmentID := util.NewID("att")
	key, err := s.attach.Upload(ctx, noteID, attachmentID, filename, contentType, size, r)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "UPLOAD_FAILED", err.Error(), nil)
	}

	attachment := store.Attachment{
		ID:          attachmentID,
		NoteID:      noteID,
		OwnerID:     ownerID,
		Filename:    filename,
		ObjectKey:   key,
		ContentType: contentType,
		SizeBytes:   size,
	}
	if err := s.store.InsertAttachment(ctx, attachment); err != nil {
		// Orphaned object; best effort cleanup.
		_ = s.attach.Delete(ctx, key)
		return nil, err
	}
	return attachmentJSON(attachment), nil
}

func (s *Service) AttachmentDownloadURL(ctx context.Context, ownerID, attachmentID string) (map[string]any, error) {
	if s.attach == nil {
		return nil, domainError(http.StatusServiceUnavailable, "ATTACHMENTS_UNAVAILABLE", "Attachment storage not configured", nil)
	}
	attachment, err := s.store.GetAttachment(ctx, ownerID, attachmentID)
	if err != nil {
		return nil, err
	}
	url, err := s.attach.PresignedURL(ctx, attachment.ObjectKey, attachment.Filename, 15*time.Minute)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":        attachment.ID,
		"filename":  attachment.Filename,
		"url":       url,
		"expiresIn": int((15 * time.Minute).Seconds()),
	}, nil
}

func (s *Service) DeleteAttachment(ctx context.Context, ownerID, attachmentID string) error {
	attachment, err := s.store.GetAttachment(ctx, ownerID, attachmentID)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteAttachment(ctx, ownerID, attachmentID)
	if err != nil {
		return err
	}
	if !deleted {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Attachment not found", nil)
	}
	if s.attach != nil && attachment.ObjectKey != "" {
		if err := s.attach.Delete(ctx, attachment.ObjectKey); err != nil {
			log.Printf("app: delete attachment object %s: %v", attachment.ObjectKey, err)
		}
	}
	return nil
}

// ---- board ----

// Board returns every task grouped by lane in board order.
func (s *Service) Board(ctx context.Context, ownerID string) (map[string]any, error) {
	tasks, err := s.store.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	lanes := make(map[string][]map[string]any, len(board.Lanes))
	for _, lane := range board.Lanes {
		lanes[lane.String()] = []map[string]any{}
	}
	for _, task := range tasks {
		lanes[task.Lane] = append(lanes[task.Lane], taskJSON(task))
	}
	return map[string]any{"lanes": lanes, "total": len(tasks)}, nil
}

func (s *Service) CreateTask(ctx context.Context, session Session, input TaskInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	laneValue := input.Lane
	if laneValue == "" {
		laneValue = board.LaneTodo.String()
	}
	lane, err := board.ParseLane(laneValue)
	if err != nil {
		return nil, err
	}

	position, err := s.board.Allocate(ctx, session.UserID, lane)
	if err != nil {
		return nil, err
	}

	task := store.Task{
		ID:          util.NewID("task"),
		OwnerID:     session.UserID,
		Title:       title,
		Description: input.Description,
		Lane:        lane.String(),
		Position:    position,
		DueAt:       input.DueAt,
	}
	if err := s.store.InsertTask(ctx, task); err != nil {
		return nil, err
	}
	s.indexTask(task)

	return taskJSON(task), nil
}

func (s *Service) GetTask(ctx context.Context, ownerID, taskID string) (map[string]any, error) {
	task, err := s.store.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	return taskJSON(task), nil
}

func (s *Service) UpdateTask(ctx context.Context, ownerID, taskID string, input TaskInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	task, err := s.store.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	task.Title = title
	task.Description = input.Description
	task.DueAt = input.DueAt

	updated, err := s.store.UpdateTaskDetails(ctx, task)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Task not found", nil)
	}
	s.indexTask(task)

	return taskJSON(task), nil
}

// MoveTask repositions a task on the board. Lane changes and reorders
// within a lane both go through the board engine so neighbor positions
// stay consistent under concurrent moves.
func (s *Service) MoveTask(ctx context.Context, ownerID, taskID, laneValue string, position int64) (map[string]any, error) {
	lane, err := board.ParseLane(laneValue)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetTask(ctx, ownerID, taskID); err != nil {
		return nil, err
	}

	item, err := s.board.Move(ctx, taskID, lane, position)
	if err != nil {
		return nil, err
	}

	task, err := s.store.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	s.indexTask(task)

	payload := taskJSON(task)
	payload["position"] = item.Position
	payload["lane"] = item.Lane.String()
	return payload, nil
}

func (s *Service) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	deleted, err := s.store.DeleteTask(ctx, ownerID, taskID)
	if err != nil {
		return err
	}
	if !deleted {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Task not found", nil)
	}
	if s.search != nil {
		s.search.DeleteTask(taskID)
	}
	return nil
}

// RebalanceBoard rewrites lane positions back to canonical spacing.
// With no lanes given every lane that has tasks is rebalanced.
func (s *Service) RebalanceBoard(ctx context.Context, ownerID string, laneValues []string) (map[string]any, error) {
	lanes := make([]board.Lane, 0, len(laneValues))
	for _, value := range laneValues {
		lane, err := board.ParseLane(value)
		if err != nil {
			return nil, err
		}
		lanes = append(lanes, lane)
	}
	if err := s.board.Rebalance(ctx, ownerID, lanes...); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func (s *Service) indexTask(task store.Task) {
	if s.search == nil {
		return
	}
	s.search.IndexTask(search.TaskRecord{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		OwnerID:     task.OwnerID,
		Lane:        task.Lane,
	})
}

// ---- time tracking ----

func (s *Service) StartTimer(ctx context.Context, ownerID string, taskID *string, note string) (map[string]any, error) {
	if taskID != nil {
		if _, err := s.store.GetTask(ctx, ownerID, *taskID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "task does not exist", nil)
			}
			return nil, err
		}
	}

	entry, err := s.store.StartTimer(ctx, store.TimeLog{
		ID:        util.NewID("tlog"),
		OwnerID:   ownerID,
		TaskID:    taskID,
		Note:      note,
		StartedAt: time.Now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrTimerRunning) {
			return nil, domainError(http.StatusConflict, "TIMER_RUNNING", "A timer is already running", nil)
		}
		return nil, err
	}
	return timeLogJSON(entry), nil
}

func (s *Service) StopTimer(ctx context.Context, ownerID string) (map[string]any, error) {
	entry, err := s.store.StopTimer(ctx, ownerID, time.Now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NO_RUNNING_TIMER", "No timer is running", nil)
		}
		return nil, err
	}
	return timeLogJSON(entry), nil
}

func (s *Service) RunningTimer(ctx context.Context, ownerID string) (map[string]any, error) {
	entry, err := s.store.GetRunningTimer(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return map[string]any{"running": false, "timer": nil}, nil
	}
	return map[string]any{"running": true, "timer": timeLogJSON(*entry)}, nil
}

// AddTimeLog records a completed interval entered by hand.
func (s *Service) AddTimeLog(ctx context.Context, ownerID string, input TimeLogInput) (map[string]any, error) {
	if input.StartedAt.IsZero() || input.EndedAt == nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "startedAt and endedAt are required", nil)
	}
	if !input.EndedAt.After(input.StartedAt) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "endedAt must be after startedAt", nil)
	}
	if input.TaskID != nil {
		if _, err := s.store.GetTask(ctx, ownerID, *input.TaskID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "task does not exist", nil)
			}
			return nil, err
		}
	}

	entry := store.TimeLog{
		ID:              util.NewID("tlog"),
		OwnerID:         ownerID,
		TaskID:          input.TaskID,
		Note:            input.Note,
		StartedAt:       input.StartedAt,
		EndedAt:         input.EndedAt,
		DurationSeconds: int64(input.EndedAt.Sub(input.StartedAt).Seconds()),
	}
	if err := s.store.InsertTimeLog(ctx, entry); err != nil {
		return nil, err
	}
	return timeLogJSON(entry), nil
}

func (s *Service) ListTimeLogs(ctx context.Context, ownerID string, from, to time.Time, limit int) (map[string]any, error) {
	entries, err := s.store.ListTimeLogs(ctx, ownerID, from, to, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, timeLogJSON(entry))
	}
	return map[string]any{"logs": items}, nil
}

func (s *Service) DeleteTimeLog(ctx context.Context, ownerID, logID string) error {
	deleted, err := s.store.DeleteTimeLog(ctx, ownerID, logID)
	if err != nil {
		return err
	}
	if !deleted {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Time log not found", nil)
	}
	return nil
}

func (s *Service) TimeSummary(ctx context.Context, ownerID string, from, to time.Time) (map[string]any, error) {
	rows, err := s.store.TimeSummary(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		item := map[string]any{
			"day":          row.Day.Format("2006-01-02"),
			"taskId":       row.TaskID,
			"taskTitle":    row.TaskTitle,
			"totalSeconds": row.TotalSeconds,
			"entries":      row.Entries,
		}
		items = append(items, item)
	}
	return map[string]any{"summary": items}, nil
}

// ---- payload shaping ----

func folderJSON(folder store.Folder) map[string]any {
	return map[string]any{
		"id":        folder.ID,
		"name":      folder.Name,
		"color":     folder.Color,
		"createdAt": folder.CreatedAt,
		"updatedAt": folder.UpdatedAt,
	}
}

func noteJSON(note store.Note) map[string]any {
	tags := note.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"id":        note.ID,
		"folderId":  note.FolderID,
		"title":     note.Title,
		"body":      note.Body,
		"tags":      tags,
		"pinned":    note.Pinned,
		"createdAt": note.CreatedAt,
		"updatedAt": note.UpdatedAt,
	}
}

func taskJSON(task store.Task) map[string]any {
	return map[string]any{
		"id":          task.ID,
		"title":       task.Title,
		"description": task.Description,
		"lane":        task.Lane,
		"position":    task.Position,
		"dueAt":       task.DueAt,
		"createdAt":   task.CreatedAt,
		"updatedAt":   task.UpdatedAt,
	}
}

func timeLogJSON(entry store.TimeLog) map[string]any {
	return map[string]any{
		"id":              entry.ID,
		"taskId":          entry.TaskID,
		"note":            entry.Note,
		"startedAt":       entry.StartedAt,
		"endedAt":         entry.EndedAt,
		"durationSeconds": entry.DurationSeconds,
	}
}

func attachmentJSON(attachment store.Attachment) map[string]any {
	return map[string]any{
		"id":          attachment.ID,
		"noteId":      attachment.NoteID,
		"filename":    attachment.Filename,
		"contentType": attachment.ContentType,
		"sizeBytes":   attachment.SizeBytes,
		"createdAt":   attachment.CreatedAt,
	}
}

func revisionJSON(rev store.RevisionInfo) map[string]any {
	return map[string]any{
		"hash":      rev.Hash,
		"message":   strings.TrimSpace(rev.Message),
		"author":    rev.Author,
		"createdAt": rev.CreatedAt,
	}
}

func snapshotOf(note store.Note) history.Snapshot {
	return history.Snapshot{
		Title:  note.Title,
		Body:   note.Body,
		Tags:   note.Tags,
		Pinned: note.Pinned,
	}
}
