package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/harshk49/nexell-backend/internal/auth"
	"github.com/harshk49/nexell-backend/internal/board"
	"github.com/harshk49/nexell-backend/internal/config"
	"github.com/harshk49/nexell-backend/internal/history"
	"github.com/harshk49/nexell-backend/internal/store"
)

type fakeStore struct {
	getUserByIDFn          func(context.Context, string) (store.User, error)
	isAccessTokenRevokedFn func(context.Context, string) (bool, error)
	getFolderFn            func(context.Context, string, string) (store.Folder, error)
	insertFolderFn         func(context.Context, store.Folder) error
	updateFolderFn         func(context.Context, string, string, string, string) (bool, error)
	deleteFolderFn         func(context.Context, string, string) (bool, error)
	getNoteFn              func(context.Context, string, string) (store.Note, error)
	insertNoteFn           func(context.Context, store.Note) error
	updateNoteFn           func(context.Context, store.Note) (bool, error)
	deleteNoteFn           func(context.Context, string, string) (bool, error)
	getTaskFn              func(context.Context, string, string) (store.Task, error)
	insertTaskFn           func(context.Context, store.Task) error
	listTasksFn            func(context.Context, string) ([]store.Task, error)
	updateTaskDetailsFn    func(context.Context, store.Task) (bool, error)
	deleteTaskFn           func(context.Context, string, string) (bool, error)
	startTimerFn           func(context.Context, store.TimeLog) (store.TimeLog, error)
	stopTimerFn            func(context.Context, string, time.Time) (store.TimeLog, error)
	insertTimeLogFn        func(context.Context, store.TimeLog) error
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{ID: userID, DisplayName: "Avery", Role: "member"}, nil
}
func (f *fakeStore) RevokeAccessToken(context.Context, string, time.Time) error { return nil }
func (f *fakeStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if f.isAccessTokenRevokedFn != nil {
		return f.isAccessTokenRevokedFn(ctx, jti)
	}
	return false, nil
}

func (f *fakeStore) EnsureDefaultWorkspace(context.Context, string, string) error { return nil }
func (f *fakeStore) GetDefaultWorkspace(context.Context) (store.Workspace, error) {
	return store.Workspace{ID: "ws-1", Name: "Nexell", Slug: "default"}, nil
}
func (f *fakeStore) WorkspaceCounts(context.Context, string) (int, int, int, error) {
	return 0, 0, 0, nil
}

func (f *fakeStore) ListFolders(context.Context, string) ([]store.Folder, error) { return nil, nil }
func (f *fakeStore) GetFolder(ctx context.Context, ownerID, folderID string) (store.Folder, error) {
	if f.getFolderFn != nil {
		return f.getFolderFn(ctx, ownerID, folderID)
	}
	return store.Folder{ID: folderID, OwnerID: ownerID, Name: "Inbox"}, nil
}
func (f *fakeStore) InsertFolder(ctx context.Context, folder store.Folder) error {
	if f.insertFolderFn != nil {
		return f.insertFolderFn(ctx, folder)
	}
	return nil
}
func (f *fakeStore) UpdateFolder(ctx context.Context, ownerID, folderID, name, color string) (bool, error) {
	if f.updateFolderFn != nil {
		return f.updateFolderFn(ctx, ownerID, folderID, name, color)
	}
	return true, nil
}
func (f *fakeStore) DeleteFolder(ctx context.Context, ownerID, folderID string) (bool, error) {
	if f.deleteFolderFn != nil {
		return f.deleteFolderFn(ctx, ownerID, folderID)
	}
	return true, nil
}

func (f *fakeStore) ListNotes(context.Context, string, string) ([]store.Note, error) {
	return nil, nil
}
func (f *fakeStore) GetNote(ctx context.Context, ownerID, noteID string) (store.Note, error) {
	if f.getNoteFn != nil {
		return f.getNoteFn(ctx, ownerID, noteID)
	}
	return store.Note{ID: noteID, OwnerID: ownerID, Title: "Untitled"}, nil
}
func (f *fakeStore) GetNoteByID(ctx context.Context, noteID string) (store.Note, error) {
	return store.Note{ID: noteID, Title: "Untitled"}, nil
}
func (f *fakeStore) InsertNote(ctx context.Context, note store.Note) error {
	if f.insertNoteFn != nil {
		return f.insertNoteFn(ctx, note)
	}
	return nil
}
func (f *fakeStore) UpdateNote(ctx context.Context, note store.Note) (bool, error) {
	if f.updateNoteFn != nil {
		return f.updateNoteFn(ctx, note)
	}
	return true, nil
}
func (f *fakeStore) DeleteNote(ctx context.Context, ownerID, noteID string) (bool, error) {
	if f.deleteNoteFn != nil {
		return f.deleteNoteFn(ctx, ownerID, noteID)
	}
	return true, nil
}

func (f *fakeStore) InsertAttachment(context.Context, store.Attachment) error { return nil }
func (f *fakeStore) GetAttachment(context.Context, string, string) (store.Attachment, error) {
	return store.Attachment{}, sql.ErrNoRows
}
func (f *fakeStore) ListAttachments(context.Context, string, string) ([]store.Attachment, error) {
	return nil, nil
}
func (f *fakeStore) DeleteAttachment(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeStore) InsertTask(ctx context.Context, task store.Task) error {
	if f.insertTaskFn != nil {
		return f.insertTaskFn(ctx, task)
	}
	return nil
}
func (f *fakeStore) GetTask(ctx context.Context, ownerID, taskID string) (store.Task, error) {
	if f.getTaskFn != nil {
		return f.getTaskFn(ctx, ownerID, taskID)
	}
	return store.Task{ID: taskID, OwnerID: ownerID, Title: "Task", Lane: "todo"}, nil
}
func (f *fakeStore) ListTasks(ctx context.Context, ownerID string) ([]store.Task, error) {
	if f.listTasksFn != nil {
		return f.listTasksFn(ctx, ownerID)
	}
	return nil, nil
}
func (f *fakeStore) UpdateTaskDetails(ctx context.Context, task store.Task) (bool, error) {
	if f.updateTaskDetailsFn != nil {
		return f.updateTaskDetailsFn(ctx, task)
	}
	return true, nil
}
func (f *fakeStore) DeleteTask(ctx context.Context, ownerID, taskID string) (bool, error) {
	if f.deleteTaskFn != nil {
		return f.deleteTaskFn(ctx, ownerID, taskID)
	}
	return true, nil
}

func (f *fakeStore) StartTimer(ctx context.Context, entry store.TimeLog) (store.TimeLog, error) {
	if f.startTimerFn != nil {
		return f.startTimerFn(ctx, entry)
	}
	return entry, nil
}
func (f *fakeStore) StopTimer(ctx context.Context, ownerID string, endedAt time.Time) (store.TimeLog, error) {
	if f.stopTimerFn != nil {
		return f.stopTimerFn(ctx, ownerID, endedAt)
	}
	return store.TimeLog{}, sql.ErrNoRows
}
func (f *fakeStore) GetRunningTimer(context.Context, string) (*store.TimeLog, error) {
	return nil, nil
}
func (f *fakeStore) InsertTimeLog(ctx context.Context, entry store.TimeLog) error {
	if f.insertTimeLogFn != nil {
		return f.insertTimeLogFn(ctx, entry)
	}
	return nil
}
func (f *fakeStore) ListTimeLogs(context.Context, string, time.Time, time.Time, int) ([]store.TimeLog, error) {
	return nil, nil
}
func (f *fakeStore) DeleteTimeLog(context.Context, string, string) (bool, error) { return true, nil }
func (f *fakeStore) TimeSummary(context.Context, string, time.Time, time.Time) ([]store.TimeSummaryRow, error) {
	return nil, nil
}
func (f *fakeStore) Ping(context.Context) error { return nil }

type fakeSessions struct {
	saved map[string]store.User
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{saved: make(map[string]store.User)}
}

func (f *fakeSessions) SaveRefreshSession(_ context.Context, tokenHash string, user store.User, _ time.Time) error {
	f.saved[tokenHash] = user
	return nil
}
func (f *fakeSessions) LookupRefreshSession(_ context.Context, tokenHash string) (store.User, error) {
	user, ok := f.saved[tokenHash]
	if !ok {
		return store.User{}, errors.New("token not found or expired")
	}
	return user, nil
}
func (f *fakeSessions) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	delete(f.saved, tokenHash)
	return nil
}

type fakeBoard struct {
	allocateFn  func(context.Context, string, board.Lane) (int64, error)
	moveFn      func(context.Context, string, board.Lane, int64) (board.Item, error)
	rebalanceFn func(context.Context, string, ...board.Lane) error
}

func (f *fakeBoard) Allocate(ctx context.Context, owner string, lane board.Lane) (int64, error) {
	if f.allocateFn != nil {
		return f.allocateFn(ctx, owner, lane)
	}
	return board.Spacing, nil
}
func (f *fakeBoard) Move(ctx context.Context, itemID string, lane board.Lane, position int64) (board.Item, error) {
	if f.moveFn != nil {
		return f.moveFn(ctx, itemID, lane, position)
	}
	return board.Item{ID: itemID, Lane: lane, Position: position}, nil
}
func (f *fakeBoard) Rebalance(ctx context.Context, owner string, lanes ...board.Lane) error {
	if f.rebalanceFn != nil {
		return f.rebalanceFn(ctx, owner, lanes...)
	}
	return nil
}

type fakeHistory struct {
	ensureCalls   int
	commitCalls   int
	removeCalls   int
	lastSnapshot  history.Snapshot
	getRevisionFn func(string, string) (history.Snapshot, error)
}

func (f *fakeHistory) EnsureNoteRepo(_ string, initial history.Snapshot, _ string) error {
	f.ensureCalls++
	f.lastSnapshot = initial
	return nil
}
func (f *fakeHistory) CommitRevision(_ string, snap history.Snapshot, _, _ string) (store.RevisionInfo, error) {
	f.commitCalls++
	f.lastSnapshot = snap
	return store.RevisionInfo{Hash: "a1b2c3d"}, nil
}
func (f *fakeHistory) History(string, int) ([]store.RevisionInfo, error) {
	return []store.RevisionInfo{{Hash: "a1b2c3d", Message: "Update note"}}, nil
}
func (f *fakeHistory) GetRevision(noteID, hash string) (history.Snapshot, error) {
	if f.getRevisionFn != nil {
		return f.getRevisionFn(noteID, hash)
	}
	return history.Snapshot{}, errors.New("revision not found")
}
func (f *fakeHistory) RemoveNoteRepo(string) error {
	f.removeCalls++
	return nil
}

func newTestService(fs *fakeStore, fb *fakeBoard, fh *fakeHistory) *Service {
	s := &Service{
		cfg: config.Config{
			JWTSecret:  "test-secret",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
		store:    fs,
		sessions: newFakeSessions(),
	}
	if fb != nil {
		s.board = fb
	}
	if fh != nil {
		s.history = fh
	}
	return s
}

func testSession() Session {
	return Session{UserID: "usr-1", UserName: "Avery", Role: "member"}
}

func TestCreateSessionIssuesTokens(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil, nil)

	session, err := svc.CreateSession(context.Background(), "usr-1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.Token == "" || session.RefreshToken == "" {
		t.Fatal("expected both access and refresh tokens")
	}
	if session.UserID != "usr-1" || session.UserName != "Avery" {
		t.Fatalf("unexpected session identity: %+v", session)
	}

	parsed, err := svc.SessionFromToken(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("SessionFromToken() error = %v", err)
	}
	if parsed.UserID != "usr-1" {
		t.Fatalf("expected usr-1, got %s", parsed.UserID)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil, nil)

	first, err := svc.CreateSession(context.Background(), "usr-1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("expected refresh to rotate the token")
	}

	// The first refresh token is single use.
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); err == nil {
		t.Fatal("expected reuse of a rotated refresh token to fail")
	}
}

func TestSessionFromTokenRejectsRevoked(t *testing.T) {
	fs := &fakeStore{
		isAccessTokenRevokedFn: func(context.Context, string) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	session, err := svc.CreateSession(context.Background(), "usr-1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := svc.SessionFromToken(context.Background(), session.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for revoked JTI, got %v", err)
	}
}

func TestCreateFolderRequiresName(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil, nil)

	_, err := svc.CreateFolder(context.Background(), "usr-1", "   ", "")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422 validation error, got %v", err)
	}
}

func TestCreateNoteRecordsInitialRevision(t *testing.T) {
	var inserted store.Note
	fs := &fakeStore{
		insertNoteFn: func(_ context.Context, note store.Note) error {
			inserted = note
			return nil
		},
	}
	fh := &fakeHistory{}
	svc := newTestService(fs, nil, fh)

	payload, err := svc.CreateNote(context.Background(), testSession(), NoteInput{
		Title: "Weekly Plan",
		Body:  "# Goals",
		Tags:  []string{"planning"},
	})
	if err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}
	if inserted.OwnerID != "usr-1" {
		t.Fatalf("expected owner usr-1, got %s", inserted.OwnerID)
	}
	if fh.ensureCalls != 1 {
		t.Fatalf("expected one EnsureNoteRepo call, got %d", fh.ensureCalls)
	}
	if fh.lastSnapshot.Title != "Weekly Plan" {
		t.Fatalf("expected snapshot title Weekly Plan, got %s", fh.lastSnapshot.Title)
	}
	if payload["title"] != "Weekly Plan" {
		t.Fatalf("unexpected payload title: %v", payload["title"])
	}
}

func TestCreateNoteRejectsMissingFolder(t *testing.T) {
	fs := &fakeStore{
		getFolderFn: func(context.Context, string, string) (store.Folder, error) {
			return store.Folder{}, sql.ErrNoRows
		},
	}
	svc := newTestService(fs, nil, nil)

	folderID := "fld-missing"
	_, err := svc.CreateNote(context.Background(), testSession(), NoteInput{
		Title:    "Orphan",
		FolderID: &folderID,
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422 for missing folder, got %v", err)
	}
}

func TestUpdateNoteCommitsRevision(t *testing.T) {
	fh := &fakeHistory{}
	svc := newTestService(&fakeStore{}, nil, fh)

	if _, err := svc.UpdateNote(context.Background(), testSession(), "note-1", NoteInput{
		Title: "Updated",
		Body:  "new body",
	}); err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	if fh.commitCalls != 1 {
		t.Fatalf("expected one CommitRevision call, got %d", fh.commitCalls)
	}
	if fh.lastSnapshot.Body != "new body" {
		t.Fatalf("expected committed body, got %q", fh.lastSnapshot.Body)
	}
}

func TestDeleteNoteRemovesHistory(t *testing.T) {
	fh := &fakeHistory{}
	svc := newTestService(&fakeStore{}, nil, fh)

	if err := svc.DeleteNote(context.Background(), "usr-1", "note-1"); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	if fh.removeCalls != 1 {
		t.Fatalf("expected one RemoveNoteRepo call, got %d", fh.removeCalls)
	}
}

func TestRestoreNoteRevision(t *testing.T) {
	var updated store.Note
	fs := &fakeStore{
		getNoteFn: func(_ context.Context, ownerID, noteID string) (store.Note, error) {
			return store.Note{ID: noteID, OwnerID: ownerID, Title: "Current", Body: "current body"}, nil
		},
		updateNoteFn: func(_ context.Context, note store.Note) (bool, error) {
			updated = note
			return true, nil
		},
	}
	fh := &fakeHistory{
		getRevisionFn: func(string, string) (history.Snapshot, error) {
			return history.Snapshot{Title: "Old Title", Body: "old body"}, nil
		},
	}
	svc := newTestService(fs, nil, fh)

	payload, err := svc.RestoreNoteRevision(context.Background(), testSession(), "note-1", "a1b2c3d")
	if err != nil {
		t.Fatalf("RestoreNoteRevision() error = %v", err)
	}
	if updated.Title != "Old Title" || updated.Body != "old body" {
		t.Fatalf("expected note rewritten to snapshot, got %+v", updated)
	}
	if fh.commitCalls != 1 {
		t.Fatal("expected the restore itself to be committed")
	}
	if payload["title"] != "Old Title" {
		t.Fatalf("unexpected payload title: %v", payload["title"])
	}
}

func TestCreateTaskAllocatesPosition(t *testing.T) {
	var inserted store.Task
	fs := &fakeStore{
		insertTaskFn: func(_ context.Context, task store.Task) error {
			inserted = task
			return nil
		},
	}
	fb := &fakeBoard{
		allocateFn: func(_ context.Context, owner string, lane board.Lane) (int64, error) {
			if owner != "usr-1" || lane != board.LaneTodo {
				t.Fatalf("unexpected allocate args: owner=%s lane=%s", owner, lane)
			}
			return 3 * board.Spacing, nil
		},
	}
	svc := newTestService(fs, fb, nil)

	payload, err := svc.CreateTask(context.Background(), testSession(), TaskInput{Title: "Ship it"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if inserted.Position != 3*board.Spacing {
		t.Fatalf("expected allocated position, got %d", inserted.Position)
	}
	if inserted.Lane != "todo" {
		t.Fatalf("expected default lane todo, got %s", inserted.Lane)
	}
	if payload["position"] != int64(3*board.Spacing) {
		t.Fatalf("unexpected payload position: %v", payload["position"])
	}
}

func TestCreateTaskRejectsUnknownLane(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeBoard{}, nil)

	_, err := svc.CreateTask(context.Background(), testSession(), TaskInput{Title: "X", Lane: "backlog"})
	var invalidArg *board.InvalidArgumentError
	if !errors.As(err, &invalidArg) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
}

func TestMoveTaskChecksOwnershipFirst(t *testing.T) {
	moveCalled := false
	fs := &fakeStore{
		getTaskFn: func(context.Context, string, string) (store.Task, error) {
			return store.Task{}, sql.ErrNoRows
		},
	}
	fb := &fakeBoard{
		moveFn: func(context.Context, string, board.Lane, int64) (board.Item, error) {
			moveCalled = true
			return board.Item{}, nil
		},
	}
	svc := newTestService(fs, fb, nil)

	_, err := svc.MoveTask(context.Background(), "usr-other", "task-1", "done", 500)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for foreign task, got %v", err)
	}
	if moveCalled {
		t.Fatal("engine must not be reached when the owner check fails")
	}
}

func TestMoveTaskReportsEnginePlacement(t *testing.T) {
	fb := &fakeBoard{
		moveFn: func(_ context.Context, itemID string, lane board.Lane, position int64) (board.Item, error) {
			return board.Item{ID: itemID, Lane: lane, Position: position}, nil
		},
	}
	svc := newTestService(&fakeStore{}, fb, nil)

	payload, err := svc.MoveTask(context.Background(), "usr-1", "task-1", "in-progress", 1500)
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if payload["lane"] != "in-progress" {
		t.Fatalf("expected lane in-progress, got %v", payload["lane"])
	}
	if payload["position"] != int64(1500) {
		t.Fatalf("expected position 1500, got %v", payload["position"])
	}
}

func TestMoveTaskSurfacesConflict(t *testing.T) {
	fb := &fakeBoard{
		moveFn: func(context.Context, string, board.Lane, int64) (board.Item, error) {
			return board.Item{}, &board.ConflictError{Attempts: 3, Err: board.ErrSerialization}
		},
	}
	svc := newTestService(&fakeStore{}, fb, nil)

	_, err := svc.MoveTask(context.Background(), "usr-1", "task-1", "done", 500)
	var conflict *board.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestBoardGroupsTasksByLane(t *testing.T) {
	fs := &fakeStore{
		listTasksFn: func(context.Context, string) ([]store.Task, error) {
			return []store.Task{
				{ID: "t1", Lane: "todo", Position: 1000},
				{ID: "t2", Lane: "todo", Position: 2000},
				{ID: "t3", Lane: "done", Position: 1000},
			}, nil
		},
	}
	svc := newTestService(fs, &fakeBoard{}, nil)

	payload, err := svc.Board(context.Background(), "usr-1")
	if err != nil {
		t.Fatalf("Board() error = %v", err)
	}
	lanes := payload["lanes"].(map[string][]map[string]any)
	if len(lanes["todo"]) != 2 || len(lanes["done"]) != 1 {
		t.Fatalf("unexpected lane grouping: %v", lanes)
	}
	if len(lanes["in-progress"]) != 0 || len(lanes["in-review"]) != 0 {
		t.Fatal("expected empty lanes to be present")
	}
	if payload["total"] != 3 {
		t.Fatalf("expected total 3, got %v", payload["total"])
	}
}

func TestRebalanceBoardRejectsUnknownLane(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeBoard{}, nil)

	_, err := svc.RebalanceBoard(context.Background(), "usr-1", []string{"archive"})
	var invalidArg *board.InvalidArgumentError
	if !errors.As(err, &invalidArg) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
}

func TestStartTimerConflict(t *testing.T) {
	fs := &fakeStore{
		startTimerFn: func(context.Context, store.TimeLog) (store.TimeLog, error) {
			return store.TimeLog{}, store.ErrTimerRunning
		},
	}
	svc := newTestService(fs, nil, nil)

	_, err := svc.StartTimer(context.Background(), "usr-1", nil, "")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 409 {
		t.Fatalf("expected 409 TIMER_RUNNING, got %v", err)
	}
	if domainErr.Code != "TIMER_RUNNING" {
		t.Fatalf("expected TIMER_RUNNING code, got %s", domainErr.Code)
	}
}

func TestAddTimeLogValidatesRange(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil, nil)

	started := time.Now()
	ended := started.Add(-time.Minute)
	_, err := svc.AddTimeLog(context.Background(), "usr-1", TimeLogInput{
		StartedAt: started,
		EndedAt:   &ended,
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422 for inverted range, got %v", err)
	}
}

func TestAddTimeLogComputesDuration(t *testing.T) {
	var inserted store.TimeLog
	fs := &fakeStore{
		insertTimeLogFn: func(_ context.Context, entry store.TimeLog) error {
			inserted = entry
			return nil
		},
	}
	svc := newTestService(fs, nil, nil)

	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ended := started.Add(90 * time.Minute)
	if _, err := svc.AddTimeLog(context.Background(), "usr-1", TimeLogInput{
		Note:      "deep work",
		StartedAt: started,
		EndedAt:   &ended,
	}); err != nil {
		t.Fatalf("AddTimeLog() error = %v", err)
	}
	if inserted.DurationSeconds != 5400 {
		t.Fatalf("expected 5400 seconds, got %d", inserted.DurationSeconds)
	}
}
