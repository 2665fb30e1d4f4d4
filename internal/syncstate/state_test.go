package syncstate

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sync.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndUpdateJob(t *testing.T) {
	db := openTestDB(t)

	job, err := db.CreateJob("acct-1")
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.Status != StatusRunning {
		t.Errorf("CreateJob: status = %q, want %q", job.Status, StatusRunning)
	}

	job.Status = StatusDone
	job.NewMessages = 7
	if err := db.UpdateJob(job); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	last, err := db.LastJob("acct-1")
	if err != nil {
		t.Fatalf("LastJob: %v", err)
	}
	if last == nil {
		t.Fatal("LastJob: expected a job, got nil")
	}
	if last.Status != StatusDone || last.NewMessages != 7 {
		t.Errorf("LastJob: got %+v, want status=done new_messages=7", last)
	}
}

func TestLastJobNoneYet(t *testing.T) {
	db := openTestDB(t)

	job, err := db.LastJob("no-such-account")
	if err != nil {
		t.Fatalf("LastJob: %v", err)
	}
	if job != nil {
		t.Errorf("LastJob: got %+v, want nil", job)
	}
}

func TestUIDTracking(t *testing.T) {
	db := openTestDB(t)

	if db.IsUIDSynced("acct-1", "INBOX", 42) {
		t.Error("IsUIDSynced: expected false before MarkUIDSynced")
	}

	if err := db.MarkUIDSynced("acct-1", "INBOX", 42); err != nil {
		t.Fatalf("MarkUIDSynced: %v", err)
	}
	// Marking twice must not error (INSERT OR IGNORE).
	if err := db.MarkUIDSynced("acct-1", "INBOX", 42); err != nil {
		t.Fatalf("MarkUIDSynced (repeat): %v", err)
	}

	if !db.IsUIDSynced("acct-1", "INBOX", 42) {
		t.Error("IsUIDSynced: expected true after MarkUIDSynced")
	}
	if db.IsUIDSynced("acct-1", "Archive", 42) {
		t.Error("IsUIDSynced: UID tracking must be scoped per folder")
	}

	if err := db.MarkUIDSynced("acct-1", "INBOX", 43); err != nil {
		t.Fatalf("MarkUIDSynced: %v", err)
	}

	synced, err := db.SyncedUIDs("acct-1", "INBOX")
	if err != nil {
		t.Fatalf("SyncedUIDs: %v", err)
	}
	if !synced[42] || !synced[43] || len(synced) != 2 {
		t.Errorf("SyncedUIDs: got %v, want {42,43}", synced)
	}

	highest, err := db.HighestUID("acct-1", "INBOX")
	if err != nil {
		t.Fatalf("HighestUID: %v", err)
	}
	if highest != 43 {
		t.Errorf("HighestUID: got %d, want 43", highest)
	}
}

func TestHighestUIDEmpty(t *testing.T) {
	db := openTestDB(t)

	highest, err := db.HighestUID("acct-1", "INBOX")
	if err != nil {
		t.Fatalf("HighestUID: %v", err)
	}
	if highest != 0 {
		t.Errorf("HighestUID: got %d, want 0", highest)
	}
}
