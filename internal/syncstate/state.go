// Package syncstate tracks per-account sync progress (job history and
// already-archived UIDs) in a local SQLite database, so a restarted sync
// resumes instead of re-fetching everything.
package syncstate

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"
)

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS sync_jobs (
	id           TEXT PRIMARY KEY,
	account_id   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	started_at   DATETIME,
	finished_at  DATETIME,
	new_messages INTEGER NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE TABLE IF NOT EXISTS sync_uids (
	account_id TEXT NOT NULL,
	folder     TEXT NOT NULL DEFAULT '',
	uid        INTEGER NOT NULL,
	PRIMARY KEY (account_id, folder, uid)
);

CREATE INDEX IF NOT EXISTS idx_sync_jobs_account ON sync_jobs(account_id);
CREATE INDEX IF NOT EXISTS idx_sync_jobs_status ON sync_jobs(status);
`

// Status is a sync job's lifecycle state.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job records one sync run against one account.
type Job struct {
	ID          string
	AccountID   string
	Status      Status
	StartedAt   time.Time
	FinishedAt  sql.NullTime
	NewMessages int
	Error       string
}

// DB manages sync state in a single SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens or creates the sync state database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("syncstate: open %s: %w", path, err)
	}

	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("syncstate: init schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close releases the database connection.
func (s *DB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateJob inserts a new running sync job for an account.
func (s *DB) CreateJob(accountID string) (*Job, error) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	job := Job{
		ID:        id.String(),
		AccountID: accountID,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}

	_, err = s.db.Exec(
		`INSERT INTO sync_jobs (id, account_id, status, started_at) VALUES (?, ?, ?, ?)`,
		job.ID, job.AccountID, job.Status, job.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob persists a job's terminal status, message count, and error.
func (s *DB) UpdateJob(job *Job) error {
	_, err := s.db.Exec(
		`UPDATE sync_jobs SET status = ?, finished_at = ?, new_messages = ?, error = ? WHERE id = ?`,
		job.Status, job.FinishedAt, job.NewMessages, job.Error, job.ID,
	)
	return err
}

// LastJob returns the most recently started sync job for an account, or nil
// if none has run yet.
func (s *DB) LastJob(accountID string) (*Job, error) {
	row := s.db.QueryRow(
		`SELECT id, account_id, status, started_at, finished_at, new_messages, error
		 FROM sync_jobs WHERE account_id = ? ORDER BY started_at DESC LIMIT 1`,
		accountID,
	)

	var job Job
	var errText sql.NullString
	err := row.Scan(&job.ID, &job.AccountID, &job.Status, &job.StartedAt,
		&job.FinishedAt, &job.NewMessages, &errText)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	job.Error = errText.String
	return &job, nil
}

// IsUIDSynced reports whether uid in folder has already been archived for
// accountID.
func (s *DB) IsUIDSynced(accountID, folder string, uid uint32) bool {
	var count int
	s.db.QueryRow(
		`SELECT COUNT(*) FROM sync_uids WHERE account_id = ? AND folder = ? AND uid = ?`,
		accountID, folder, uid,
	).Scan(&count)
	return count > 0
}

// MarkUIDSynced records uid in folder as archived for accountID.
func (s *DB) MarkUIDSynced(accountID, folder string, uid uint32) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sync_uids (account_id, folder, uid) VALUES (?, ?, ?)`,
		accountID, folder, uid,
	)
	return err
}

// SyncedUIDs returns every UID already archived for accountID+folder, for
// computing the delta against a fresh SEARCH/FETCH.
func (s *DB) SyncedUIDs(accountID, folder string) (map[uint32]bool, error) {
	rows, err := s.db.Query(
		`SELECT uid FROM sync_uids WHERE account_id = ? AND folder = ?`,
		accountID, folder,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uids := make(map[uint32]bool)
	for rows.Next() {
		var uid uint32
		if err := rows.Scan(&uid); err != nil {
			continue
		}
		uids[uid] = true
	}
	return uids, nil
}

// HighestUID returns the largest UID recorded for accountID+folder, used as
// the low bound of a "UID fetch N+1:*" incremental search. Returns 0 if
// nothing has been synced yet.
func (s *DB) HighestUID(accountID, folder string) (uint32, error) {
	var uid sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(uid) FROM sync_uids WHERE account_id = ? AND folder = ?`,
		accountID, folder,
	).Scan(&uid)
	if err != nil {
		return 0, err
	}
	return uint32(uid.Int64), nil
}
