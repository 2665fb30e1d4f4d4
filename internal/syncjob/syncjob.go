// Package syncjob orchestrates archiving an account's mailboxes: it drives
// the imap package through LIST/SELECT/SEARCH/FETCH, tracks which UIDs have
// already been archived via syncstate, and writes each raw message through
// blobstore. One job is one end-to-end pass over one account.
package syncjob

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/eslider/imaptalk/imap"
	"github.com/eslider/imaptalk/internal/blobstore"
	"github.com/eslider/imaptalk/internal/config"
	"github.com/eslider/imaptalk/internal/syncstate"
)

// fetchBatchSize caps how many UIDs go into a single FETCH command, matching
// the batching IMAP servers expect for large mailboxes.
const fetchBatchSize = 50

// ProgressFunc receives human-readable progress updates during a sync run.
type ProgressFunc func(msg string)

// syncEntry tracks one account's in-flight run.
type syncEntry struct {
	startedAt time.Time
	progress  string
}

// Runner drives sync for a set of accounts, at most one run per account at
// a time.
type Runner struct {
	accounts *config.Store
	state    *syncstate.DB
	store    blobstore.BlobStore

	mu      sync.Mutex
	running map[string]*syncEntry
}

// NewRunner builds a Runner over the given account store, sync-state
// database, and blob store.
func NewRunner(accounts *config.Store, state *syncstate.DB, store blobstore.BlobStore) *Runner {
	return &Runner{
		accounts: accounts,
		state:    state,
		store:    store,
		running:  make(map[string]*syncEntry),
	}
}

// SyncAccount runs one archiving pass over a single account, synchronously.
// Returns the count of newly archived messages.
func (r *Runner) SyncAccount(ctx context.Context, acct config.Account, onProgress ProgressFunc) (int, error) {
	if onProgress == nil {
		onProgress = func(string) {}
	}

	r.markRunning(acct.ID)
	defer r.clearRunning(acct.ID)

	report := func(msg string) {
		r.setProgress(acct.ID, msg)
		onProgress(msg)
	}

	job, err := r.state.CreateJob(acct.ID)
	if err != nil {
		return 0, eris.Wrap(err, "create sync job")
	}

	total, syncErr := r.doSync(ctx, acct, report)

	job.FinishedAt.Time = time.Now()
	job.FinishedAt.Valid = true
	job.NewMessages = total
	if syncErr != nil {
		job.Status = syncstate.StatusFailed
		job.Error = syncErr.Error()
	} else {
		job.Status = syncstate.StatusDone
	}
	if err := r.state.UpdateJob(job); err != nil {
		log.Printf("WARN: update sync job %s: %v", job.ID, err)
	}

	return total, syncErr
}

// SyncAll runs SyncAccount for every enabled account, continuing past
// individual account failures.
func (r *Runner) SyncAll(ctx context.Context, onProgress ProgressFunc) error {
	accounts, err := r.accounts.List()
	if err != nil {
		return err
	}
	for _, acct := range accounts {
		if !acct.Sync.Enabled {
			continue
		}
		if _, err := r.SyncAccount(ctx, acct, onProgress); err != nil {
			log.Printf("WARN: sync %s: %v", acct.Email, err)
		}
	}
	return nil
}

func (r *Runner) markRunning(accountID string) {
	r.mu.Lock()
	r.running[accountID] = &syncEntry{startedAt: time.Now(), progress: "starting"}
	r.mu.Unlock()
}

func (r *Runner) clearRunning(accountID string) {
	r.mu.Lock()
	delete(r.running, accountID)
	r.mu.Unlock()
}

// IsRunning reports whether a sync is currently in progress for accountID.
func (r *Runner) IsRunning(accountID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[accountID]
	return ok
}

func (r *Runner) setProgress(accountID, msg string) {
	r.mu.Lock()
	if e, ok := r.running[accountID]; ok {
		e.progress = msg
	}
	r.mu.Unlock()
}

func (r *Runner) doSync(ctx context.Context, acct config.Account, onProgress ProgressFunc) (int, error) {
	addr := net.JoinHostPort(acct.Host, fmt.Sprintf("%d", acct.Port))
	onProgress("connecting to " + acct.Host)

	var conn net.Conn
	var err error
	if acct.UseTLS {
		conn, err = tls.Dial("tcp", addr, &tls.Config{ServerName: acct.Host})
	} else {
		conn, err = net.DialTimeout("tcp", addr, 30*time.Second)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "connect %s", addr)
	}
	defer conn.Close()

	var sep byte
	if acct.Separator != "" {
		sep = acct.Separator[0]
	}
	expectGreeting := true // freshly dialed: the server still has to send its greeting
	sess, err := imap.NewSession(imap.Config{
		Conn:            conn,
		ExpectGreeting:  &expectGreeting,
		Username:        acct.Username,
		Password:        acct.Password,
		RootFolder:      acct.RootFolder,
		Separator:       sep,
		AltRoot:         acct.AltRoot,
		CaseInsensitive: acct.CaseInsensitive,
		ParseFlags:      imap.ParseFlags{}, // raw FETCH only; no envelope/bodystructure parsing needed to archive
	})
	if err != nil {
		return 0, eris.Wrap(err, "imap connect/login")
	}
	defer sess.Close()
	onProgress("logged in, listing folders")

	folders, err := r.resolveFolders(sess, acct)
	if err != nil {
		return 0, eris.Wrap(err, "list folders")
	}

	total := 0
	for i, folder := range folders {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		onProgress(fmt.Sprintf("folder %d/%d: %s", i+1, len(folders), folder))
		n, err := r.syncFolder(ctx, sess, acct, folder)
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			log.Printf("WARN: folder %q: %v", folder, err)
			continue
		}
		total += n
	}

	return total, nil
}

func (r *Runner) resolveFolders(sess *imap.Session, acct config.Account) ([]string, error) {
	if len(acct.Folders) > 0 {
		return acct.Folders, nil
	}
	entries, err := sess.List("", "*")
	if err != nil {
		return nil, err
	}
	var folders []string
	for _, e := range entries {
		if hasAttr(e.Attrs, "\\noselect") {
			continue
		}
		folders = append(folders, e.Name)
	}
	return folders, nil
}

func hasAttr(attrs []string, want string) bool {
	for _, a := range attrs {
		if strings.EqualFold(a, want) {
			return true
		}
	}
	return false
}

func (r *Runner) syncFolder(ctx context.Context, sess *imap.Session, acct config.Account, folder string) (int, error) {
	if err := sess.Select(folder); err != nil {
		return 0, err
	}

	uids, err := sess.Search([]string{"ALL"})
	if err != nil {
		return 0, err
	}

	var fresh []uint32
	for _, uid := range uids {
		if !r.state.IsUIDSynced(acct.ID, folder, uid) {
			fresh = append(fresh, uid)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	newCount := 0
	for i := 0; i < len(fresh); i += fetchBatchSize {
		select {
		case <-ctx.Done():
			return newCount, ctx.Err()
		default:
		}

		end := i + fetchBatchSize
		if end > len(fresh) {
			end = len(fresh)
		}
		batch := fresh[i:end]

		records, err := sess.Fetch(idSet(batch), []string{"UID", "BODY.PEEK[]"})
		if err != nil {
			log.Printf("WARN: batch fetch in %q: %v", folder, err)
			continue
		}

		for _, uid := range batch {
			rec, ok := records[uid]
			if !ok {
				continue
			}
			raw, _ := rec["body"].(string)
			if raw == "" {
				continue
			}
			if r.archive(ctx, acct.ID, folder, uid, []byte(raw)) {
				newCount++
			}
		}
	}

	return newCount, nil
}

func (r *Runner) archive(ctx context.Context, accountID, folder string, uid uint32, raw []byte) bool {
	checksum := contentChecksum(raw)
	key := fmt.Sprintf("%s/%s/%s-%d.eml", accountID, sanitizeFolder(folder), checksum, uid)
	if err := r.store.Write(ctx, key, raw); err != nil {
		log.Printf("WARN: write %s: %v", key, err)
		return false
	}
	if err := r.state.MarkUIDSynced(accountID, folder, uid); err != nil {
		log.Printf("WARN: mark synced %s/%s/%d: %v", accountID, folder, uid, err)
	}
	return true
}

func idSet(uids []uint32) string {
	parts := make([]string, len(uids))
	for i, u := range uids {
		parts[i] = fmt.Sprintf("%d", u)
	}
	return strings.Join(parts, ",")
}

func contentChecksum(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

func sanitizeFolder(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "other"
	}
	return name
}
