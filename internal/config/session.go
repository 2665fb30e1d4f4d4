// Package config loads the archiver's account configuration: the set of
// IMAP mailboxes to keep archived, and how to connect to each.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Account is one mailbox the archiver keeps in sync, adapted from the
// teacher's multi-protocol EmailAccount down to the fields an IMAP-only
// archiver needs.
type Account struct {
	ID       string `yaml:"id"`
	Email    string `yaml:"email"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`

	// RootFolder/Separator/AltRoot/CaseInsensitive configure imap.Config's
	// folder-name rewriter for servers that prefix every
	// mailbox name.
	RootFolder      string `yaml:"root_folder,omitempty"`
	Separator       string `yaml:"separator,omitempty"` // single character; "" means use the server's LIST separator
	AltRoot         string `yaml:"alt_root,omitempty"`
	CaseInsensitive bool   `yaml:"case_insensitive,omitempty"`

	// Folders lists which mailboxes to archive; empty means "all", resolved
	// via LIST at sync time.
	Folders []string `yaml:"folders,omitempty"`

	Sync SyncConfig `yaml:"sync"`
}

// SyncConfig controls sync scheduling for an account.
type SyncConfig struct {
	Interval string `yaml:"interval"` // e.g. "5m", "1h30m"
	Enabled  bool   `yaml:"enabled"`
}

// File is the accounts.yml document shape.
type File struct {
	Accounts []Account `yaml:"accounts"`
}

// Store manages the archiver's account list, persisted as a single
// accounts.yml (unlike a multi-tenant per-user accounts.yml, this is one
// flat file per archiver instance).
type Store struct {
	mu   sync.RWMutex
	path string
}

// NewStore creates a Store backed by path (created on first Create/Save).
func NewStore(path string) *Store {
	return &Store{path: path}
}

// List returns every configured account.
func (s *Store) List() ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// Get returns a single account by ID.
func (s *Store) Get(id string) (*Account, error) {
	accounts, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("config: account %s not found", id)
}

// Create appends a new account, assigning it a UUIDv7 ID if unset.
func (s *Store) Create(acct Account) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, _ := s.load()
	if acct.ID == "" {
		acct.ID = newID()
	}
	if acct.Sync.Interval == "" {
		acct.Sync.Interval = "5m"
	}
	acct.Sync.Enabled = true

	accounts = append(accounts, acct)
	if err := s.save(accounts); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Update replaces an existing account's configuration.
func (s *Store) Update(acct Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.load()
	if err != nil {
		return err
	}
	found := false
	for i, a := range accounts {
		if a.ID == acct.ID {
			accounts[i] = acct
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config: account %s not found", acct.ID)
	}
	return s.save(accounts)
}

// Delete removes an account from the config (archived messages already on
// disk/S3 are untouched).
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.load()
	if err != nil {
		return err
	}
	filtered := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if a.ID != id {
			filtered = append(filtered, a)
		}
	}
	if len(filtered) == len(accounts) {
		return fmt.Errorf("config: account %s not found", id)
	}
	return s.save(filtered)
}

func (s *Store) load() ([]Account, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", s.path, err)
	}
	return f.Accounts, nil
}

func (s *Store) save(accounts []Account) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(File{Accounts: accounts})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600) // 0600: file holds IMAP passwords in cleartext
}

// newID generates a UUIDv7 (time-ordered) identifier, falling back to v4 on
// the vanishingly rare case v7 generation fails.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
