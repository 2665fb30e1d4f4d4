package config

import (
	"path/filepath"
	"testing"
)

func TestStoreCreateListGet(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "accounts.yml"))

	acct, err := s.Create(Account{
		Email: "me@example.com",
		Host:  "imap.example.com",
		Port:  993,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if acct.ID == "" {
		t.Fatal("Create: expected an assigned ID")
	}
	if acct.Sync.Interval != "5m" {
		t.Errorf("Create: default interval = %q, want 5m", acct.Sync.Interval)
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("List: got %d accounts, want 1", len(list))
	}

	got, err := s.Get(acct.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Email != "me@example.com" {
		t.Errorf("Get: email = %q, want me@example.com", got.Email)
	}
}

func TestStoreUpdateAndDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "accounts.yml"))

	acct, err := s.Create(Account{Email: "a@example.com", Host: "h", Port: 143})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	acct.Host = "h2"
	if err := s.Update(*acct); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := s.Get(acct.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Host != "h2" {
		t.Errorf("Update: host = %q, want h2", got.Host)
	}

	if err := s.Delete(acct.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(acct.ID); err == nil {
		t.Error("Get after Delete: expected error")
	}
}

func TestStoreGetMissingAccount(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "accounts.yml"))

	if _, err := s.Get("nonexistent"); err == nil {
		t.Error("Get: expected error for missing account on an empty store")
	}
}

func TestStoreListOnMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "does-not-exist.yml"))

	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List: got %d accounts, want 0", len(list))
	}
}
