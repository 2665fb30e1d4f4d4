package blobstore

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func TestFSBlobStoreWriteRead(t *testing.T) {
	store := NewFSBlobStore(t.TempDir())
	ctx := context.Background()

	key := "acct-1/INBOX/abc123-42.eml"
	content := []byte("From: a@example.com\r\n\r\nhello\r\n")

	if err := store.Write(ctx, key, content); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("Read: got %q, want %q", got, content)
	}
}

func TestFSBlobStoreReadNotFound(t *testing.T) {
	store := NewFSBlobStore(t.TempDir())
	_, err := store.Read(context.Background(), "nothing/here.eml")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read: got %v, want ErrNotFound", err)
	}
}

func TestFSBlobStoreList(t *testing.T) {
	store := NewFSBlobStore(t.TempDir())
	ctx := context.Background()

	keys := []string{
		"acct-1/INBOX/a-1.eml",
		"acct-1/INBOX/b-2.eml",
		"acct-1/Archive/c-3.eml",
	}
	for _, k := range keys {
		if err := store.Write(ctx, k, []byte("x")); err != nil {
			t.Fatalf("Write %s: %v", k, err)
		}
	}

	got, err := store.List(ctx, "acct-1/INBOX")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sort.Strings(got)
	want := []string{"acct-1/INBOX/a-1.eml", "acct-1/INBOX/b-2.eml"}
	if len(got) != len(want) {
		t.Fatalf("List: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFSBlobStoreListMissingPrefix(t *testing.T) {
	store := NewFSBlobStore(t.TempDir())
	got, err := store.List(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List: got %v, want empty", got)
	}
}
