package imap

import "testing"

func TestFolderRewriteScenario(t *testing.T) {
	fc := newFolderConfig("INBOX", '.', "user", true)

	cases := []struct {
		in   string
		want string
	}{
		{"INBOX", "INBOX"},
		{"Sent", "INBOX.Sent"},
		{"inbox.Drafts", "inbox.Drafts"},
		{"user.alice", "user.alice"},
		{"*", "*"},
	}
	for _, c := range cases {
		got := fc.rewrite(c.in)
		if got != c.want {
			t.Errorf("rewrite(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFolderRewriteIdempotent(t *testing.T) {
	fc := newFolderConfig("INBOX", '.', "", false)
	for _, name := range []string{"Sent", "INBOX", "INBOX.Sent", "Arbitrary.Nested.Name"} {
		once := fc.rewrite(name)
		twice := fc.rewrite(once)
		if once != twice {
			t.Errorf("rewrite not idempotent for %q: %q vs %q", name, once, twice)
		}
	}
}

func TestFolderRewriteWildcardPassthrough(t *testing.T) {
	fc := newFolderConfig("INBOX", '.', "", false)
	for _, name := range []string{"%", "*", "Foo%Bar", "Foo*"} {
		if got := fc.rewrite(name); got != name {
			t.Errorf("rewrite(%q) = %q, want unchanged", name, got)
		}
	}
}

func TestFolderStripPrefix(t *testing.T) {
	fc := newFolderConfig("INBOX", '.', "", false)
	if got := fc.strip("INBOX.Sent"); got != "Sent" {
		t.Errorf("strip(INBOX.Sent) = %q, want Sent", got)
	}
	if got := fc.strip("Other"); got != "Other" {
		t.Errorf("strip(Other) = %q, want unchanged", got)
	}
}

func TestFolderRewriteEmptyRootIsNoop(t *testing.T) {
	fc := newFolderConfig("", '/', "", false)
	if got := fc.rewrite("Anything"); got != "Anything" {
		t.Errorf("rewrite with empty root = %q, want unchanged", got)
	}
}

func TestFolderReconfigureSeparator(t *testing.T) {
	fc := newFolderConfig("INBOX", '.', "", false)
	if got := fc.rewrite("Sent"); got != "INBOX.Sent" {
		t.Fatalf("pre-reconfigure rewrite = %q", got)
	}
	fc.reconfigure('/')
	if got := fc.rewrite("Sent"); got != "INBOX/Sent" {
		t.Errorf("post-reconfigure rewrite = %q, want INBOX/Sent", got)
	}
}
