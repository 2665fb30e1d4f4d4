package syncjob

import "testing"

func TestIdSet(t *testing.T) {
	got := idSet([]uint32{1, 2, 3})
	if got != "1,2,3" {
		t.Errorf("idSet: got %q, want %q", got, "1,2,3")
	}
	if got := idSet(nil); got != "" {
		t.Errorf("idSet(nil): got %q, want empty", got)
	}
}

func TestSanitizeFolder(t *testing.T) {
	cases := map[string]string{
		"INBOX":         "inbox",
		"Work/Projects": "work_projects",
		"":              "other",
		"  Spaced  ":    "spaced",
		`a"b<c>d`:       "a_b_c_d",
	}
	for in, want := range cases {
		if got := sanitizeFolder(in); got != want {
			t.Errorf("sanitizeFolder(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHasAttr(t *testing.T) {
	attrs := []string{"\\HasChildren", "\\Noselect"}
	if !hasAttr(attrs, "\\noselect") {
		t.Error("hasAttr: expected case-insensitive match for \\Noselect")
	}
	if hasAttr(attrs, "\\marked") {
		t.Error("hasAttr: unexpected match for \\Marked")
	}
}

func TestContentChecksumStable(t *testing.T) {
	a := contentChecksum([]byte("hello"))
	b := contentChecksum([]byte("hello"))
	c := contentChecksum([]byte("world"))
	if a != b {
		t.Errorf("contentChecksum: not deterministic, %q != %q", a, b)
	}
	if a == c {
		t.Error("contentChecksum: different inputs produced the same checksum")
	}
	if len(a) != 16 {
		t.Errorf("contentChecksum: len = %d, want 16 (8 bytes hex)", len(a))
	}
}
