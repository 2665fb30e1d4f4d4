package imap

import "testing"

func addrAtom(name, route, mailbox, host string) Atom {
	item := func(s string) Atom {
		if s == "" {
			return Null
		}
		return quoted(s)
	}
	return list([]Atom{item(name), item(route), item(mailbox), item(host)})
}

func TestReshapeEnvelopeScenario(t *testing.T) {
	s := &Session{parseFlags: DefaultParseFlags()}

	envAtom := list([]Atom{
		quoted("…date…"),
		quoted("subj"),
		list([]Atom{addrAtom("J", "", "j", "x.com")}),
		list([]Atom{addrAtom("J", "", "j", "x.com")}),
		list([]Atom{addrAtom("J", "", "j", "x.com")}),
		list([]Atom{addrAtom("B", "", "b", "y.com")}),
		Null,
		Null,
		Null,
		Null,
	})

	env := reshapeEnvelope(s, envAtom)

	if env.From != `"J" <j@x.com>` {
		t.Errorf("From = %q, want %q", env.From, `"J" <j@x.com>`)
	}
	if env.Cc != "" {
		t.Errorf("Cc = %q, want empty", env.Cc)
	}
	if env.InReplyTo != nil {
		t.Errorf("InReplyTo = %v, want nil", env.InReplyTo)
	}
	if env.MessageID != nil {
		t.Errorf("MessageID = %v, want nil", env.MessageID)
	}
}

// reshapeFetchItems keeps the uid entry; replacing the message-number key
// with the UID happens in the parser (see TestSessionFetchUIDModeRemapsKey).
func TestReshapeFetchItemsKeepsUIDEntry(t *testing.T) {
	s := &Session{parseFlags: DefaultParseFlags(), uidMode: true}
	items := []Atom{
		str("UID"), str("1952"),
		str("FLAGS"), list([]Atom{str(`\Recent`), str(`\Seen`)}),
	}
	rec := reshapeFetchItems(s, items)
	flags, ok := rec["flags"].([]string)
	if !ok || len(flags) != 2 {
		t.Fatalf("flags = %#v", rec["flags"])
	}
	if rec["uid"] != "1952" {
		t.Fatalf("uid = %v", rec["uid"])
	}
}

func leafBodyAtom(typ, subtype string, size int) Atom {
	return list([]Atom{
		str(typ), str(subtype), Null, Null, Null, str("7BIT"), str(itoaTest(size)),
	})
}

func itoaTest(n int) string { return itoa(uint32(n)) }

func TestReshapeBodyStructureMultipartPartNums(t *testing.T) {
	s := &Session{parseFlags: DefaultParseFlags()}

	raw := list([]Atom{
		leafBodyAtom("text", "plain", 100),
		leafBodyAtom("text", "html", 200),
		str("alternative"),
	})

	bs := reshapeBodyStructure(s, raw, "")
	if !bs.Multipart || bs.Subtype != "alternative" {
		t.Fatalf("bs = %#v", bs)
	}
	if len(bs.Subparts) != 2 {
		t.Fatalf("subparts = %d, want 2", len(bs.Subparts))
	}
	if bs.Subparts[0].PartNum != "1" || bs.Subparts[1].PartNum != "2" {
		t.Fatalf("partnums = %q, %q", bs.Subparts[0].PartNum, bs.Subparts[1].PartNum)
	}

	if got := GetBodyPart(bs, "1"); got != bs.Subparts[0] {
		t.Errorf("GetBodyPart(1) mismatch")
	}
	if got := GetBodyPart(bs, "2"); got != bs.Subparts[1] {
		t.Errorf("GetBodyPart(2) mismatch")
	}
}

func TestFindTextPartPrefersPlainOverOthersAndKeepsHTML(t *testing.T) {
	s := &Session{parseFlags: DefaultParseFlags()}
	raw := list([]Atom{
		leafBodyAtom("text", "plain", 50),
		leafBodyAtom("text", "html", 80),
		str("alternative"),
	})
	bs := reshapeBodyStructure(s, raw, "")

	found := FindTextPart(bs)
	if _, ok := found["plain"]; !ok {
		t.Errorf("expected plain part found")
	}
	if _, ok := found["html"]; !ok {
		t.Errorf("expected html part found")
	}
	if len(found) != 2 {
		t.Errorf("found = %v, want exactly plain+html", found)
	}
}

func TestBuildCIDMap(t *testing.T) {
	leaf := &BodyStructure{Type: "image", Subtype: "png", ID: "<abc123>"}
	root := &BodyStructure{Multipart: true, Subparts: []*BodyStructure{leaf}}

	m := BuildCIDMap(root)
	if m["abc123"] != leaf {
		t.Fatalf("cid map = %#v", m)
	}
}

func TestParseHeaderFieldsFoldsContinuations(t *testing.T) {
	raw := "Subject: Hello\r\n World\r\nX-Test: one\r\n"
	hf := parseHeaderFields(raw)
	if len(hf["subject"]) != 1 {
		t.Fatalf("subject = %#v", hf["subject"])
	}
	if hf["subject"][0] != "Hello\r\n World" {
		t.Fatalf("subject = %q", hf["subject"][0])
	}
	if len(hf["x-test"]) != 1 || hf["x-test"][0] != "one" {
		t.Fatalf("x-test = %#v", hf["x-test"])
	}
}
