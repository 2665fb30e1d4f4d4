package imap

import (
	"strconv"
	"strings"
)

// CompletionStatus is the tagged-completion outcome of a command.
type CompletionStatus int

const (
	StatusOK CompletionStatus = iota
	StatusNo
	StatusBad
)

func (c CompletionStatus) String() string {
	switch c {
	case StatusOK:
		return "OK"
	case StatusNo:
		return "NO"
	case StatusBad:
		return "BAD"
	default:
		return "?"
	}
}

// ListEntry is one mailbox entry from a LIST/LSUB response.
type ListEntry struct {
	Name  string
	Delim byte
	Attrs []string
}

// NamespaceData is the reshaped NAMESPACE response (personal/other-users/
// shared namespace triples, each a raw Atom list — callers
// needing the individual prefix/separator pairs walk entry.Items()).
type NamespaceData struct {
	Personal Atom
	Other    Atom
	Shared   Atom
}

// QuotaEntry is one QUOTA response: a quota root name and its resource
// usage/limit triples, left as a raw Atom list (RESOURCE USAGE LIMIT ...).
type QuotaEntry struct {
	Root      string
	Resources Atom
}

// ACLData is one ACL response: a mailbox name and its identifier->rights map.
type ACLData struct {
	Mailbox string
	Rights  map[string]string
}

// Response accumulates everything the parser collects for one command's
// round trip: the tagged completion status/text, plus whatever untagged
// data arrived along the way. Only the fields relevant to the command that
// was sent are populated; the rest are left at their zero value.
type Response struct {
	Status CompletionStatus
	Text   string
	Bye    bool

	Exists  *uint32
	Recent  *uint32
	Expunge []uint32

	Fetch map[uint32]FetchRecord

	Search []uint32
	Sort   []uint32

	Flags        []string
	Capabilities []string

	List []ListEntry
	LSub []ListEntry

	MailboxStatus map[string]map[string]uint32

	Thread    []Atom
	Namespace *NamespaceData
	Quota     []QuotaEntry
	QuotaRoot []string
	ACL       []ACLData
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func atomsToStrings(atoms []Atom) []string {
	out := make([]string, 0, len(atoms))
	for _, a := range atoms {
		out = append(out, a.Text())
	}
	return out
}

func parseStatusWord(w string) (CompletionStatus, error) {
	switch strings.ToUpper(w) {
	case "OK":
		return StatusOK, nil
	case "NO":
		return StatusNo, nil
	case "BAD":
		return StatusBad, nil
	}
	return 0, newErr(KindProtocolParse, "bad completion status word: "+w, nil)
}

// readAtomsUntilEOL reads bare (unparenthesized) atoms up to end of line,
// the shape CAPABILITY and QUOTAROOT's resource-name list take.
func (t *tokenizer) readAtomsUntilEOL(sink LiteralSink) ([]Atom, error) {
	var out []Atom
	for {
		if err := t.ensureLine(); err != nil {
			return nil, err
		}
		if t.atEOL() {
			return out, nil
		}
		a, err := t.readValue(sink)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
}

// parseRespTextCode hand-parses the optional "[CODE args...] human text"
// suffix of a status line directly off the tokenizer's raw line bytes,
// since '[' and ']' are not delimiters in the atom grammar.
// When present, the bracketed content is re-tokenized with a throwaway
// tokenizer sharing the same buffer, so literals inside it (vanishingly
// rare in practice, but not forbidden) still stream through the session's
// configured sink.
func (s *Session) parseRespTextCode() (code string, args Atom, text string, err error) {
	t := s.tok
	if err = t.ensureLine(); err != nil {
		return "", Atom{}, "", err
	}
	if t.atEOL() {
		return "", Atom{}, "", nil
	}
	if t.line[t.pos] != '[' {
		text = string(t.line[t.pos:])
		t.pos = len(t.line)
		return "", Atom{}, strings.TrimSpace(text), nil
	}

	depth := 1
	i := t.pos + 1
	for i < len(t.line) && depth > 0 {
		switch t.line[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				goto found
			}
		}
		i++
	}
	return "", Atom{}, "", newErr(KindProtocolParse, "unterminated response code", nil)

found:
	inner := t.line[t.pos+1 : i]
	t.pos = i + 1
	if t.pos < len(t.line) && t.line[t.pos] == ' ' {
		t.pos++
	}
	text = string(t.line[t.pos:])
	t.pos = len(t.line)

	sub := &tokenizer{buf: t.buf, line: inner, pos: 0}
	kwAtom, err := sub.readValue(s.literalSink)
	if err != nil {
		return "", Atom{}, "", err
	}
	var argAtoms []Atom
	for !sub.atEOL() {
		a, aerr := sub.readValue(s.literalSink)
		if aerr != nil {
			break
		}
		argAtoms = append(argAtoms, a)
	}
	return strings.ToUpper(kwAtom.Text()), list(argAtoms), strings.TrimSpace(text), nil
}

// cacheRespCode stores a parsed response code in the §4.E response-code
// cache, and additionally folds CAPABILITY codes into the memoized
// capability set (servers may advertise capabilities either via a standalone
// untagged CAPABILITY response or via "* OK [CAPABILITY ...]").
func (s *Session) cacheRespCode(name string, args Atom) {
	s.setResponseCode(name, args)
	if strings.EqualFold(name, "CAPABILITY") {
		s.setCapabilities(args.Items())
	}
}

// consumeUntaggedRemainder parses and caches the response-code/text suffix
// of an untagged OK/NO/BAD/PREAUTH/BYE line, without advancing past the
// line itself — callers finish the line (or not, per their own needs)
// afterward. keyword is unused beyond documenting intent at call sites.
func (s *Session) consumeUntaggedRemainder(keyword string, sink LiteralSink) error {
	code, args, _, err := s.parseRespTextCode()
	if err != nil {
		return err
	}
	if code != "" {
		s.cacheRespCode(code, args)
	}
	return nil
}

func (s *Session) consumeUntaggedStatusLine(kw string) error {
	if err := s.consumeUntaggedRemainder(kw, nil); err != nil {
		return err
	}
	return s.tok.finishLine(s.pedantic)
}

// readResponse drives the per-line dispatch loop:
// read values until the line matching tag arrives as a tagged completion,
// accumulating any untagged data encountered along the way into resp.
func (s *Session) readResponse(tag string, collect string) (*Response, error) {
	resp := &Response{}
	for {
		first, err := s.tok.readValue(nil)
		if err != nil {
			return nil, err
		}
		ft := first.Text()

		if ft == tag {
			kwAtom, err := s.tok.readValue(nil)
			if err != nil {
				return nil, err
			}
			status, err := parseStatusWord(kwAtom.Text())
			if err != nil {
				return nil, err
			}
			code, args, text, err := s.parseRespTextCode()
			if err != nil {
				return nil, err
			}
			if code != "" {
				s.cacheRespCode(code, args)
			}
			resp.Status = status
			resp.Text = text
			if err := s.tok.finishLine(s.pedantic); err != nil {
				return nil, err
			}
			return resp, nil
		}

		if ft != "*" {
			return nil, newErr(KindProtocolParse, "expected tag or '*', got: "+ft, nil)
		}
		if err := s.handleUntagged(resp); err != nil {
			return nil, err
		}
	}
}

// handleUntagged reads and dispatches one untagged ("* ...") line's worth
// of data, dispatching on the keyword/numbered-response table.
func (s *Session) handleUntagged(resp *Response) error {
	kw, err := s.tok.readValue(nil)
	if err != nil {
		return err
	}
	txt := kw.Text()

	if isDigits(txt) {
		n, _ := strconv.ParseUint(txt, 10, 32)
		kind, err := s.tok.readValue(s.literalSink)
		if err != nil {
			return err
		}
		switch strings.ToUpper(kind.Text()) {
		case "EXISTS":
			v := uint32(n)
			resp.Exists = &v
			s.setResponseCode("exists", str(txt))
			return s.tok.finishLine(s.pedantic)
		case "RECENT":
			v := uint32(n)
			resp.Recent = &v
			s.setResponseCode("recent", str(txt))
			return s.tok.finishLine(s.pedantic)
		case "EXPUNGE":
			resp.Expunge = append(resp.Expunge, uint32(n))
			return s.tok.finishLine(s.pedantic)
		case "FETCH":
			itemsAtom, err := s.tok.readValue(s.literalSink)
			if err != nil {
				return err
			}
			if resp.Fetch == nil {
				resp.Fetch = make(map[uint32]FetchRecord)
			}
			rec := reshapeFetchItems(s, itemsAtom.Items())
			key := uint32(n)
			if s.UIDMode() {
				if uidStr, ok := rec["uid"].(string); ok {
					if uid, perr := strconv.ParseUint(uidStr, 10, 32); perr == nil {
						key = uint32(uid)
						delete(rec, "uid")
					}
				}
			}
			resp.Fetch[key] = rec
			return s.tok.finishLine(s.pedantic)
		default:
			return s.tok.finishLine(false)
		}
	}

	switch strings.ToUpper(txt) {
	case "OK", "NO", "BAD":
		return s.consumeUntaggedStatusLine(strings.ToUpper(txt))
	case "BYE":
		if err := s.consumeUntaggedStatusLine("BYE"); err != nil {
			return err
		}
		resp.Bye = true
		return nil
	case "CAPABILITY":
		atoms, err := s.tok.readAtomsUntilEOL(nil)
		if err != nil {
			return err
		}
		s.setCapabilities(atoms)
		resp.Capabilities = atomsToStrings(atoms)
		return s.tok.finishLine(s.pedantic)
	case "FLAGS":
		a, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		resp.Flags = atomsToStrings(a.Items())
		return s.tok.finishLine(s.pedantic)
	case "SEARCH":
		nums, err := s.tok.readIntegerRun()
		if err != nil {
			return err
		}
		resp.Search = append(resp.Search, nums...)
		return s.tok.finishLine(s.pedantic)
	case "SORT":
		nums, err := s.tok.readIntegerRun()
		if err != nil {
			return err
		}
		resp.Sort = append(resp.Sort, nums...)
		return s.tok.finishLine(s.pedantic)
	case "LIST", "LSUB":
		attrsAtom, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		sepAtom, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		nameAtom, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		entry := ListEntry{
			Name:  s.folder.strip(nameAtom.Text()),
			Attrs: atomsToStrings(attrsAtom.Items()),
		}
		if !sepAtom.IsNil() && sepAtom.Text() != "" {
			entry.Delim = sepAtom.Text()[0]
			s.folder.reconfigure(entry.Delim)
		}
		if strings.EqualFold(txt, "LIST") {
			resp.List = append(resp.List, entry)
		} else {
			resp.LSub = append(resp.LSub, entry)
		}
		return s.tok.finishLine(s.pedantic)
	case "STATUS":
		nameAtom, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		itemsAtom, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		items := itemsAtom.Items()
		m := make(map[string]uint32, len(items)/2)
		for i := 0; i+1 < len(items); i += 2 {
			n, _ := strconv.ParseUint(items[i+1].Text(), 10, 32)
			m[lower(items[i].Text())] = uint32(n)
		}
		if resp.MailboxStatus == nil {
			resp.MailboxStatus = make(map[string]map[string]uint32)
		}
		resp.MailboxStatus[s.folder.strip(nameAtom.Text())] = m
		return s.tok.finishLine(s.pedantic)
	case "THREAD":
		atoms, err := s.tok.readAtomsUntilEOL(nil)
		if err != nil {
			return err
		}
		resp.Thread = append(resp.Thread, atoms...)
		return s.tok.finishLine(s.pedantic)
	case "NAMESPACE":
		personal, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		other, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		shared, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		resp.Namespace = &NamespaceData{Personal: personal, Other: other, Shared: shared}
		return s.tok.finishLine(s.pedantic)
	case "QUOTA":
		root, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		resources, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		resp.Quota = append(resp.Quota, QuotaEntry{Root: root.Text(), Resources: resources})
		return s.tok.finishLine(s.pedantic)
	case "QUOTAROOT":
		atoms, err := s.tok.readAtomsUntilEOL(nil)
		if err != nil {
			return err
		}
		resp.QuotaRoot = append(resp.QuotaRoot, atomsToStrings(atoms)...)
		return s.tok.finishLine(s.pedantic)
	case "ACL":
		nameAtom, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		atoms, err := s.tok.readAtomsUntilEOL(nil)
		if err != nil {
			return err
		}
		rights := make(map[string]string, len(atoms)/2)
		for i := 0; i+1 < len(atoms); i += 2 {
			rights[atoms[i].Text()] = atoms[i+1].Text()
		}
		resp.ACL = append(resp.ACL, ACLData{Mailbox: s.folder.strip(nameAtom.Text()), Rights: rights})
		return s.tok.finishLine(s.pedantic)
	case "LISTRIGHTS":
		// "* LISTRIGHTS mailbox identifier required optional..." (RFC 4314).
		if _, err := s.tok.readValue(nil); err != nil {
			return err
		}
		atoms, err := s.tok.readAtomsUntilEOL(nil)
		if err != nil {
			return err
		}
		s.setResponseCode("listrights", list(atoms))
		return s.tok.finishLine(s.pedantic)
	case "MYRIGHTS":
		// "* MYRIGHTS mailbox rights" (RFC 4314).
		if _, err := s.tok.readValue(nil); err != nil {
			return err
		}
		rightsAtom, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		s.setResponseCode("myrights", rightsAtom)
		return s.tok.finishLine(s.pedantic)
	case "ANNOTATION":
		// "* ANNOTATION mailbox entry (attrib value ...)" (ANNOTATEMORE draft).
		if _, err := s.tok.readValue(nil); err != nil {
			return err
		}
		if _, err := s.tok.readValue(nil); err != nil {
			return err
		}
		attrsAtom, err := s.tok.readValue(nil)
		if err != nil {
			return err
		}
		s.setResponseCode("annotation", attrsAtom)
		return s.tok.finishLine(s.pedantic)
	default:
		return s.tok.finishLine(false)
	}
}
