package imap

import (
	"fmt"
	"strconv"
	"strings"
)

// cmdRequest describes one command to send: verb and args
// are joined with single spaces to form the command line after the tag;
// literalArgs (if any) are sent as synchronizing literals following the
// continuation-request handshake. collect names the
// untagged-data keyword the parser should accumulate into the Response's
// Collected slice (e.g. "capability", "list", "search", "fetch"); empty
// means "collect nothing, just wait for the tagged completion."
type cmdRequest struct {
	verb    string
	args    []string
	collect string

	// literalArgs, when non-empty, are appended after args as IMAP literals,
	// each preceded by its own continuation-request round trip. They are
	// in-memory bytes; the only caller is APPEND, with a single literal.
	literalArgs [][]byte

	// mutates marks a command that changes mailbox state, for the
	// fireFolderChange hook.
	mutates bool
	// mutatesFolder is the folder name to report to OnFolderChange, when
	// mutates is true and the relevant folder isn't the currently selected
	// one (e.g. APPEND to another folder).
	mutatesFolder string
}

// quoteIfNeeded renders s as an IMAP string: atoms that
// need no special treatment pass through bare; anything containing a space,
// control character, or IMAP-special character is quoted (backslash- and
// quote-escaped); %s containing CR/LF must travel as a literal instead (the
// caller is responsible for routing those through literalArgs).
func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	needsQuote := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == ' ' || c == '(' || c == ')' || c == '{' || c == '"' || c == '\\' || c == '%' || c == '*':
			needsQuote = true
		case c < 0x20 || c == 0x7f:
			needsQuote = true
		}
	}
	if !needsQuote {
		return s
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}

// astring renders s as an IMAP astring literal-free when possible, matching
// quoteIfNeeded; FETCH/SEARCH/LOGIN arguments use this helper.
func astring(s string) string { return quoteIfNeeded(s) }

// maskedArgsForTrace returns the args slice with LOGIN's password argument
// replaced by asterisks, for tracing (the wire write itself is unmasked;
// only the trace sink's copy is redacted). imap/trace.go's maskLogin, which
// buffer.traceWrite applies to every traced write, masks a LOGIN line in
// its serialized form; this masks the argument list before it is joined.
func maskedArgsForTrace(verb string, args []string) []string {
	if !strings.EqualFold(verb, "LOGIN") || len(args) < 2 {
		return args
	}
	out := append([]string{}, args...)
	out[len(out)-1] = `"****"`
	return out
}

// exec sends one command and waits for its tagged completion, returning the
// parsed Response. It implements the full round trip: tag allocation, line
// assembly (inline args first, then one continuation-request handshake per
// literal argument), and delegation to readResponse for everything the
// server sends back.
func (s *Session) exec(req cmdRequest) (*Response, error) {
	if s.isReleased() {
		return nil, newErr(KindStateInvalid, "session has been released", nil)
	}
	tag := s.nextTag()

	line := tag + " " + req.verb
	if len(req.args) > 0 {
		line += " " + strings.Join(req.args, " ")
	}

	for _, lit := range req.literalArgs {
		line += " {" + strconv.Itoa(len(lit)) + "}"
	}

	traceLine := tag + " " + req.verb
	if len(req.args) > 0 {
		traceLine += " " + strings.Join(maskedArgsForTrace(req.verb, req.args), " ")
	}
	for range req.literalArgs {
		traceLine += " {literal}"
	}
	s.buf.traceWrite([]byte(traceLine + "\r\n"))

	if len(req.literalArgs) == 0 {
		if err := s.buf.writeAll([]byte(line + "\r\n")); err != nil {
			return nil, err
		}
	} else {
		// Send up to (and including) the final literal size spec, then wait
		// for "+ ..." continuation before each literal's bytes. Only the
		// synchronizing-literal form is used (no LITERAL+); non-synchronizing
		// literals are not needed here.
		head, rest := splitFirstLiteralHead(line)
		if err := s.buf.writeAll([]byte(head + "\r\n")); err != nil {
			return nil, err
		}
		for i, lit := range req.literalArgs {
			if err := s.awaitContinuation(); err != nil {
				s.recordError(err)
				return nil, err
			}
			if err := s.buf.writeAll(lit); err != nil {
				return nil, err
			}
			s.buf.traceWrite([]byte(fmt.Sprintf("<%d literal bytes>\r\n", len(lit))))
			if i == len(req.literalArgs)-1 {
				if err := s.buf.writeAll([]byte(rest + "\r\n")); err != nil {
					return nil, err
				}
			} else {
				if err := s.buf.writeAll([]byte(rest)); err != nil {
					return nil, err
				}
			}
		}
	}

	resp, err := s.readResponse(tag, req.collect)
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	if resp.Status == StatusNo || resp.Status == StatusBad {
		ierr := newErr(KindProtocolNegative, req.verb+": "+resp.Text, nil)
		s.recordError(ierr)
		return resp, ierr
	}
	return resp, nil
}

// splitFirstLiteralHead returns line unchanged as head and an empty rest, so
// every "{N}" marker stays on the initial line. That frames a command whose
// only literal is its last argument (APPEND); a command with several
// literals is not split across continuation lines.
func splitFirstLiteralHead(line string) (head, rest string) {
	return line, ""
}

// awaitContinuation reads lines until the server's "+ ..." continuation
// prompt. Untagged data arriving before the continuation (rare, but legal)
// is discarded; unexpected tagged completions are
// surfaced as PROTOCOL_PARSE since that would mean the server rejected the
// command before consuming the literal.
func (s *Session) awaitContinuation() error {
	for {
		line, err := s.buf.readLine()
		if err != nil {
			return err
		}
		traced := make([]byte, 0, len(line)+2)
		traced = append(traced, line...)
		traced = append(traced, '\r', '\n')
		s.buf.traceRead(traced)
		if len(line) > 0 && line[0] == '+' {
			return nil
		}
		if len(line) > 0 && line[0] != '*' {
			return newErr(KindProtocolParse, "expected continuation, got: "+string(line), nil)
		}
		// Untagged line while awaiting continuation: drop it. The tokenizer
		// isn't re-entered here since literal destinations in these lines
		// are not meaningful mid-handshake.
	}
}

// Login authenticates via plaintext LOGIN. The password
// argument is sent in the clear over the wire exactly as provided; masking
// applies only to the trace sink's copy.
func (s *Session) Login(username, password string) error {
	if err := s.requireState(StateConnected); err != nil {
		return err
	}
	_, err := s.exec(cmdRequest{verb: "LOGIN", args: []string{astring(username), astring(password)}})
	if err != nil {
		return err
	}
	s.setState(StateAuthenticated)
	return nil
}

// Logout sends LOGOUT and waits for the server's BYE + tagged OK, then
// drops the session back to Unconnected.
func (s *Session) Logout() error {
	_, err := s.exec(cmdRequest{verb: "LOGOUT"})
	s.setState(StateUnconnected)
	return err
}
