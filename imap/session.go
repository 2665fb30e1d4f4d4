// Package imap implements the core of a synchronous IMAP4rev1 client: a
// protocol engine that frames commands, parses the server's response
// grammar into structured values, and exposes high-level operations on
// folders and messages. Consumers embed it to talk to an IMAP server over
// an already-established byte stream (plain or TLS-wrapped socket); TCP/TLS
// dialing, DNS, SASL beyond plaintext LOGIN, IDLE, and connection pooling
// are all external collaborators.
package imap

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// State is the connection state machine:
// Unconnected -> Connected -> Authenticated -> Selected, and back down
// through CLOSE/UNSELECT or LOGOUT/fatal I/O.
type State int

const (
	StateUnconnected State = iota
	StateConnected
	StateAuthenticated
	StateSelected
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateSelected:
		return "selected"
	default:
		return "unknown"
	}
}

// ParseFlags gates the optional FETCH reshaping work in §4.G.
type ParseFlags struct {
	ParseEnvelope       bool
	ParseBodystructure  bool
	IncludeRawAddresses bool
	DecodeHeaderWords   bool
}

// DefaultParseFlags returns the flag set with envelope/bodystructure
// reshaping on and raw addresses and header-word decoding off. NewSession
// does not apply it: a Config whose ParseFlags is left zero has all four off.
func DefaultParseFlags() ParseFlags {
	return ParseFlags{ParseEnvelope: true, ParseBodystructure: true}
}

// HeaderDecoder decodes RFC 2047 encoded-words in header field bodies. It
// is an injected collaborator: no package-level lazy-init guard, just a value
// wired in at construction. See imap/header for the go-message/charset
// backed implementation.
type HeaderDecoder interface {
	Decode(s string) string
}

// EventFolderChange receives the resolved folder name a mutating verb is
// about to affect (see OnFolderChange).
type EventFolderChange func(folder string)

// Config configures a Session at construction. Either Conn or Host must be
// set, never both (ARGUMENT_INVALID otherwise): Conn adopts an
// already-established stream (the expected path — TLS setup is the
// caller's job); Host is a plain-TCP convenience for callers that don't
// need TLS.
type Config struct {
	Conn Conn
	Host string
	Port int

	// ExpectGreeting defaults to true when dialing via Host, false when
	// adopting an existing Conn. Set explicitly to override.
	ExpectGreeting *bool

	Username string
	Password string

	// UIDMode defaults to true when nil.
	UIDMode *bool

	RootFolder      string
	Separator       byte
	AltRoot         string
	CaseInsensitive bool

	Trace         TraceSink
	LiteralSink   LiteralSink
	HeaderDecoder HeaderDecoder
	Pedantic      bool
	ParseFlags    ParseFlags

	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// Session is the §4.E state machine plus everything it owns: the byte
// stream, tag counter, UID mode, folder rewriter, response-code cache,
// capability map, and callback table.
type Session struct {
	mu sync.Mutex

	conn     Conn
	ownsConn bool
	buf      *buffer
	tok      *tokenizer

	state State

	tag uint64

	uidMode bool
	folder  *folderConfig

	respCodes map[string]Atom
	caps      map[string]bool
	capsKnown bool

	trace         TraceSink
	literalSink   LiteralSink
	headerDecoder HeaderDecoder
	pedantic      bool
	parseFlags    ParseFlags

	currentFolder string

	onFolderChange EventFolderChange

	lastError string
	released  bool
}

// NewSession constructs a Session in state Unconnected and performs the
// initial handshake: if a greeting is expected, it is consumed and the
// state advances to Connected; if Username/Password are set, LOGIN is
// issued and the state advances to Authenticated.
func NewSession(cfg Config) (*Session, error) {
	if (cfg.Conn == nil) == (cfg.Host == "") {
		return nil, newErr(KindArgumentInvalid, "exactly one of Conn or Host must be set", nil)
	}

	var conn Conn
	ownsConn := false
	expectGreeting := cfg.Conn == nil // default true when dialing, false when adopting
	if cfg.ExpectGreeting != nil {
		expectGreeting = *cfg.ExpectGreeting
	}

	if cfg.Conn != nil {
		conn = cfg.Conn
	} else {
		addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		dialTimeout := cfg.DialTimeout
		if dialTimeout <= 0 {
			dialTimeout = 30 * time.Second
		}
		c, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			return nil, newErr(KindIODisconnected, "dial "+addr, err)
		}
		conn = c
		ownsConn = true
	}

	uidMode := true
	if cfg.UIDMode != nil {
		uidMode = *cfg.UIDMode
	}

	trace := cfg.Trace
	if trace == nil {
		trace = nullTrace{}
	}

	s := &Session{
		conn:          conn,
		ownsConn:      ownsConn,
		state:         StateUnconnected,
		tag:           1,
		uidMode:       uidMode,
		folder:        newFolderConfig(cfg.RootFolder, orDefaultSep(cfg.Separator), cfg.AltRoot, cfg.CaseInsensitive),
		respCodes:     make(map[string]Atom),
		caps:          make(map[string]bool),
		trace:         trace,
		literalSink:   cfg.LiteralSink,
		headerDecoder: cfg.HeaderDecoder,
		pedantic:      cfg.Pedantic,
		parseFlags:    cfg.ParseFlags,
	}
	s.buf = newBuffer(conn)
	s.buf.trace = trace
	if cfg.ReadTimeout > 0 {
		s.buf.setTimeout(cfg.ReadTimeout)
	}
	s.tok = newTokenizer(s.buf)

	if expectGreeting {
		if err := s.readGreeting(); err != nil {
			return nil, err
		}
		s.state = StateConnected
	}

	if cfg.Username != "" {
		if err := s.Login(cfg.Username, cfg.Password); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func orDefaultSep(sep byte) byte {
	if sep == 0 {
		return '/'
	}
	return sep
}

// readGreeting consumes the server's initial untagged OK/PREAUTH/BYE line.
func (s *Session) readGreeting() error {
	atoms, err := s.tok.readValue(s.literalSink)
	if err != nil {
		return err
	}
	// First atom of the greeting line is "*".
	if atoms.Text() != "*" {
		return newErr(KindProtocolParse, "missing greeting tag", nil)
	}
	kw, err := s.tok.readValue(s.literalSink)
	if err != nil {
		return err
	}
	switch kw.Text() {
	case "OK", "PREAUTH":
		// drain remainder of the line, allowing response-code recursion
		if err := s.consumeUntaggedRemainder(kw.Text(), nil); err != nil {
			return err
		}
		if kw.Text() == "PREAUTH" {
			s.state = StateAuthenticated
		}
	case "BYE":
		return newErr(KindIODisconnected, "server sent BYE in greeting", nil)
	default:
		return newErr(KindProtocolParse, "unexpected greeting: "+kw.Text(), nil)
	}
	return s.tok.finishLine(s.pedantic)
}

// nextTag returns the current command tag ("A" followed by the decimal
// counter) and increments the counter. Tags are unique and never
// reused within a session.
func (s *Session) nextTag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tag
	s.tag++
	return "A" + strconv.FormatUint(t, 10)
}

// State reports the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// requireState enforces I4's legal-verb gating locally (the parser itself
// does not enforce it, since some servers are lenient).
func (s *Session) requireState(min State) error {
	if s.State() < min {
		return newErr(KindStateInvalid, fmt.Sprintf("requires state >= %s, have %s", min, s.State()), nil)
	}
	return nil
}

// LastError returns the last error string recorded by a façade operation.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Session) recordError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}

// OnFolderChange registers the callback fired synchronously before a
// mutating verb (CREATE/DELETE/RENAME/COPY/APPEND/STORE/EXPUNGE) is sent.
func (s *Session) OnFolderChange(fn EventFolderChange) {
	s.mu.Lock()
	s.onFolderChange = fn
	s.mu.Unlock()
}

func (s *Session) fireFolderChange(folder string) {
	s.mu.Lock()
	fn := s.onFolderChange
	s.mu.Unlock()
	if fn != nil {
		fn(folder)
	}
}

// UIDMode reports whether the session is in UID mode.
func (s *Session) UIDMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uidMode
}

// SetUIDMode toggles UID mode.
func (s *Session) SetUIDMode(on bool) {
	s.mu.Lock()
	s.uidMode = on
	s.mu.Unlock()
}

// responseCode reads a cached untagged-OK response code (this
// cache is written only by the parser, read here by the façade, and
// persists across commands unless explicitly cleared).
func (s *Session) responseCode(name string) (Atom, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.respCodes[lower(name)]
	return a, ok
}

func (s *Session) setResponseCode(name string, val Atom) {
	s.mu.Lock()
	s.respCodes[lower(name)] = val
	s.mu.Unlock()
}

// ClearResponseCodes clears the response-code cache explicitly (callers
// normally never need this — SELECT's side-channel data for instance
// depends on the cache surviving between commands).
func (s *Session) ClearResponseCodes() {
	s.mu.Lock()
	s.respCodes = make(map[string]Atom)
	s.mu.Unlock()
}

func (s *Session) invalidateExistsRecent() {
	s.mu.Lock()
	delete(s.respCodes, "exists")
	delete(s.respCodes, "recent")
	s.mu.Unlock()
}

// Capability returns the memoized capability set, issuing CAPABILITY on
// first call.
func (s *Session) Capability() (map[string]bool, error) {
	if s.isReleased() {
		return nil, newErr(KindStateInvalid, "session has been released", nil)
	}
	s.mu.Lock()
	known := s.capsKnown
	s.mu.Unlock()
	if known {
		s.mu.Lock()
		out := make(map[string]bool, len(s.caps))
		for k, v := range s.caps {
			out[k] = v
		}
		s.mu.Unlock()
		return out, nil
	}
	_, err := s.exec(cmdRequest{verb: "CAPABILITY", collect: "capability"})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.caps))
	for k, v := range s.caps {
		out[k] = v
	}
	return out, nil
}

func (s *Session) setCapabilities(atoms []Atom) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = make(map[string]bool, len(atoms))
	for _, a := range atoms {
		s.caps[lower(a.Text())] = true
	}
	s.capsKnown = true
}

// HasCapability reports whether a (memoized) capability is present, without
// triggering a CAPABILITY round-trip if it hasn't been fetched yet.
func (s *Session) HasCapability(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps[lower(name)]
}

// requireCapability implements §4.I point 5: verbs needing an extension
// consult the memoized capability map and fail locally if absent.
func (s *Session) requireCapability(name string) error {
	if _, err := s.Capability(); err != nil {
		return err
	}
	if !s.HasCapability(name) {
		return newErr(KindStateInvalid, "server does not advertise capability "+name, nil)
	}
	return nil
}

// IsOpen probes the connection: a zero-timeout read that
// times out means the connection is live; one that yields an untagged BYE
// means it's live but closing (session transitions to Unconnected);
// anything else is an unsolicited notification, consumed and ignored.
func (s *Session) IsOpen() bool {
	if s.isReleased() {
		return false
	}
	for {
		ok, err := s.buf.pollReadable(0)
		if err != nil {
			s.setState(StateUnconnected)
			return false
		}
		if !ok {
			return true
		}
		atoms, err := s.tok.readValue(nil)
		if err != nil {
			s.setState(StateUnconnected)
			return false
		}
		if atoms.Text() != "*" {
			// Not well-formed untagged data; treat the connection as dead.
			s.setState(StateUnconnected)
			return false
		}
		kw, err := s.tok.readValue(nil)
		if err != nil {
			s.setState(StateUnconnected)
			return false
		}
		_ = s.tok.finishLine(false)
		if lower(kw.Text()) == "bye" {
			s.setState(StateUnconnected)
			return false
		}
		// Unsolicited alert/notification: ignore, loop to check for more.
	}
}

// Release surrenders ownership of the underlying stream and returns it;
// the Session becomes unusable (every subsequent operation returns
// STATE_INVALID).
func (s *Session) Release() Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	c := s.conn
	s.conn = nil
	return c
}

func (s *Session) isReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Close performs best-effort LOGOUT (if Authenticated/Selected) and closes
// the stream. Any error raised during the LOGOUT attempt is suppressed.
func (s *Session) Close() error {
	if s.isReleased() {
		return nil
	}
	st := s.State()
	if st == StateAuthenticated || st == StateSelected {
		_ = s.Logout()
	}
	s.mu.Lock()
	conn := s.conn
	s.released = true
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		if closer, ok := conn.(interface{ Close() error }); ok {
			return closer.Close()
		}
	}
	return nil
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
