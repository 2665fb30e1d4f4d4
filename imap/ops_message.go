package imap

import "strings"

// uidVerb prepends "UID " to verb when UID mode is on.
func (s *Session) uidVerb(verb string) string {
	if s.UIDMode() {
		return "UID " + verb
	}
	return verb
}

// Fetch issues (UID) FETCH idSet (items...) against the selected folder and
// returns the reshaped per-message records, keyed by UID when UID mode is
// on (§4.G's UID-remapping rule).
func (s *Session) Fetch(idSet string, items []string) (map[uint32]FetchRecord, error) {
	if err := s.requireState(StateSelected); err != nil {
		return nil, err
	}
	itemList := "(" + strings.Join(items, " ") + ")"
	resp, err := s.exec(cmdRequest{
		verb:    s.uidVerb("FETCH"),
		args:    []string{idSet, itemList},
		collect: "fetch",
	})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	return resp.Fetch, nil
}

// Search issues (UID) SEARCH criteria and returns the matching id list
// (UIDs when UID mode is on).
func (s *Session) Search(criteria []string) ([]uint32, error) {
	if err := s.requireState(StateSelected); err != nil {
		return nil, err
	}
	resp, err := s.exec(cmdRequest{verb: s.uidVerb("SEARCH"), args: criteria, collect: "search"})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	return resp.Search, nil
}

// Sort issues (UID) SORT (keys) charset criteria, requiring the SORT
// capability.
func (s *Session) Sort(sortKeys []string, charset string, criteria []string) ([]uint32, error) {
	if err := s.requireState(StateSelected); err != nil {
		return nil, err
	}
	if err := s.requireCapability("SORT"); err != nil {
		return nil, err
	}
	args := append([]string{"(" + strings.Join(sortKeys, " ") + ")", charset}, criteria...)
	resp, err := s.exec(cmdRequest{verb: s.uidVerb("SORT"), args: args, collect: "sort"})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	return resp.Sort, nil
}

// Thread issues (UID) THREAD algorithm charset criteria, requiring the
// THREAD capability (actually advertised as THREAD=<algorithm>, checked
// loosely here as just "THREAD" prefix presence).
func (s *Session) Thread(algorithm, charset string, criteria []string) ([]Atom, error) {
	if err := s.requireState(StateSelected); err != nil {
		return nil, err
	}
	caps, err := s.Capability()
	if err != nil {
		return nil, err
	}
	hasThread := false
	for name := range caps {
		if strings.HasPrefix(name, "thread") {
			hasThread = true
			break
		}
	}
	if !hasThread {
		return nil, newErr(KindStateInvalid, "server does not advertise a THREAD capability", nil)
	}
	args := append([]string{algorithm, charset}, criteria...)
	resp, err := s.exec(cmdRequest{verb: s.uidVerb("THREAD"), args: args, collect: "thread"})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	return resp.Thread, nil
}

// Store issues (UID) STORE idSet flagAction (flags...), e.g. flagAction
// "+FLAGS" / "-FLAGS" / "FLAGS" (optionally suffixed ".SILENT"). Fires
// OnFolderChange since STORE mutates folder contents (§4.I point 4).
func (s *Session) Store(idSet, flagAction string, flags []string) (map[uint32]FetchRecord, error) {
	if err := s.requireState(StateSelected); err != nil {
		return nil, err
	}
	s.fireFolderChange(s.currentFolder)
	flagList := "(" + strings.Join(flags, " ") + ")"
	resp, err := s.exec(cmdRequest{
		verb:    s.uidVerb("STORE"),
		args:    []string{idSet, flagAction, flagList},
		collect: "fetch",
	})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	return resp.Fetch, nil
}

// Copy issues (UID) COPY idSet destFolder. The UIDPLUS COPYUID response
// code (if the server sent one) is readable afterward via the response-code
// cache under "copyuid". Fires OnFolderChange for destFolder.
func (s *Session) Copy(idSet, destFolder string) error {
	if err := s.requireState(StateSelected); err != nil {
		return err
	}
	dest := s.folder.rewrite(destFolder)
	s.fireFolderChange(dest)
	_, err := s.exec(cmdRequest{verb: s.uidVerb("COPY"), args: []string{idSet, astring(dest)}})
	if err != nil {
		s.recordError(err)
	}
	return err
}

// Expunge issues EXPUNGE, invalidating the cached exists/recent counts
// afterward and firing OnFolderChange.
func (s *Session) Expunge() error {
	if err := s.requireState(StateSelected); err != nil {
		return err
	}
	s.fireFolderChange(s.currentFolder)
	_, err := s.exec(cmdRequest{verb: "EXPUNGE"})
	s.invalidateExistsRecent()
	if err != nil {
		s.recordError(err)
	}
	return err
}

// UIDExpunge issues UID EXPUNGE idSet (UIDPLUS, RFC 2359): expunges only
// the named messages rather than all \Deleted messages.
func (s *Session) UIDExpunge(idSet string) error {
	if err := s.requireState(StateSelected); err != nil {
		return err
	}
	if err := s.requireCapability("UIDPLUS"); err != nil {
		return err
	}
	s.fireFolderChange(s.currentFolder)
	_, err := s.exec(cmdRequest{verb: "UID EXPUNGE", args: []string{idSet}})
	s.invalidateExistsRecent()
	if err != nil {
		s.recordError(err)
	}
	return err
}

// Append issues APPEND destFolder (flags) [date] message, streaming message
// as a literal through the continuation-prompt handshake (§4.D). Fires
// OnFolderChange for destFolder. The UIDPLUS APPENDUID response code, if
// sent, is readable afterward via the response-code cache under
// "appenduid".
func (s *Session) Append(destFolder string, flags []string, internalDate string, message []byte) error {
	if err := s.requireState(StateAuthenticated); err != nil {
		if s.State() != StateSelected {
			return err
		}
	}
	dest := s.folder.rewrite(destFolder)
	s.fireFolderChange(dest)

	args := []string{astring(dest)}
	if len(flags) > 0 {
		args = append(args, "("+strings.Join(flags, " ")+")")
	}
	if internalDate != "" {
		args = append(args, astring(internalDate))
	}
	_, err := s.exec(cmdRequest{verb: "APPEND", args: args, literalArgs: [][]byte{message}})
	if err != nil {
		s.recordError(err)
	}
	return err
}

// Check issues CHECK, a no-op checkpoint hint to the server.
func (s *Session) Check() error {
	if err := s.requireState(StateSelected); err != nil {
		return err
	}
	_, err := s.exec(cmdRequest{verb: "CHECK"})
	if err != nil {
		s.recordError(err)
	}
	return err
}

// Noop issues NOOP, a convenient way to pump untagged updates (new EXISTS/
// EXPUNGE counts, etc.) without side effects.
func (s *Session) Noop() error {
	if err := s.requireState(StateConnected); err != nil {
		return err
	}
	_, err := s.exec(cmdRequest{verb: "NOOP"})
	if err != nil {
		s.recordError(err)
	}
	return err
}
