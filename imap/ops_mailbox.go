package imap

import "strings"

// Select opens folder in read-write mode, advancing to Selected. The
// response-code cache afterward holds PERMANENTFLAGS/UIDVALIDITY/UIDNEXT
// (and any other bracketed response codes) plus EXISTS/RECENT from the
// SELECT response; the untagged FLAGS list is not cached.
func (s *Session) Select(folder string) error {
	return s.selectLike("SELECT", folder)
}

// Examine opens folder read-only; otherwise identical to Select.
func (s *Session) Examine(folder string) error {
	return s.selectLike("EXAMINE", folder)
}

func (s *Session) selectLike(verb, folder string) error {
	if err := s.requireState(StateAuthenticated); err != nil {
		// SELECT while already Selected is legal (re-select); allow that too.
		if s.State() != StateSelected {
			return err
		}
	}
	s.ClearResponseCodes()
	name := s.folder.rewrite(folder)
	_, err := s.exec(cmdRequest{verb: verb, args: []string{astring(name)}})
	if err != nil {
		s.recordError(err)
		return err
	}
	s.setState(StateSelected)
	s.mu.Lock()
	s.currentFolder = name
	s.mu.Unlock()
	return nil
}

// CloseMailbox implements the IMAP CLOSE verb: expunges deleted messages in
// the selected folder and returns to Authenticated. (Named
// CloseMailbox, not Close, since Session.Close already implements the
// io.Closer-style session-disposal method.)
func (s *Session) CloseMailbox() error {
	if err := s.requireState(StateSelected); err != nil {
		return err
	}
	_, err := s.exec(cmdRequest{verb: "CLOSE"})
	s.setState(StateAuthenticated)
	if err != nil {
		s.recordError(err)
		return err
	}
	return nil
}

// Unselect implements the UNSELECT extension: like CLOSE but without the
// implicit expunge. Requires the server to advertise UNSELECT.
func (s *Session) Unselect() error {
	if err := s.requireState(StateSelected); err != nil {
		return err
	}
	if err := s.requireCapability("UNSELECT"); err != nil {
		return err
	}
	_, err := s.exec(cmdRequest{verb: "UNSELECT"})
	s.setState(StateAuthenticated)
	if err != nil {
		s.recordError(err)
		return err
	}
	return nil
}

// Create issues CREATE for folder, firing OnFolderChange first (§4.I
// point 4).
func (s *Session) Create(folder string) error {
	if err := s.requireState(StateAuthenticated); err != nil {
		return err
	}
	name := s.folder.rewrite(folder)
	s.fireFolderChange(name)
	_, err := s.exec(cmdRequest{verb: "CREATE", args: []string{astring(name)}})
	if err != nil {
		s.recordError(err)
	}
	return err
}

// Delete issues DELETE for folder.
func (s *Session) Delete(folder string) error {
	if err := s.requireState(StateAuthenticated); err != nil {
		return err
	}
	name := s.folder.rewrite(folder)
	s.fireFolderChange(name)
	_, err := s.exec(cmdRequest{verb: "DELETE", args: []string{astring(name)}})
	if err != nil {
		s.recordError(err)
	}
	return err
}

// Rename issues RENAME, firing OnFolderChange for both the source and
// destination names.
func (s *Session) Rename(from, to string) error {
	if err := s.requireState(StateAuthenticated); err != nil {
		return err
	}
	fromName := s.folder.rewrite(from)
	toName := s.folder.rewrite(to)
	s.fireFolderChange(fromName)
	s.fireFolderChange(toName)
	_, err := s.exec(cmdRequest{verb: "RENAME", args: []string{astring(fromName), astring(toName)}})
	if err != nil {
		s.recordError(err)
	}
	return err
}

// Subscribe issues SUBSCRIBE for folder.
func (s *Session) Subscribe(folder string) error {
	if err := s.requireState(StateAuthenticated); err != nil {
		return err
	}
	_, err := s.exec(cmdRequest{verb: "SUBSCRIBE", args: []string{astring(s.folder.rewrite(folder))}})
	if err != nil {
		s.recordError(err)
	}
	return err
}

// Unsubscribe issues UNSUBSCRIBE for folder.
func (s *Session) Unsubscribe(folder string) error {
	if err := s.requireState(StateAuthenticated); err != nil {
		return err
	}
	_, err := s.exec(cmdRequest{verb: "UNSUBSCRIBE", args: []string{astring(s.folder.rewrite(folder))}})
	if err != nil {
		s.recordError(err)
	}
	return err
}

// List issues LIST reference pattern, returning the reshaped entries
// with the configured root-folder prefix stripped (§4.F).
func (s *Session) List(reference, pattern string) ([]ListEntry, error) {
	if err := s.requireState(StateAuthenticated); err != nil {
		return nil, err
	}
	resp, err := s.exec(cmdRequest{verb: "LIST", args: []string{astring(reference), astring(pattern)}, collect: "list"})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	return resp.List, nil
}

// Lsub issues LSUB, the subscribed-folder analogue of List.
func (s *Session) Lsub(reference, pattern string) ([]ListEntry, error) {
	if err := s.requireState(StateAuthenticated); err != nil {
		return nil, err
	}
	resp, err := s.exec(cmdRequest{verb: "LSUB", args: []string{astring(reference), astring(pattern)}, collect: "lsub"})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	return resp.LSub, nil
}

// Status issues STATUS folder (items...) for a single folder.
func (s *Session) Status(folder string, items []string) (map[string]uint32, error) {
	if err := s.requireState(StateAuthenticated); err != nil {
		return nil, err
	}
	name := s.folder.rewrite(folder)
	itemList := "(" + strings.Join(items, " ") + ")"
	resp, err := s.exec(cmdRequest{verb: "STATUS", args: []string{astring(name), itemList}, collect: "status"})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	return resp.MailboxStatus[s.folder.strip(name)], nil
}

// BatchStatus implements the batched STATUS operation: it writes N STATUS
// command lines back-to-back (one tag each, no read in between), then reads
// their tagged completions in issue order. Any untagged STATUS response
// seen while draining tag T's completion is attributed to folders[i] by
// construction, since readResponse(tags[i], "status") only returns once
// it has consumed tags[i]'s own tagged OK/NO/BAD — whatever untagged data
// arrived ahead of it on the wire belongs to that same command, per the
// server's own ordering guarantee.
func (s *Session) BatchStatus(folders []string, items []string) (map[string]map[string]uint32, error) {
	if err := s.requireState(StateAuthenticated); err != nil {
		return nil, err
	}
	if s.isReleased() {
		return nil, newErr(KindStateInvalid, "session has been released", nil)
	}
	itemList := "(" + strings.Join(items, " ") + ")"

	tags := make([]string, len(folders))
	for i, folder := range folders {
		name := s.folder.rewrite(folder)
		tag := s.nextTag()
		tags[i] = tag
		line := tag + " STATUS " + astring(name) + " " + itemList
		s.buf.traceWrite([]byte(line + "\r\n"))
		if err := s.buf.writeAll([]byte(line + "\r\n")); err != nil {
			s.recordError(err)
			return nil, err
		}
	}

	out := make(map[string]map[string]uint32, len(folders))
	for _, tag := range tags {
		resp, err := s.readResponse(tag, "status")
		if err != nil {
			s.recordError(err)
			return out, err
		}
		if resp.Status == StatusNo || resp.Status == StatusBad {
			ierr := newErr(KindProtocolNegative, "STATUS: "+resp.Text, nil)
			s.recordError(ierr)
			return out, ierr
		}
		for k, v := range resp.MailboxStatus {
			out[k] = v
		}
	}
	return out, nil
}
