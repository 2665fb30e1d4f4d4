package imap

import "strings"

// Namespace issues NAMESPACE (RFC 2342), memoizing the result in the
// response-code cache under "namespace" on first call (§4.E).
func (s *Session) Namespace() (*NamespaceData, error) {
	if err := s.requireCapability("NAMESPACE"); err != nil {
		return nil, err
	}
	if cached, ok := s.responseCode("namespace"); ok {
		items := cached.Items()
		if len(items) == 3 {
			return &NamespaceData{Personal: items[0], Other: items[1], Shared: items[2]}, nil
		}
	}
	resp, err := s.exec(cmdRequest{verb: "NAMESPACE", collect: "namespace"})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	if resp.Namespace != nil {
		s.setResponseCode("namespace", list([]Atom{resp.Namespace.Personal, resp.Namespace.Other, resp.Namespace.Shared}))
	}
	return resp.Namespace, nil
}

// GetQuotaRoot issues GETQUOTAROOT folder (RFC 2087).
func (s *Session) GetQuotaRoot(folder string) ([]string, []QuotaEntry, error) {
	if err := s.requireCapability("QUOTA"); err != nil {
		return nil, nil, err
	}
	resp, err := s.exec(cmdRequest{
		verb:    "GETQUOTAROOT",
		args:    []string{astring(s.folder.rewrite(folder))},
		collect: "quotaroot",
	})
	if err != nil {
		s.recordError(err)
		return nil, nil, err
	}
	return resp.QuotaRoot, resp.Quota, nil
}

// GetQuota issues GETQUOTA quotaRoot.
func (s *Session) GetQuota(quotaRoot string) ([]QuotaEntry, error) {
	if err := s.requireCapability("QUOTA"); err != nil {
		return nil, err
	}
	resp, err := s.exec(cmdRequest{verb: "GETQUOTA", args: []string{astring(quotaRoot)}, collect: "quota"})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	return resp.Quota, nil
}

// SetQuota issues SETQUOTA quotaRoot (resource limit ...).
func (s *Session) SetQuota(quotaRoot string, limits map[string]uint32) error {
	if err := s.requireCapability("QUOTA"); err != nil {
		return err
	}
	parts := make([]string, 0, len(limits)*2)
	for resource, limit := range limits {
		parts = append(parts, strings.ToUpper(resource), itoa(limit))
	}
	_, err := s.exec(cmdRequest{verb: "SETQUOTA", args: []string{astring(quotaRoot), "(" + strings.Join(parts, " ") + ")"}})
	if err != nil {
		s.recordError(err)
	}
	return err
}

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// SetACL issues SETACL folder identifier rights (RFC 2086/4314).
func (s *Session) SetACL(folder, identifier, rights string) error {
	if err := s.requireCapability("ACL"); err != nil {
		return err
	}
	name := s.folder.rewrite(folder)
	_, err := s.exec(cmdRequest{verb: "SETACL", args: []string{astring(name), astring(identifier), astring(rights)}})
	if err != nil {
		s.recordError(err)
	}
	return err
}

// DeleteACL issues DELETEACL folder identifier.
func (s *Session) DeleteACL(folder, identifier string) error {
	if err := s.requireCapability("ACL"); err != nil {
		return err
	}
	name := s.folder.rewrite(folder)
	_, err := s.exec(cmdRequest{verb: "DELETEACL", args: []string{astring(name), astring(identifier)}})
	if err != nil {
		s.recordError(err)
	}
	return err
}

// GetACL issues GETACL folder, returning the identifier->rights map.
func (s *Session) GetACL(folder string) (map[string]string, error) {
	if err := s.requireCapability("ACL"); err != nil {
		return nil, err
	}
	name := s.folder.rewrite(folder)
	resp, err := s.exec(cmdRequest{verb: "GETACL", args: []string{astring(name)}, collect: "acl"})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	for _, entry := range resp.ACL {
		if entry.Mailbox == s.folder.strip(name) {
			return entry.Rights, nil
		}
	}
	return nil, nil
}

// ListRights issues LISTRIGHTS folder identifier.
func (s *Session) ListRights(folder, identifier string) ([]Atom, error) {
	if err := s.requireCapability("ACL"); err != nil {
		return nil, err
	}
	name := s.folder.rewrite(folder)
	resp, err := s.exec(cmdRequest{verb: "LISTRIGHTS", args: []string{astring(name), astring(identifier)}})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	if cached, ok := s.responseCode("listrights"); ok {
		return cached.Items(), nil
	}
	_ = resp
	return nil, nil
}

// MyRights issues MYRIGHTS folder.
func (s *Session) MyRights(folder string) (string, error) {
	if err := s.requireCapability("ACL"); err != nil {
		return "", err
	}
	name := s.folder.rewrite(folder)
	_, err := s.exec(cmdRequest{verb: "MYRIGHTS", args: []string{astring(name)}})
	if err != nil {
		s.recordError(err)
		return "", err
	}
	if cached, ok := s.responseCode("myrights"); ok {
		return cached.Text(), nil
	}
	return "", nil
}

// SetAnnotation issues SETANNOTATION folder entry (attribute value ...)
// (ANNOTATEMORE draft).
func (s *Session) SetAnnotation(folder, entry string, attrs map[string]string) error {
	if err := s.requireCapability("ANNOTATEMORE"); err != nil {
		return err
	}
	name := s.folder.rewrite(folder)
	parts := make([]string, 0, len(attrs)*2)
	for attr, val := range attrs {
		parts = append(parts, astring(attr), astring(val))
	}
	args := []string{astring(name), astring(entry), "(" + strings.Join(parts, " ") + ")"}
	_, err := s.exec(cmdRequest{verb: "SETANNOTATION", args: args})
	if err != nil {
		s.recordError(err)
	}
	return err
}

// GetAnnotation issues GETANNOTATION folder entry attribute.
func (s *Session) GetAnnotation(folder, entry, attribute string) ([]Atom, error) {
	if err := s.requireCapability("ANNOTATEMORE"); err != nil {
		return nil, err
	}
	name := s.folder.rewrite(folder)
	resp, err := s.exec(cmdRequest{
		verb: "GETANNOTATION",
		args: []string{astring(name), astring(entry), astring(attribute)},
	})
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	if cached, ok := s.responseCode("annotation"); ok {
		return cached.Items(), nil
	}
	_ = resp
	return nil, nil
}
