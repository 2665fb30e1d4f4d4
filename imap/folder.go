package imap

import (
	"regexp"
	"strings"
)

// folderConfig is the §4.F folder-name rewriter state: a configured root
// prefix, separator, optional alt-root, and case-insensitivity flag, plus
// the two matchers derived from them.
type folderConfig struct {
	root       string
	sep        byte
	altRoot    string
	caseInsens bool

	m1 *regexp.Regexp // matches names that already live under root (or alt-root)
	m2 *regexp.Regexp // matches names that begin with root+sep, for stripping
}

func newFolderConfig(root string, sep byte, altRoot string, caseInsens bool) *folderConfig {
	fc := &folderConfig{root: root, sep: sep, altRoot: altRoot, caseInsens: caseInsens}
	fc.rebuild()
	return fc
}

func (fc *folderConfig) rebuild() {
	if fc.root == "" {
		fc.m1, fc.m2 = nil, nil
		return
	}
	flags := ""
	if fc.caseInsens {
		flags = "(?i)"
	}
	sep := regexp.QuoteMeta(string(fc.sep))
	root := regexp.QuoteMeta(fc.root)

	m1Pattern := flags + "^" + root + "($|" + sep + ")"
	if fc.altRoot != "" {
		alt := regexp.QuoteMeta(fc.altRoot)
		m1Pattern = flags + "^(" + root + "|" + alt + ")($|" + sep + ")"
	}
	fc.m1 = regexp.MustCompile(m1Pattern)
	fc.m2 = regexp.MustCompile(flags + "^" + root + sep)
}

// reconfigure updates the separator (e.g. when a LIST response reports one
// that differs from what was configured) and regenerates both matchers.
func (fc *folderConfig) reconfigure(sep byte) {
	if fc.sep == sep {
		return
	}
	fc.sep = sep
	fc.rebuild()
}

// rewrite applies the root-folder prefix rule to a
// caller-supplied folder name.
func (fc *folderConfig) rewrite(name string) string {
	if fc.root == "" {
		return name
	}
	if strings.ContainsAny(name, "%*") {
		return name
	}
	if fc.m1 != nil && fc.m1.MatchString(name) {
		return name
	}
	return fc.root + string(fc.sep) + name
}

// strip removes a leading root+sep prefix from a server-reported folder
// name (LIST/LSUB results)
func (fc *folderConfig) strip(name string) string {
	if fc.root == "" || fc.m2 == nil {
		return name
	}
	if loc := fc.m2.FindStringIndex(name); loc != nil && loc[0] == 0 {
		return name[loc[1]:]
	}
	return name
}
