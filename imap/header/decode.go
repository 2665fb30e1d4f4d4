// Package header implements imap.HeaderDecoder on top of go-message's
// charset registry, so RFC 2047 encoded-words in ENVELOPE/header fields
// decode correctly even for the long tail of legacy mail charsets that
// net/mime's default decoder doesn't know (per the PST importer's charset
// registration pattern).
package header

import (
	"log"
	"mime"

	"github.com/emersion/go-message/charset"
)

// Decoder decodes RFC 2047 encoded-words to UTF-8. The zero value is ready
// to use.
type Decoder struct {
	// Strict, when true, skips logging decode errors. In both modes a
	// header that fails to decode is returned unchanged.
	Strict bool

	logger *log.Logger
}

// NewDecoder constructs a Decoder; logger may be nil (defaults to the
// standard logger) and is used only to note decode failures when non-strict.
func NewDecoder(logger *log.Logger) *Decoder {
	return &Decoder{logger: logger}
}

func (d *Decoder) log() *log.Logger {
	if d.logger != nil {
		return d.logger
	}
	return log.Default()
}

// Decode implements imap.HeaderDecoder.
func (d *Decoder) Decode(s string) string {
	wd := mime.WordDecoder{CharsetReader: charset.Reader}
	out, err := wd.DecodeHeader(s)
	if err != nil {
		if d.Strict {
			return s
		}
		d.log().Printf("imap/header: decode %q: %v", s, err)
		return s
	}
	return out
}
