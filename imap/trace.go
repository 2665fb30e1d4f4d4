package imap

import (
	"bytes"
	"io"
	"log"
	"regexp"
)

// TraceSink receives a copy of each command line written to and each
// response line read from the wire, after password masking. Literal
// payloads are not copied: a written literal is traced as a
// "<N literal bytes>" note. Adapter constructors below cover the shapes the source
// accepted (a stream, a callback, a scalar buffer, an stderr toggle) as one
// small interface
type TraceSink interface {
	Write(p []byte)
}

type writerTrace struct{ w io.Writer }

// NewWriterTraceSink adapts any io.Writer (a file, os.Stderr, a bytes.Buffer) into a TraceSink.
func NewWriterTraceSink(w io.Writer) TraceSink { return &writerTrace{w: w} }

func (t *writerTrace) Write(p []byte) { t.w.Write(p) }

type funcTrace struct{ fn func([]byte) }

// NewFuncTraceSink adapts a callback into a TraceSink.
func NewFuncTraceSink(fn func([]byte)) TraceSink { return &funcTrace{fn: fn} }

func (t *funcTrace) Write(p []byte) { t.fn(p) }

type logTrace struct{ l *log.Logger }

// NewLogTraceSink adapts a stdlib *log.Logger into a TraceSink, the way the
// teacher's packages use bare log.Printf for every ambient concern.
func NewLogTraceSink(l *log.Logger) TraceSink {
	if l == nil {
		l = log.Default()
	}
	return &logTrace{l: l}
}

func (t *logTrace) Write(p []byte) {
	t.l.Printf("imap: %s", bytes.TrimRight(p, "\r\n"))
}

// nullTrace discards everything; used when no sink is configured.
type nullTrace struct{}

func (nullTrace) Write([]byte) {}

var reLoginPassword = regexp.MustCompile(`(?i)^(\*?\s*\S+\s+LOGIN\s+\S+\s+)(".*"|\{\d+\+?\}\r?\n\S*|\S+)(\r?\n)?$`)

// maskLogin rewrites a serialized LOGIN command line so the password never
// reaches the trace sink
func maskLogin(line []byte) []byte {
	if !bytes.Contains(bytes.ToUpper(line), []byte("LOGIN")) {
		return line
	}
	if m := reLoginPassword.FindSubmatch(line); m != nil {
		out := append([]byte{}, m[1]...)
		out = append(out, []byte(`"****"`)...)
		out = append(out, m[3]...)
		return out
	}
	return line
}
