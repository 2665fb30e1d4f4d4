package imap

import (
	"net"
	"testing"
)

func newTokenizerOverBytes(t *testing.T, data string) *tokenizer {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	go func() {
		server.Write([]byte(data))
	}()
	return newTokenizer(newBuffer(client))
}

func TestTokenizerQuotedStringEscapes(t *testing.T) {
	tok := newTokenizerOverBytes(t, "\"he said \\\"hi\\\"\" rest\r\n")
	a, err := tok.readValue(nil)
	if err != nil {
		t.Fatalf("readValue: %v", err)
	}
	if a.Kind != AtomQuoted || a.Text() != `he said "hi"` {
		t.Fatalf("got %#v", a)
	}
	rest, err := tok.readValue(nil)
	if err != nil {
		t.Fatalf("readValue rest: %v", err)
	}
	if rest.Text() != "rest" {
		t.Fatalf("rest = %q", rest.Text())
	}
}

func TestTokenizerNilAtom(t *testing.T) {
	tok := newTokenizerOverBytes(t, "NIL\r\n")
	a, err := tok.readValue(nil)
	if err != nil {
		t.Fatalf("readValue: %v", err)
	}
	if !a.IsNil() {
		t.Fatalf("expected NIL, got %#v", a)
	}
}

func TestTokenizerNestedList(t *testing.T) {
	tok := newTokenizerOverBytes(t, "(FOO (BAR BAZ) QUX)\r\n")
	a, err := tok.readValue(nil)
	if err != nil {
		t.Fatalf("readValue: %v", err)
	}
	if a.Kind != AtomList || len(a.List) != 3 {
		t.Fatalf("got %#v", a)
	}
	if a.List[0].Text() != "FOO" || a.List[2].Text() != "QUX" {
		t.Fatalf("unexpected outer items: %#v", a.List)
	}
	inner := a.List[1]
	if inner.Kind != AtomList || len(inner.List) != 2 {
		t.Fatalf("inner list = %#v", inner)
	}
	if inner.List[0].Text() != "BAR" || inner.List[1].Text() != "BAZ" {
		t.Fatalf("inner items = %#v", inner.List)
	}
}

func TestTokenizerLiteralInMemory(t *testing.T) {
	tok := newTokenizerOverBytes(t, "{5}\r\nHello rest\r\n")
	a, err := tok.readValue(nil)
	if err != nil {
		t.Fatalf("readValue literal: %v", err)
	}
	if a.Kind != AtomLiteral || a.Text() != "Hello" {
		t.Fatalf("got %#v", a)
	}
	rest, err := tok.readValue(nil)
	if err != nil {
		t.Fatalf("readValue rest: %v", err)
	}
	if rest.Text() != "rest" {
		t.Fatalf("rest = %q, want %q", rest.Text(), "rest")
	}
}

func TestTokenizerLiteralStreamsToSink(t *testing.T) {
	tok := newTokenizerOverBytes(t, "{12}\r\nHello\r\nWorld\r\n")
	sink := &recordingSink{name: "dest"}
	a, err := tok.readValue(sink)
	if err != nil {
		t.Fatalf("readValue: %v", err)
	}
	if !a.Streamed || a.LiteralFile != "dest" {
		t.Fatalf("got %#v", a)
	}
	if string(sink.buf) != "Hello\r\nWorld" {
		t.Fatalf("sink = %q", sink.buf)
	}
}

func TestTokenizerReadIntegerRun(t *testing.T) {
	tok := newTokenizerOverBytes(t, "1 2 3 4\r\n")
	nums, err := tok.readIntegerRun()
	if err != nil {
		t.Fatalf("readIntegerRun: %v", err)
	}
	want := []uint32{1, 2, 3, 4}
	if len(nums) != len(want) {
		t.Fatalf("nums = %v, want %v", nums, want)
	}
	for i := range want {
		if nums[i] != want[i] {
			t.Fatalf("nums = %v, want %v", nums, want)
		}
	}
}

func TestTokenizerReadIntegerRunStopsAtNonNumeric(t *testing.T) {
	tok := newTokenizerOverBytes(t, "10 20 (MODSEQ 123)\r\n")
	nums, err := tok.readIntegerRun()
	if err != nil {
		t.Fatalf("readIntegerRun: %v", err)
	}
	if len(nums) != 2 || nums[0] != 10 || nums[1] != 20 {
		t.Fatalf("nums = %v", nums)
	}
	// The cursor should have rewound to the unconsumed "(MODSEQ 123)".
	v, err := tok.readValue(nil)
	if err != nil {
		t.Fatalf("readValue remainder: %v", err)
	}
	if v.Kind != AtomList || len(v.List) != 2 || v.List[0].Text() != "MODSEQ" {
		t.Fatalf("remainder = %#v", v)
	}
}
