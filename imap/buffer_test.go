package imap

import (
	"net"
	"testing"
	"time"
)

func pipePair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestBufferReadLineSplicesAcrossFills(t *testing.T) {
	client, server := pipePair(t)
	b := newBuffer(client)

	go func() {
		server.Write([]byte("A1 OK"))
		time.Sleep(5 * time.Millisecond)
		server.Write([]byte(" done\r\ntrailing"))
	}()

	line, err := b.readLine()
	if err != nil {
		t.Fatalf("readLine: %v", err)
	}
	if string(line) != "A1 OK done" {
		t.Fatalf("line = %q, want %q", line, "A1 OK done")
	}

	rest, err := b.readExact(7)
	if err != nil {
		t.Fatalf("readExact: %v", err)
	}
	if string(rest) != "trailin" {
		t.Fatalf("rest = %q, want %q", rest, "trailin")
	}
}

func TestBufferReadExactIsBinarySafe(t *testing.T) {
	client, server := pipePair(t)
	b := newBuffer(client)

	payload := []byte("hello\r\n\x00world")
	go func() {
		server.Write(payload)
		server.Write([]byte("after\r\n"))
	}()

	got, err := b.readExact(len(payload))
	if err != nil {
		t.Fatalf("readExact: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}

	line, err := b.readLine()
	if err != nil {
		t.Fatalf("readLine after literal: %v", err)
	}
	if string(line) != "after" {
		t.Fatalf("line after literal = %q, want %q", line, "after")
	}
}

type recordingSink struct {
	name string
	buf  []byte
}

func (s *recordingSink) Write(p []byte) (int, error) { s.buf = append(s.buf, p...); return len(p), nil }
func (s *recordingSink) Name() string                { return s.name }

func TestBufferCopyExactStreamsToSink(t *testing.T) {
	client, server := pipePair(t)
	b := newBuffer(client)

	go func() {
		server.Write([]byte("0123456789"))
	}()

	sink := &recordingSink{name: "test-sink"}
	if err := b.copyExact(10, sink); err != nil {
		t.Fatalf("copyExact: %v", err)
	}
	if string(sink.buf) != "0123456789" {
		t.Fatalf("sink contents = %q", sink.buf)
	}
}

func TestBufferReadLineTimesOut(t *testing.T) {
	client, _ := pipePair(t)
	b := newBuffer(client)
	b.setTimeout(20 * time.Millisecond)

	_, err := b.readLine()
	if err == nil {
		t.Fatal("expected timeout error")
	}
	ierr, ok := AsError(err)
	if !ok || ierr.Kind != KindIOTimeout {
		t.Fatalf("err = %v, want KindIOTimeout", err)
	}
}

func TestBufferDisconnectOnClose(t *testing.T) {
	client, server := pipePair(t)
	b := newBuffer(client)
	server.Close()

	_, err := b.readLine()
	if err == nil {
		t.Fatal("expected disconnect error")
	}
	ierr, ok := AsError(err)
	if !ok || ierr.Kind != KindIODisconnected {
		t.Fatalf("err = %v, want KindIODisconnected", err)
	}
}

func TestBufferPollReadable(t *testing.T) {
	client, server := pipePair(t)
	b := newBuffer(client)

	ok, err := b.pollReadable(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("pollReadable: %v", err)
	}
	if ok {
		t.Fatal("expected not readable yet")
	}

	go server.Write([]byte("* OK\r\n"))
	time.Sleep(15 * time.Millisecond)

	ok, err = b.pollReadable(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("pollReadable: %v", err)
	}
	if !ok {
		t.Fatal("expected readable after server write")
	}
}
