//go:build unix

package nbio_test

import (
	"errors"
	"testing"
	"time"

	"github.com/hyeshik/echidna/internal/nbio"
)

func TestPipeReadWriteRoundTrip(t *testing.T) {
	r, w, err := nbio.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer nbio.Close(r)
	defer nbio.Close(w)

	if err := nbio.SetNonblock(r); err != nil {
		t.Fatalf("setnonblock r: %v", err)
	}
	if err := nbio.SetNonblock(w); err != nil {
		t.Fatalf("setnonblock w: %v", err)
	}

	n, err := nbio.Write(w, []byte("hello"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != 5 {
		t.Fatalf("n=%d want 5", n)
	}

	buf := make([]byte, 16)
	n, err = nbio.Read(r, buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("read=%q want hello", buf[:n])
	}
}

func TestReadWouldBlockOnEmptyPipe(t *testing.T) {
	r, w, err := nbio.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer nbio.Close(r)
	defer nbio.Close(w)
	if err := nbio.SetNonblock(r); err != nil {
		t.Fatalf("setnonblock: %v", err)
	}

	buf := make([]byte, 16)
	_, err = nbio.Read(r, buf)
	if !errors.Is(err, nbio.ErrWouldBlock) {
		t.Fatalf("err=%v want ErrWouldBlock", err)
	}
}

func TestReadEOFAfterWriterCloses(t *testing.T) {
	r, w, err := nbio.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer nbio.Close(r)
	if err := nbio.SetNonblock(r); err != nil {
		t.Fatalf("setnonblock: %v", err)
	}
	if err := nbio.Close(w); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	buf := make([]byte, 16)
	n, err := nbio.Read(r, buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 0 {
		t.Fatalf("n=%d want 0 at EOF", n)
	}
}

func TestPollReportsReadable(t *testing.T) {
	r, w, err := nbio.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer nbio.Close(r)
	defer nbio.Close(w)
	if _, err := nbio.Write(w, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	results, err := nbio.Poll([]nbio.PollFD{{FD: r, Readable: true}}, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(results) != 1 || !results[0].Readable {
		t.Fatalf("results=%v want readable", results)
	}
}
