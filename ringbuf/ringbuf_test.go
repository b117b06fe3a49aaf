package ringbuf_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hyeshik/echidna/ringbuf"
)

func TestEmptyBuffer(t *testing.T) {
	b := ringbuf.New(8)
	if !b.IsEmpty() {
		t.Fatalf("new buffer is not empty")
	}
	if b.Occupancy() != 0 {
		t.Fatalf("occupancy=%d want 0", b.Occupancy())
	}
	if b.Vacancy() != b.Cap() {
		t.Fatalf("vacancy=%d want %d", b.Vacancy(), b.Cap())
	}
}

func TestPutAndFilledRun(t *testing.T) {
	b := ringbuf.New(8)
	if err := b.Put([]byte("hello")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got := b.FilledRun(); !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("filled=%q want hello", got)
	}
	b.CommitConsumed(5)
	if !b.IsEmpty() {
		t.Fatalf("expected empty after consuming all bytes")
	}
}

func TestPutNoSpace(t *testing.T) {
	b := ringbuf.New(4)
	if err := b.Put([]byte("abcde")); !errors.Is(err, ringbuf.ErrNoSpace) {
		t.Fatalf("err=%v want ErrNoSpace", err)
	}
	if b.Occupancy() != 0 {
		t.Fatalf("failed put must not mutate the buffer, occupancy=%d", b.Occupancy())
	}
}

func TestWraparoundVacantAndFilledRuns(t *testing.T) {
	b := ringbuf.New(8)
	if err := b.Put([]byte("123456")); err != nil {
		t.Fatalf("put: %v", err)
	}
	b.CommitConsumed(6)
	// front and rear now both at 6 (mod 9); writing again wraps the rear.
	if err := b.Put([]byte("abcdef")); err != nil {
		t.Fatalf("put after wrap: %v", err)
	}
	if b.Occupancy() != 6 {
		t.Fatalf("occupancy=%d want 6", b.Occupancy())
	}
	var got []byte
	for i := 0; i < b.Occupancy(); i++ {
		got = append(got, b.At(i))
	}
	if !bytes.Equal(got, []byte("abcdef")) {
		t.Fatalf("At-scanned bytes=%q want abcdef", got)
	}
}

func TestIsFull(t *testing.T) {
	b := ringbuf.New(4)
	if err := b.Put([]byte("abcd")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !b.IsFull() {
		t.Fatalf("expected full after filling to capacity")
	}
	if err := b.Put([]byte("x")); !errors.Is(err, ringbuf.ErrNoSpace) {
		t.Fatalf("err=%v want ErrNoSpace", err)
	}
}

func TestTransferContiguous(t *testing.T) {
	src := ringbuf.New(16)
	dst := ringbuf.New(16)
	if err := src.Put([]byte("record1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := ringbuf.Transfer(dst, src, 7); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if src.Occupancy() != 0 {
		t.Fatalf("src occupancy=%d want 0", src.Occupancy())
	}
	if got := dst.FilledRun(); !bytes.Equal(got, []byte("record1")) {
		t.Fatalf("dst filled=%q want record1", got)
	}
}

func TestTransferWraparoundSource(t *testing.T) {
	src := ringbuf.New(8)
	dst := ringbuf.New(8)
	if err := src.Put([]byte("123456")); err != nil {
		t.Fatalf("put: %v", err)
	}
	src.CommitConsumed(6)
	if err := src.Put([]byte("abcdef")); err != nil {
		t.Fatalf("put after wrap: %v", err)
	}
	if err := ringbuf.Transfer(dst, src, 6); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	var got []byte
	for i := 0; i < dst.Occupancy(); i++ {
		got = append(got, dst.At(i))
	}
	if !bytes.Equal(got, []byte("abcdef")) {
		t.Fatalf("transferred bytes=%q want abcdef", got)
	}
}

func TestTransferNoSpaceLeavesBothBuffersUntouched(t *testing.T) {
	src := ringbuf.New(16)
	dst := ringbuf.New(4)
	if err := src.Put([]byte("toolong")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := ringbuf.Transfer(dst, src, 7); !errors.Is(err, ringbuf.ErrNoSpace) {
		t.Fatalf("err=%v want ErrNoSpace", err)
	}
	if src.Occupancy() != 7 {
		t.Fatalf("src occupancy=%d want 7 (untouched)", src.Occupancy())
	}
	if dst.Occupancy() != 0 {
		t.Fatalf("dst occupancy=%d want 0 (untouched)", dst.Occupancy())
	}
}

func TestVacantRunCapsAtSentinelWhenFrontIsZero(t *testing.T) {
	b := ringbuf.New(4)
	if got, want := len(b.VacantRun()), b.Cap(); got != want {
		t.Fatalf("vacant run len=%d want %d", got, want)
	}
}
