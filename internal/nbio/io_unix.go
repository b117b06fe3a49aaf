//go:build unix

// Package nbio wraps the raw non-blocking read/write/poll syscalls the
// router needs, retrying on EINTR and turning EAGAIN into a single
// sentinel error the caller can test with errors.Is.
package nbio

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned by Read and Write when the underlying
// descriptor has no data (or room) available right now.
var ErrWouldBlock = errors.New("nbio: operation would block")

// SetNonblock puts fd into non-blocking mode.
func SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}

// Close closes fd.
func Close(fd int) error {
	return unix.Close(fd)
}

// Read performs one non-blocking read into p, retrying internally on
// EINTR. A true end-of-file (read returning 0 bytes with no error) is
// reported as (0, nil); callers distinguish it from ErrWouldBlock, which
// never returns a byte count.
func Read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, ErrWouldBlock
		case err != nil:
			return 0, err
		default:
			return n, nil
		}
	}
}

// Write performs one non-blocking write of p, retrying internally on
// EINTR. On EAGAIN it reports zero bytes written rather than a partial
// count, since the kernel rejected the write outright.
func Write(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Write(fd, p)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, ErrWouldBlock
		case err != nil:
			return n, err
		default:
			return n, nil
		}
	}
}

// Pipe creates an anonymous pipe, returning [readFD, writeFD].
func Pipe() (r, w int, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

// PollFD names one descriptor to watch and the direction of interest.
type PollFD struct {
	FD       int
	Readable bool
	Writable bool
}

// PollResult is the outcome of watching one PollFD.
type PollResult struct {
	Readable bool
	Writable bool
}

// Poll blocks until at least one of fds is ready, timeout elapses, or a
// signal interrupts the wait (retried internally). It returns one
// PollResult per input PollFD, in the same order.
func Poll(fds []PollFD, timeout time.Duration) ([]PollResult, error) {
	raw := make([]unix.PollFd, len(fds))
	for i, f := range fds {
		var events int16
		if f.Readable {
			events |= unix.POLLIN
		}
		if f.Writable {
			events |= unix.POLLOUT
		}
		raw[i] = unix.PollFd{Fd: int32(f.FD), Events: events}
	}
	ms := int(timeout / time.Millisecond)
	for {
		_, err := unix.Poll(raw, ms)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}
	results := make([]PollResult, len(fds))
	for i, r := range raw {
		results[i] = PollResult{
			Readable: r.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0,
			Writable: r.Revents&(unix.POLLOUT|unix.POLLERR) != 0,
		}
	}
	return results, nil
}
