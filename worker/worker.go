// Package worker holds the state a router keeps for one child process: its
// pipe descriptors, its two ring buffers, its liveness flags, and the
// framer that cuts records out of its output.
package worker

import (
	"github.com/hyeshik/echidna/bioframe"
	"github.com/hyeshik/echidna/ringbuf"
)

// Flags is the bitwise combination of a worker's two independent liveness
// signals.
type Flags uint8

const (
	// StdinAlive means the router's write end of the worker's stdin is
	// still open.
	StdinAlive Flags = 1 << iota
	// StdoutAlive means the router has not yet observed EOF on the
	// worker's stdout.
	StdoutAlive
)

// State is a named point in a worker's lifecycle, derived from its flags
// plus whether the supervisor has reaped its process.
type State uint8

const (
	// Running: both channels open.
	Running State = iota
	// Flushing: the router closed the worker's stdin after draining
	// input; the worker may still be producing output.
	Flushing
	// HalfDown: the worker closed its stdout and has not been reaped; its
	// stdin may or may not still be open. Distinct from Terminated because
	// reaping is a separate, asynchronously observed fact.
	HalfDown
	// Terminated: the process has been reaped. State reports it whenever
	// the reaped bit is set, whatever the flags say.
	Terminated
)

// Handle is one child worker's full state, owned exclusively by the
// router.
type Handle struct {
	ID int

	Flags   Flags
	Reaped  bool
	ExitErr error

	StdinFD  int // write end of the child's stdin, kept non-blocking
	StdoutFD int // read end of the child's stdout, kept non-blocking

	Outbound *ringbuf.Buffer // router -> worker
	Inbound  *ringbuf.Buffer // worker -> router

	InboundFramer *bioframe.Framer

	Lines uint64
}

// New constructs a Handle with both flags set and both ring buffers
// allocated, ready for use once its fds are filled in by the supervisor
// that spawned it.
func New(id, outboundCap, inboundCap int, diag func(bioframe.Diagnostic)) *Handle {
	return &Handle{
		ID:            id,
		Flags:         StdinAlive | StdoutAlive,
		Outbound:      ringbuf.New(outboundCap),
		Inbound:       ringbuf.New(inboundCap),
		InboundFramer: bioframe.New(diag),
	}
}

// Runnable reports whether both of the worker's channels are open.
func (h *Handle) Runnable() bool {
	return h.Flags&(StdinAlive|StdoutAlive) == StdinAlive|StdoutAlive
}

// State derives the worker's named lifecycle state from its flags and
// reaped bit.
func (h *Handle) State() State {
	if h.Reaped {
		return Terminated
	}
	switch h.Flags & (StdinAlive | StdoutAlive) {
	case StdinAlive | StdoutAlive:
		return Running
	case StdoutAlive:
		return Flushing
	case StdinAlive:
		return HalfDown
	default:
		return HalfDown
	}
}
