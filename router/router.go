// Package router implements the fan-out/fan-in record router: a single
// cooperative event loop that reads FASTQ/FASTA records from stdin,
// dispatches them round-robin to a pool of worker processes, and merges
// their output back onto stdout.
package router

import (
	"fmt"
	"time"

	"github.com/hyeshik/echidna/bioframe"
	"github.com/hyeshik/echidna/internal/nbio"
	"github.com/hyeshik/echidna/ringbuf"
	"github.com/hyeshik/echidna/supervisor"
	"github.com/hyeshik/echidna/worker"
)

// Router owns every buffer and handle in the system and drives the
// readiness loop described in SPEC_FULL.md §4.4. It is not safe for
// concurrent use; Run is meant to be called once from the goroutine that
// constructed the Router.
type Router struct {
	opts Options

	stdinFD  int
	stdoutFD int

	inlet       *ringbuf.Buffer
	outlet      *ringbuf.Buffer
	inletFramer *bioframe.Framer

	workers     []*worker.Handle
	rrNext      int
	stdinClosed bool

	sup *supervisor.Supervisor
}

// New constructs a Router over an already-spawned worker pool. stdinFD
// and stdoutFD are the descriptors to read/write; they are set
// non-blocking by New.
func New(stdinFD, stdoutFD int, workers []*worker.Handle, sup *supervisor.Supervisor, opts ...Option) (*Router, error) {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := nbio.SetNonblock(stdinFD); err != nil {
		return nil, fmt.Errorf("%w: stdin: %v", ErrAllocFailure, err)
	}
	if err := nbio.SetNonblock(stdoutFD); err != nil {
		return nil, fmt.Errorf("%w: stdout: %v", ErrAllocFailure, err)
	}

	r := &Router{
		opts:     o,
		stdinFD:  stdinFD,
		stdoutFD: stdoutFD,
		inlet:    ringbuf.New(o.InletSize),
		outlet:   ringbuf.New(o.OutletSize),
		workers:  workers,
		sup:      sup,
	}
	r.inletFramer = bioframe.New(func(d bioframe.Diagnostic) {
		o.Diagnostics(Diagnostic{Kind: d.Kind, WorkerID: -1, LineNo: d.LineNo})
	})
	return r, nil
}

// Run drives the event loop to completion: it returns nil once stdin has
// closed, every buffered record has been flushed through its worker, and
// every worker has been reaped; it returns a non-nil error on any fatal
// condition (SPEC_FULL.md §7).
func (r *Router) Run() error {
	for {
		pollFDs, targets := r.buildPollSet()
		if len(pollFDs) == 0 {
			if !r.anyRunning() {
				return nil
			}
			r.waitForExit()
			continue
		}

		results, err := nbio.Poll(pollFDs, r.opts.PollTimeout)
		if err != nil {
			return r.fatal(fmt.Errorf("echidna: poll: %w", err))
		}

		for i, res := range results {
			if !res.Readable && !res.Writable {
				continue
			}
			if err := r.service(targets[i]); err != nil {
				return err
			}
		}
	}
}

// fatal logs err through the configured logger, if any, before it is
// returned from Run as the loop's terminal error.
func (r *Router) fatal(err error) error {
	if r.opts.Logger != nil {
		r.opts.Logger.Errorf("%v", err)
	}
	return err
}

type targetKind uint8

const (
	targetStdin targetKind = iota
	targetStdout
	targetWorkerOut
	targetWorkerIn
)

type pollTarget struct {
	kind      targetKind
	workerIdx int
}

func (r *Router) buildPollSet() ([]nbio.PollFD, []pollTarget) {
	var fds []nbio.PollFD
	var targets []pollTarget

	if !r.stdinClosed && !r.inlet.IsFull() {
		fds = append(fds, nbio.PollFD{FD: r.stdinFD, Readable: true})
		targets = append(targets, pollTarget{kind: targetStdin})
	}
	if !r.outlet.IsEmpty() {
		fds = append(fds, nbio.PollFD{FD: r.stdoutFD, Writable: true})
		targets = append(targets, pollTarget{kind: targetStdout})
	}
	for i, w := range r.workers {
		if w.Flags&worker.StdoutAlive != 0 && !w.Inbound.IsFull() {
			fds = append(fds, nbio.PollFD{FD: w.StdoutFD, Readable: true})
			targets = append(targets, pollTarget{kind: targetWorkerOut, workerIdx: i})
		}
		if w.Flags&worker.StdinAlive != 0 && !w.Outbound.IsEmpty() {
			fds = append(fds, nbio.PollFD{FD: w.StdinFD, Writable: true})
			targets = append(targets, pollTarget{kind: targetWorkerIn, workerIdx: i})
		}
	}
	return fds, targets
}

func (r *Router) service(t pollTarget) error {
	switch t.kind {
	case targetStdin:
		if err := r.handleStdinReadable(); err != nil {
			return err
		}
	case targetStdout:
		if err := r.handleStdoutWritable(); err != nil {
			return err
		}
	case targetWorkerOut:
		if err := r.handleWorkerStdoutReadable(r.workers[t.workerIdx]); err != nil {
			return err
		}
	case targetWorkerIn:
		if err := r.handleWorkerStdinWritable(r.workers[t.workerIdx]); err != nil {
			return err
		}
	}
	return r.updateFlushTransition(r.workerFromTarget(t))
}

func (r *Router) workerFromTarget(t pollTarget) *worker.Handle {
	if t.kind == targetWorkerOut || t.kind == targetWorkerIn {
		return r.workers[t.workerIdx]
	}
	return nil
}

func (r *Router) handleStdinReadable() error {
	buf := r.inlet.VacantRun()
	n, err := nbio.Read(r.stdinFD, buf)
	if err == nbio.ErrWouldBlock {
		return nil
	}
	if err != nil {
		return r.fatal(fmt.Errorf("echidna: read stdin: %w", err))
	}
	if n == 0 {
		r.stdinClosed = true
	} else {
		r.inlet.CommitWritten(n)
	}
	return r.runInletFramer()
}

func (r *Router) handleStdoutWritable() error {
	buf := r.outlet.FilledRun()
	n, err := nbio.Write(r.stdoutFD, buf)
	if err != nil && err != nbio.ErrWouldBlock {
		return r.fatal(fmt.Errorf("echidna: write stdout: %w", err))
	}
	if n < 0 {
		n = 0
	}
	r.outlet.CommitConsumed(n)
	for _, w := range r.workers {
		if !w.Inbound.IsEmpty() {
			if err := r.runWorkerFramer(w); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Router) handleWorkerStdoutReadable(w *worker.Handle) error {
	buf := w.Inbound.VacantRun()
	n, err := nbio.Read(w.StdoutFD, buf)
	if err == nbio.ErrWouldBlock {
		return nil
	}
	if err != nil {
		return r.fatal(fmt.Errorf("echidna: read worker %d stdout: %w", w.ID, err))
	}
	if n == 0 {
		w.Flags &^= worker.StdoutAlive
	} else {
		w.Inbound.CommitWritten(n)
	}
	return r.runWorkerFramer(w)
}

func (r *Router) handleWorkerStdinWritable(w *worker.Handle) error {
	buf := w.Outbound.FilledRun()
	n, err := nbio.Write(w.StdinFD, buf)
	if err != nil && err != nbio.ErrWouldBlock {
		return r.fatal(fmt.Errorf("echidna: write worker %d stdin: %w", w.ID, err))
	}
	if n < 0 {
		n = 0
	}
	w.Outbound.CommitConsumed(n)
	return r.runInletFramer()
}

// updateFlushTransition closes a RUNNING worker's stdin once the inlet has
// closed and its outbound buffer has drained. w may be nil (when the just
// serviced event was stdin or stdout), in which case every worker is
// checked; otherwise only w is checked. A worker's outbound buffer drains
// only through its own write event, and stdin closes only through a stdin
// event, so each worker is checked in the iteration in which it first
// qualifies, within the one-iteration bound §8 requires.
func (r *Router) updateFlushTransition(w *worker.Handle) error {
	workers := r.workers
	if w != nil {
		workers = []*worker.Handle{w}
	}
	for _, wk := range workers {
		if r.stdinClosed && wk.State() == worker.Running && wk.Outbound.IsEmpty() {
			if err := nbio.Close(wk.StdinFD); err != nil {
				return r.fatal(fmt.Errorf("echidna: close worker %d stdin: %w", wk.ID, err))
			}
			wk.Flags &^= worker.StdinAlive
		}
	}
	return nil
}

func (r *Router) runInletFramer() error {
	if err := r.inletFramer.Scan(r.inlet, r.dispatch); err != nil {
		return r.fatal(fmt.Errorf("echidna: inlet: %w", err))
	}
	return nil
}

func (r *Router) runWorkerFramer(w *worker.Handle) error {
	err := w.InboundFramer.Scan(w.Inbound, func(length int) bool {
		return ringbuf.Transfer(r.outlet, w.Inbound, length) == nil
	})
	w.Lines = w.InboundFramer.LineNo()
	if err != nil {
		return r.fatal(fmt.Errorf("echidna: worker %d: %w", w.ID, err))
	}
	return nil
}

// dispatch is the inlet framer's sink policy: round-robin across
// workers, skipping any whose stdin we've already closed. A worker whose
// stdout has reached EOF but whose stdin is still open is not skipped.
func (r *Router) dispatch(length int) bool {
	n := len(r.workers)
	for i := 0; i < n; i++ {
		idx := (r.rrNext + i) % n
		w := r.workers[idx]
		if w.Flags&worker.StdinAlive == 0 {
			continue
		}
		if err := ringbuf.Transfer(w.Outbound, r.inlet, length); err == nil {
			r.rrNext = (idx + 1) % n
			return true
		}
	}
	return false
}

func (r *Router) anyRunning() bool {
	for _, w := range r.workers {
		if !w.Reaped {
			return true
		}
	}
	return false
}

func (r *Router) waitForExit() {
	select {
	case ex := <-r.sup.Exits():
		r.applyExit(ex)
	case <-time.After(r.opts.PollTimeout):
	}
}

func (r *Router) applyExit(ex supervisor.Exit) {
	for _, w := range r.workers {
		if w.ID == ex.ID {
			w.Reaped = true
			w.ExitErr = ex.Err
			return
		}
	}
}
