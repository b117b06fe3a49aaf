// Package supervisor spawns the worker child processes the router talks
// to and reports their exits back asynchronously, replacing the SIGCHLD
// handler of the original implementation with explicit message passing.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/cloudwego/gopkg/concurrency/gopool"
	"go.uber.org/zap"

	"github.com/hyeshik/echidna/bioframe"
	"github.com/hyeshik/echidna/internal/nbio"
	"github.com/hyeshik/echidna/worker"
)

// Spec describes how to launch one worker. Exactly one of Command or Args
// should be set; if Command is non-empty it takes precedence, matching
// the CLI's -c/--command flag taking precedence over positional args.
type Spec struct {
	Command string   // run via "sh -c Command"
	Args    []string // run directly as Args[0] with Args[1:] as arguments
}

func (s Spec) build() *exec.Cmd {
	if s.Command != "" {
		return exec.Command("/bin/sh", "-c", s.Command)
	}
	return exec.Command(s.Args[0], s.Args[1:]...)
}

// Exit reports that a spawned worker's process has been reaped.
type Exit struct {
	ID  int
	Err error
}

// Options configures a Supervisor.
type Options struct {
	OutboundQueueSize int // router -> worker, i.e. Q_IN
	InboundQueueSize  int // worker -> router, i.e. Q_OUT
	Logger            *zap.SugaredLogger
}

var defaultOptions = Options{
	OutboundQueueSize: 65536,
	InboundQueueSize:  65536,
}

// Option mutates an Options value.
type Option func(*Options)

// WithQueueSizes overrides the per-worker ring buffer capacities.
func WithQueueSizes(outbound, inbound int) Option {
	return func(o *Options) {
		o.OutboundQueueSize = outbound
		o.InboundQueueSize = inbound
	}
}

// WithLogger attaches a logger used to report panics recovered from the
// exit-watch goroutines; without one, panics are only reported to stderr
// by the pool's default handler.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *Options) { o.Logger = log }
}

// Supervisor owns the spawned child processes and the pool of goroutines
// watching them for exit.
type Supervisor struct {
	cmds  []*exec.Cmd
	exits chan Exit
	pool  *gopool.GoPool
	log   *zap.SugaredLogger
}

// Spawn launches n workers per spec and returns their handles plus a
// Supervisor that will report their exits on the returned channel
// (available via Exits). Each handle's descriptors are non-blocking and
// both liveness flags are set before Spawn returns.
func Spawn(n int, spec Spec, diag func(workerID int) func(bioframe.Diagnostic), opts ...Option) ([]*worker.Handle, *Supervisor, error) {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}

	pool := gopool.NewGoPool("echidna-supervisor", gopool.DefaultOption())
	if o.Logger != nil {
		pool.SetPanicHandler(func(_ context.Context, r interface{}) {
			o.Logger.Errorf("echidna: recovered panic in exit-watch goroutine: %v", r)
		})
	}

	sup := &Supervisor{
		exits: make(chan Exit, n),
		pool:  pool,
		log:   o.Logger,
	}

	handles := make([]*worker.Handle, 0, n)
	for i := 0; i < n; i++ {
		h, cmd, err := sup.launch(i, spec, o, diag)
		if err != nil {
			for _, c := range sup.cmds {
				_ = c.Process.Kill()
			}
			return nil, nil, fmt.Errorf("%w: %v", ErrSpawnFailure, err)
		}
		handles = append(handles, h)
		sup.cmds = append(sup.cmds, cmd)
		sup.watch(i, cmd)
	}
	return handles, sup, nil
}

func (s *Supervisor) launch(id int, spec Spec, o Options, diag func(int) func(bioframe.Diagnostic)) (*worker.Handle, *exec.Cmd, error) {
	stdinR, stdinW, err := nbio.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdoutR, stdoutW, err := nbio.Pipe()
	if err != nil {
		nbio.Close(stdinR)
		nbio.Close(stdinW)
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}

	// childStdin/childStdout own stdinR/stdoutW from here on. Per
	// (*os.File).Fd, a descriptor handed to os.NewFile may only be closed
	// through that File's own Close method (or its finalizer); closing the
	// raw fd number behind its back risks a finalizer later double-closing
	// a reused descriptor.
	childStdin := os.NewFile(uintptr(stdinR), "worker-stdin")
	childStdout := os.NewFile(uintptr(stdoutW), "worker-stdout")

	cmd := spec.build()
	cmd.Stdin = childStdin
	cmd.Stdout = childStdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		childStdin.Close()
		childStdout.Close()
		nbio.Close(stdinW)
		nbio.Close(stdoutR)
		return nil, nil, fmt.Errorf("start: %w", err)
	}
	// The child now has its own copies of stdinR/stdoutW; close our ends.
	childStdin.Close()
	childStdout.Close()

	if err := nbio.SetNonblock(stdinW); err != nil {
		return nil, nil, fmt.Errorf("set nonblock (stdin): %w", err)
	}
	if err := nbio.SetNonblock(stdoutR); err != nil {
		return nil, nil, fmt.Errorf("set nonblock (stdout): %w", err)
	}

	var d func(bioframe.Diagnostic)
	if diag != nil {
		d = diag(id)
	}
	h := worker.New(id, o.OutboundQueueSize, o.InboundQueueSize, d)
	h.StdinFD = stdinW
	h.StdoutFD = stdoutR
	return h, cmd, nil
}

func (s *Supervisor) watch(id int, cmd *exec.Cmd) {
	s.pool.Go(func() {
		err := cmd.Wait()
		s.exits <- Exit{ID: id, Err: err}
	})
}

// Exits returns the channel on which worker exits are reported, one value
// per spawned worker, in arbitrary order.
func (s *Supervisor) Exits() <-chan Exit {
	return s.exits
}
