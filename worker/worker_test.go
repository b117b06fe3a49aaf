package worker_test

import (
	"testing"

	"github.com/hyeshik/echidna/worker"
)

func TestNewHandleStartsRunning(t *testing.T) {
	h := worker.New(0, 64, 64, nil)
	if !h.Runnable() {
		t.Fatalf("fresh handle should be runnable")
	}
	if got := h.State(); got != worker.Running {
		t.Fatalf("state=%v want Running", got)
	}
}

func TestStateTransitions(t *testing.T) {
	h := worker.New(1, 64, 64, nil)

	h.Flags &^= worker.StdoutAlive
	if got := h.State(); got != worker.HalfDown {
		t.Fatalf("state=%v want HalfDown after stdout EOF", got)
	}
	if h.State() == worker.Terminated {
		t.Fatalf("stdout EOF alone must not imply Terminated")
	}

	h2 := worker.New(2, 64, 64, nil)
	h2.Flags &^= worker.StdinAlive
	if got := h2.State(); got != worker.Flushing {
		t.Fatalf("state=%v want Flushing after stdin closed", got)
	}

	h2.Flags &^= worker.StdoutAlive
	h2.Reaped = true
	if got := h2.State(); got != worker.Terminated {
		t.Fatalf("state=%v want Terminated once reaped", got)
	}
}
