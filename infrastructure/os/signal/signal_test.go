package signal

import (
	"os"
	"testing"
	"time"
)

func TestInterruptListener(t *testing.T) {
	interrupt := InterruptListener()
	if InterruptRequested(interrupt) {
		t.Fatalf("InterruptRequested: got true before any signal")
	}

	process, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess: %v", err)
	}
	err = process.Signal(os.Interrupt)
	if err != nil {
		t.Skipf("sending an interrupt is not supported here: %v", err)
	}

	select {
	case <-interrupt:
	case <-time.After(5 * time.Second):
		t.Fatalf("the interrupt channel was not closed after an interrupt")
	}
	if !InterruptRequested(interrupt) {
		t.Fatalf("InterruptRequested: got false after an interrupt")
	}

	// A second interrupt is consumed instead of killing the process.
	err = process.Signal(os.Interrupt)
	if err != nil {
		t.Fatalf("Signal: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
}
