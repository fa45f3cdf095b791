package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/mediagate/internal/adapters/engine/memory"
)

func TestSupervisor_ExitsOnEngineDeath(t *testing.T) {
	e := memory.New()
	code := make(chan int, 1)
	s := &Supervisor{Engine: e, Grace: time.Millisecond, Exit: func(c int) { code <- c }}

	go s.Watch(context.Background())
	e.Kill(errors.New("worker exited"))

	select {
	case got := <-code:
		if got != 1 {
			t.Errorf("exit code = %d, want 1", got)
		}
	case <-time.After(time.Second):
		t.Fatal("supervisor did not exit")
	}
}

func TestSupervisor_QuietOnShutdown(t *testing.T) {
	e := memory.New()
	exited := false
	s := &Supervisor{Engine: e, Exit: func(int) { exited = true }}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Watch(ctx)
	_ = e.Close()

	if exited {
		t.Error("supervisor exited after a clean shutdown")
	}
}

func TestKeyLock_Serializes(t *testing.T) {
	var k keyLock
	unlock := k.lock("a")

	acquired := make(chan struct{})
	go func() {
		u := k.lock("a")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	other := k.lock("b")
	other()

	unlock()
	<-acquired
	// the goroutine unlocks right after signaling
	deadline := time.Now().Add(time.Second)
	for k.size() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if k.size() != 0 {
		t.Errorf("size() = %d, want 0", k.size())
	}
}
