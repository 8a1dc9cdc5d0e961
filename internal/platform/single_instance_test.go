package platform

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clocktimer/internal/core/command"
)

func startGuard(t *testing.T) *InstanceGuard {
	t.Helper()
	guard, err := acquire("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- guard.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("serve: %v", err)
		}
	})
	return guard
}

func TestSecondAcquireFails(t *testing.T) {
	guard := startGuard(t)
	if _, err := acquire(guard.Address(), nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestForwardedCommandReachesSession(t *testing.T) {
	guard := startGuard(t)

	var mu sync.Mutex
	var got []command.Command
	if err := guard.Register(func(_ context.Context, cmd command.Command) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, cmd)
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sent := command.Command{Action: command.ActionStart, ConfiguredTime: 30_000}
	if err := sendCommand(ctx, guard.Address(), sent); err != nil {
		t.Fatalf("send: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != sent {
		t.Errorf("expected %+v, got %v", sent, got)
	}
}

func TestFallbackAndNoSession(t *testing.T) {
	guard := startGuard(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := sendCommand(ctx, guard.Address(), command.Start())
	if err == nil || !strings.Contains(err.Error(), ErrNoSession.Error()) {
		t.Fatalf("expected no session error, got %v", err)
	}

	var fallbackCalls atomic.Int32
	guard.SetFallback(func(context.Context, command.Command) error {
		fallbackCalls.Add(1)
		return nil
	})
	if err := sendCommand(ctx, guard.Address(), command.Start()); err != nil {
		t.Fatalf("send with fallback: %v", err)
	}

	guard.Register(func(context.Context, command.Command) error { return nil })
	if err := sendCommand(ctx, guard.Address(), command.Pause()); err != nil {
		t.Fatalf("send with session: %v", err)
	}
	if err := guard.Unregister(); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if err := sendCommand(ctx, guard.Address(), command.Reset()); err != nil {
		t.Fatalf("send after unregister: %v", err)
	}
	if got := fallbackCalls.Load(); got != 2 {
		t.Errorf("expected fallback twice, got %d", got)
	}
}

func TestSessionErrorsAreReported(t *testing.T) {
	guard := startGuard(t)
	guard.Register(func(context.Context, command.Command) error { return errors.New("controller stopped") })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := sendCommand(ctx, guard.Address(), command.Start())
	if err == nil || !strings.Contains(err.Error(), "controller stopped") {
		t.Errorf("expected session error, got %v", err)
	}
}

func TestPortFromNameIsStable(t *testing.T) {
	first := portFromName("ClockTimer")
	if first != portFromName("ClockTimer") {
		t.Error("expected deterministic port")
	}
	if first < 20000 || first > 39999 {
		t.Errorf("port %d out of range", first)
	}
}
