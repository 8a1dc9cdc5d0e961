package command

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

type recordingTarget struct {
	mu    sync.Mutex
	calls []string
}

func (target *recordingTarget) record(call string) {
	target.mu.Lock()
	defer target.mu.Unlock()
	target.calls = append(target.calls, call)
}

func (target *recordingTarget) Configure(duration time.Duration) {
	target.record("configure " + duration.String())
}
func (target *recordingTarget) Start() { target.record("start") }
func (target *recordingTarget) Pause() { target.record("pause") }
func (target *recordingTarget) Reset() { target.record("reset") }
func (target *recordingTarget) Clear() { target.record("clear") }

func (target *recordingTarget) snapshot() []string {
	target.mu.Lock()
	defer target.mu.Unlock()
	return append([]string(nil), target.calls...)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Command
		wantErr error
	}{
		{"json start", `{"action":"start"}`, Command{Action: ActionStart}, nil},
		{"json with duration", `{"action":"start","configuredTime":5000}`, Command{Action: ActionStart, ConfiguredTime: 5000}, nil},
		{"yaml flow", `{action: reset, configuredTime: 1000}`, Command{Action: ActionReset, ConfiguredTime: 1000}, nil},
		{"yaml block", "action: cancel\n", Command{Action: ActionCancel}, nil},
		{"duration only", `{"configuredTime":3000}`, Command{ConfiguredTime: 3000}, nil},
		{"unknown action", `{"action":"snooze"}`, Command{Action: "snooze"}, ErrUnknownAction},
		{"time overflows duration", `{"action":"start","configuredTime":10000000000000}`, Command{Action: ActionStart, ConfiguredTime: 10_000_000_000_000}, ErrTimeOutOfRange},
		{"largest time", `{"configuredTime":9223372036854}`, Command{ConfiguredTime: MaxConfiguredTime}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{"action": [`)); err == nil {
		t.Error("expected parse error")
	}
}

func TestEncodeDecode(t *testing.T) {
	sent := Command{Action: ActionStart, ConfiguredTime: 90_000}
	data, err := Encode(sent)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if n := len(data); n == 0 || data[n-1] != '\n' {
		t.Fatalf("expected newline terminated document, got %q", data)
	}
	for _, b := range data[:len(data)-1] {
		if b == '\n' {
			t.Fatalf("expected single line document, got %q", data)
		}
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != sent {
		t.Errorf("expected %+v, got %+v", sent, decoded)
	}
}

func TestApplyOrdering(t *testing.T) {
	tests := []struct {
		name    string
		command Command
		want    []string
	}{
		{"start", Start(), []string{"start"}},
		{"pause", Pause(), []string{"pause"}},
		{"configure only", Configure(2 * time.Second), []string{"configure 2s"}},
		{"configure then start", Command{Action: ActionStart, ConfiguredTime: 5000}, []string{"configure 5s", "start"}},
		{"reset then configure", Command{Action: ActionReset, ConfiguredTime: 1000}, []string{"reset", "configure 1s"}},
		{"cancel ignores duration", Command{Action: ActionCancel, ConfiguredTime: 1000}, []string{"reset", "clear"}},
		{"unknown action keeps duration", Command{Action: "snooze", ConfiguredTime: 1000}, []string{"configure 1s"}},
		{"non-positive duration skipped", Command{Action: ActionStart, ConfiguredTime: -5}, []string{"start"}},
		{"overflowing duration skipped", Command{Action: ActionStart, ConfiguredTime: MaxConfiguredTime + 1}, []string{"start"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &recordingTarget{}
			NewChannel(1, nil).apply(target, tt.command)
			if got := target.snapshot(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRunAppliesInArrivalOrder(t *testing.T) {
	channel := NewChannel(8, nil)
	target := &recordingTarget{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	commands := []Command{Configure(time.Second), Start(), Pause(), Start(), Reset()}
	for _, command := range commands {
		if err := channel.Submit(ctx, command); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- channel.Run(ctx, target, nil) }()

	want := []string{"configure 1s", "start", "pause", "start", "reset"}
	deadline := time.Now().Add(2 * time.Second)
	for len(target.snapshot()) < len(want) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out, applied %v", target.snapshot())
		}
		time.Sleep(time.Millisecond)
	}
	if got := target.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestCancelStopsConsumerAndSignals(t *testing.T) {
	channel := NewChannel(4, nil)
	target := &recordingTarget{}
	signalled := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- channel.Run(context.Background(), target, func() { close(signalled) })
	}()

	if err := channel.Submit(context.Background(), Cancel()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case <-signalled:
	case <-time.After(2 * time.Second):
		t.Fatal("cancel was not signalled")
	}
	if err := <-done; err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if got := target.snapshot(); !reflect.DeepEqual(got, []string{"reset", "clear"}) {
		t.Errorf("expected reset then clear, got %v", got)
	}
	if err := channel.Submit(context.Background(), Start()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after cancel, got %v", err)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	channel := NewChannel(1, nil)
	channel.Close()
	channel.Close()
	if err := channel.Submit(context.Background(), Start()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestSubmitHonoursContext(t *testing.T) {
	channel := NewChannel(1, nil)
	if err := channel.Submit(context.Background(), Start()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := channel.Submit(ctx, Pause()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded on a full channel, got %v", err)
	}
}

func TestDurationNeverWraps(t *testing.T) {
	tests := []struct {
		millis int64
		want   time.Duration
	}{
		{1500, 1500 * time.Millisecond},
		{MaxConfiguredTime, time.Duration(MaxConfiguredTime) * time.Millisecond},
		{MaxConfiguredTime + 1, 0},
		{10_000_000_000_000, 0},
	}
	for _, tt := range tests {
		if got := (Command{ConfiguredTime: tt.millis}).Duration(); got != tt.want {
			t.Errorf("Duration(%d): expected %v, got %v", tt.millis, tt.want, got)
		}
		if got := (Command{ConfiguredTime: tt.millis}).Duration(); got < 0 {
			t.Errorf("Duration(%d) wrapped negative: %v", tt.millis, got)
		}
	}
}
