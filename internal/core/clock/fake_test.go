package clock

import (
	"testing"
	"time"
)

func TestFakeTickerFiresOnAdvance(t *testing.T) {
	start := time.Unix(0, 0)
	fake := NewFake(start)
	ticker := fake.NewTicker(100 * time.Millisecond)

	fake.Advance(50 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired before its period elapsed")
	default:
	}

	fake.Advance(50 * time.Millisecond)
	select {
	case got := <-ticker.C():
		if want := start.Add(100 * time.Millisecond); !got.Equal(want) {
			t.Errorf("expected tick at %v, got %v", want, got)
		}
	default:
		t.Fatal("expected a tick after one period")
	}
}

func TestFakeTickerKeepsSinglePendingTick(t *testing.T) {
	fake := NewFake(time.Unix(0, 0))
	ticker := fake.NewTicker(10 * time.Millisecond)

	fake.Advance(time.Second)

	<-ticker.C()
	select {
	case <-ticker.C():
		t.Fatal("expected undrained ticks to be dropped")
	default:
	}
}

func TestFakeTickerStop(t *testing.T) {
	fake := NewFake(time.Unix(0, 0))
	ticker := fake.NewTicker(10 * time.Millisecond)
	if fake.Tickers() != 1 {
		t.Fatalf("expected 1 running ticker, got %d", fake.Tickers())
	}

	ticker.Stop()
	fake.Advance(time.Second)

	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
	if fake.Tickers() != 0 {
		t.Errorf("expected 0 running tickers, got %d", fake.Tickers())
	}
}

func TestFakeAfterFunc(t *testing.T) {
	fake := NewFake(time.Unix(0, 0))
	calls := 0
	fake.AfterFunc(time.Second, func() { calls++ })
	stopped := fake.AfterFunc(time.Second, func() { t.Error("stopped timer fired") })

	if !stopped.Stop() {
		t.Fatal("expected Stop to report an active timer")
	}

	fake.Advance(999 * time.Millisecond)
	if calls != 0 {
		t.Fatalf("timer fired early")
	}
	fake.Advance(time.Millisecond)
	fake.Advance(time.Second)
	if calls != 1 {
		t.Errorf("expected exactly one call, got %d", calls)
	}
}
