package main

import (
	"context"
	"sync"

	"clocktimer/internal/core/command"
	"clocktimer/internal/core/throttle"
	"clocktimer/internal/core/timer"
	"clocktimer/internal/lifecycle"
	"clocktimer/internal/logging"
	"clocktimer/internal/metrics"
	"clocktimer/internal/ui/preferences"
)

// sessions keeps at most one live controller and replaces it after it ends,
// since a cleared engine is never reused.
type sessions struct {
	ctx       context.Context
	metrics   *metrics.Metrics
	sound     lifecycle.Sound
	display   throttle.Display
	sources   []lifecycle.CommandSource
	listeners []lifecycle.TickListener

	mu       sync.Mutex
	settings preferences.Settings
	current  *lifecycle.Controller
}

func (s *sessions) update(settings preferences.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// active returns the live controller, creating and starting one if needed.
func (s *sessions) active() (*lifecycle.Controller, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return s.current, false, nil
	}

	timerSettings := s.settings.TimerSettings()
	controller := lifecycle.New(lifecycle.Options{
		Engine:   timer.Config{TickInterval: timerSettings.TickInterval},
		Throttle: throttle.Config{Interval: timerSettings.DisplayInterval, WithMillis: s.settings.ShowMillis},
		Display:  s.display,
		Sound:    s.sound,
		Metrics:  s.metrics,
		Logger:   logging.FromContext(s.ctx),
	})
	for _, listener := range s.listeners {
		controller.AddListener(listener)
	}
	for _, source := range s.sources {
		if err := controller.AddSource(source); err != nil {
			return nil, false, err
		}
	}
	if err := controller.Start(s.ctx, 0); err != nil {
		return nil, false, err
	}
	s.current = controller

	go func() {
		<-controller.Done()
		s.mu.Lock()
		if s.current == controller {
			s.current = nil
		}
		s.mu.Unlock()
	}()
	return controller, true, nil
}

// submit routes cmd to the live session, starting one unless cmd would only
// cancel it.
func (s *sessions) submit(ctx context.Context, cmd command.Command) error {
	if cmd.Action == command.ActionCancel {
		s.mu.Lock()
		current := s.current
		s.mu.Unlock()
		if current == nil {
			return nil
		}
		return current.Submit(ctx, cmd)
	}

	controller, _, err := s.active()
	if err != nil {
		return err
	}
	return controller.Submit(ctx, cmd)
}

// startCountdown starts the configured duration, or restarts it when a
// session is already live.
func (s *sessions) startCountdown(ctx context.Context) error {
	s.mu.Lock()
	duration := s.settings.TimerSettings().Duration
	s.mu.Unlock()
	return s.submit(ctx, command.Command{Action: command.ActionStart, ConfiguredTime: duration.Milliseconds()})
}

func (s *sessions) stop() error {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()
	if current == nil {
		return nil
	}
	return current.Stop()
}
