package timer

import "sync"

// Subscription is one subscriber's ordered view of the engine events.
//
// Events are queued per subscriber without bound, so a slow reader delays
// only itself. Readers must drain C until it is closed or call Close.
type Subscription struct {
	engine     *Engine
	onFinished func()
	out        chan Event
	wake       chan struct{}
	quit       chan struct{}
	quitOnce   sync.Once

	mu    sync.Mutex
	queue []Event
	ended bool
}

func newSubscription(engine *Engine, onFinished func()) *Subscription {
	return &Subscription{
		engine:     engine,
		onFinished: onFinished,
		out:        make(chan Event),
		wake:       make(chan struct{}, 1),
		quit:       make(chan struct{}),
	}
}

// C returns the event stream. It is closed after the engine is cleared and
// every queued event has been delivered, or when Close is called.
func (subscription *Subscription) C() <-chan Event {
	return subscription.out
}

// Close detaches the subscription. Queued events are discarded and the
// finished callback will not run again.
func (subscription *Subscription) Close() {
	subscription.quitOnce.Do(func() {
		close(subscription.quit)
	})
	subscription.engine.unsubscribe(subscription)
}

func (subscription *Subscription) push(event Event) {
	subscription.mu.Lock()
	if subscription.ended {
		subscription.mu.Unlock()
		return
	}
	subscription.queue = append(subscription.queue, event)
	subscription.mu.Unlock()
	subscription.signal()
}

func (subscription *Subscription) end() {
	subscription.mu.Lock()
	subscription.ended = true
	subscription.mu.Unlock()
	subscription.signal()
}

func (subscription *Subscription) signal() {
	select {
	case subscription.wake <- struct{}{}:
	default:
	}
}

func (subscription *Subscription) next() (Event, bool, bool) {
	subscription.mu.Lock()
	defer subscription.mu.Unlock()
	if len(subscription.queue) == 0 {
		return Event{}, false, subscription.ended
	}
	event := subscription.queue[0]
	subscription.queue[0] = Event{}
	subscription.queue = subscription.queue[1:]
	return event, true, false
}

func (subscription *Subscription) pump() {
	defer close(subscription.out)

	for {
		event, ok, ended := subscription.next()
		if !ok {
			if ended {
				return
			}
			select {
			case <-subscription.wake:
				continue
			case <-subscription.quit:
				return
			}
		}

		if event.Type == EventFinished && subscription.onFinished != nil {
			select {
			case <-subscription.quit:
				return
			default:
			}
			subscription.onFinished()
		}

		select {
		case subscription.out <- event:
		case <-subscription.quit:
			return
		}
	}
}
