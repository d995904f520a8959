package lro

import "context"

// Observer receives state-machine transitions as they happen. Observers run
// synchronously on the run goroutine and must be fast; anything expensive
// belongs behind a buffered publisher. A nil Observer is always legal.
type Observer interface {
	// OnTransition is called after the run state has been updated for the
	// transition and before the next phase executes.
	OnTransition(ctx context.Context, t Transition)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, t Transition)

// OnTransition implements Observer.
func (f ObserverFunc) OnTransition(ctx context.Context, t Transition) {
	f(ctx, t)
}

// MultiObserver fans a transition out to several observers in order. Nil
// entries are skipped.
func MultiObserver(observers ...Observer) Observer {
	return ObserverFunc(func(ctx context.Context, t Transition) {
		for _, o := range observers {
			if o != nil {
				o.OnTransition(ctx, t)
			}
		}
	})
}
