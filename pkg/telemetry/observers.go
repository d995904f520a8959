package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/openlro/openlro/pkg/lro"
)

// LogObserver returns an observer that logs every phase transition. Poll
// self-transitions are logged at debug level to keep long waits quiet at the
// default level.
func LogObserver(logger *Logger) lro.Observer {
	return lro.ObserverFunc(func(_ context.Context, t lro.Transition) {
		l := logger.WithRunID(t.RunID).WithFields(map[string]interface{}{
			"from":        string(t.From),
			"to":          string(t.To),
			"retry_count": t.RetryCount,
		})
		if t.Handle != "" {
			l = l.WithHandle(string(t.Handle))
		}
		if t.Status != "" {
			l = l.WithField("status", string(t.Status))
		}

		switch {
		case t.Failure != nil:
			l.WithError(t.Failure).Error("run failed")
		case t.To == lro.PhaseTimedOut:
			l.Warn("run timed out")
		case t.To == lro.PhaseDone:
			l.Info("run completed")
		case t.From == lro.PhasePolling && t.To == lro.PhasePolling:
			l.Debug("operation still active")
		default:
			l.Debug("phase transition")
		}
	})
}

// MetricsObserver returns an observer that feeds run transitions into the
// metrics collector. It tracks per-run start times and poll counts so it can
// attribute durations and check counts to completed runs.
func MetricsObserver(metrics *Metrics) lro.Observer {
	if metrics == nil {
		return nil
	}

	type runTrack struct {
		started time.Time
		checks  int
	}

	var mu sync.Mutex
	tracks := make(map[string]*runTrack)

	return lro.ObserverFunc(func(_ context.Context, t lro.Transition) {
		metrics.RecordPhaseTransition(string(t.From), string(t.To))

		mu.Lock()
		defer mu.Unlock()

		track := tracks[t.RunID]
		if track == nil {
			track = &runTrack{started: t.At}
			tracks[t.RunID] = track
		}

		if t.From == lro.PhaseInit {
			metrics.RecordRunStarted()
			track.started = t.At
		}
		if t.From == lro.PhasePolling {
			track.checks++
			metrics.RecordStatusCheck()
		}
		if t.Failure != nil {
			metrics.RecordError(string(t.Failure.Class))
		}

		if kind, terminal := t.Outcome(); terminal {
			metrics.RecordRunCompleted(string(kind), t.At.Sub(track.started), track.checks)
			delete(tracks, t.RunID)
		}
	})
}

// EventObserver returns an observer that publishes run lifecycle events.
func EventObserver(events *EventPublisher) lro.Observer {
	if events == nil {
		return nil
	}

	return lro.ObserverFunc(func(_ context.Context, t lro.Transition) {
		if t.From == lro.PhaseSubmitting && t.To == lro.PhasePolling {
			_ = events.PublishRunSubmitted(t.RunID, string(t.Handle))
		}
		_ = events.PublishPhaseChanged(t.RunID, string(t.From), string(t.To))

		kind, terminal := t.Outcome()
		if !terminal {
			return
		}
		switch kind {
		case lro.OutcomeSuccess:
			_ = events.PublishRunCompleted(t.RunID, string(kind), t.RetryCount)
		case lro.OutcomeTimedOut:
			_ = events.PublishRunTimedOut(t.RunID, t.RetryCount)
		case lro.OutcomeCancelled:
			_ = events.PublishRunCancelled(t.RunID)
		default:
			reason := "unknown failure"
			if t.Failure != nil {
				reason = t.Failure.Error()
			}
			_ = events.PublishRunFailed(t.RunID, reason)
		}
	})
}

// Observers bundles the standard log, metrics and event observers for a
// telemetry instance into a single observer.
func (t *Telemetry) Observers() lro.Observer {
	return lro.MultiObserver(
		LogObserver(t.Logger.NewComponentLogger("runner")),
		MetricsObserver(t.Metrics),
		EventObserver(t.Events),
	)
}
