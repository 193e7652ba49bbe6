package attempt

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-portal/internal/countdown"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/notify"
	"github.com/stemsi/exstem-portal/internal/shuffle"
)

// Option configures an Attempt at Start.
type Option func(*Attempt)

// WithNotifier sets the default notifier used when no client is attached.
func WithNotifier(n notify.Notifier) Option {
	return func(a *Attempt) {
		if n != nil {
			a.defaults.Notifier = n
		}
	}
}

// WithNavigator sets the default navigator used when no client is attached.
func WithNavigator(n Navigator) Option {
	return func(a *Attempt) {
		if n != nil {
			a.defaults.Navigator = n
		}
	}
}

// WithPhaseObserver registers fn to run after every phase change.
func WithPhaseObserver(fn func(Phase)) Option {
	return func(a *Attempt) {
		a.defaults.OnPhase = fn
	}
}

// WithOnFinish registers the hand-off for a finished attempt's submission.
func WithOnFinish(fn func(model.Submission) error) Option {
	return func(a *Attempt) {
		a.onFinish = fn
	}
}

// WithShuffleSource overrides the randomness used to order questions.
func WithShuffleSource(src shuffle.Source) Option {
	return func(a *Attempt) {
		if src != nil {
			a.src = src
		}
	}
}

// WithTimerOptions passes options through to the countdown.
func WithTimerOptions(opts ...countdown.Option) Option {
	return func(a *Attempt) {
		a.timerOpts = append(a.timerOpts, opts...)
	}
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Attempt) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the attempt's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Attempt) {
		a.log = log.With().Str("component", "attempt").Logger()
	}
}
