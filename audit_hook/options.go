package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithActions limits recording to the listed actions, for example only
// failures:
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionRecordFailed,
//	        audithook.ActionCleanupFailed,
//	    ),
//	)
//
// Names outside AllActions never match a hook and are ignored.
func WithActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(actions))
		for _, a := range actions {
			e.enabled[a] = true
		}
	}
}

// WithLogger sets the logger used when recording fails.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) { e.logger = l }
}
