// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import "github.com/rs/zerolog"

// defaultLogger is silent so importing this package never writes to
// stderr on its own; callers that want diagnostics pass a configured
// zerolog.Logger to New via WithLogger.
var defaultLogger = zerolog.Nop()

// Option configures a Compositor at construction time.
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

// WithLogger attaches a structured logger. Compositor and ClientWindow log
// through it at debug level: windows that vanish during construction,
// failed pixmap rebuilds (the transient races described in §7) and failed
// restack tree queries. The GLX session logs at warn level when no
// FBConfig can be chosen for a visual. Startup-fatal conditions are not
// logged; New returns them as errors.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(opts []Option) options {
	o := options{logger: defaultLogger}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
