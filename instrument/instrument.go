// Package instrument provides the explicit logging/timing context threaded
// through the prover and verifier. It replaces the source's global
// timer/logger singletons (util/timer.hpp's make_timer, ad hoc std::cout
// tracing) with a value passed explicitly from cmd/ down into iop, never a
// package-level logger.
package instrument

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Context carries a logger and produces named Stopwatches for timing
// individual stages (commit, argument, disclosure, encode, ...).
type Context struct {
	Log zerolog.Logger
}

// New builds a Context logging to stderr at the given level.
func New(level zerolog.Level) *Context {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
	return &Context{Log: logger}
}

// Stopwatch times one named phase and logs its duration at Debug on Stop.
type Stopwatch struct {
	ctx   *Context
	name  string
	start time.Time
}

// StartTimer begins timing a named phase.
func (c *Context) StartTimer(name string) *Stopwatch {
	return &Stopwatch{ctx: c, name: name, start: time.Now()}
}

// Stop logs the elapsed duration since StartTimer at Debug level.
func (s *Stopwatch) Stop() time.Duration {
	elapsed := time.Since(s.start)
	s.ctx.Log.Debug().Str("phase", s.name).Dur("elapsed", elapsed).Msg("phase complete")
	return elapsed
}

// Sub returns a child Context sharing the same logger, tagged with an extra
// field -- used to scope per-repetition logging (e.g. "rep": i) without any
// package-level state.
func (c *Context) Sub(field string, value int) *Context {
	return &Context{Log: c.Log.With().Int(field, value).Logger()}
}
