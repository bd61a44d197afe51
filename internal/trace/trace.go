// Package trace provides lightweight, opt-in tracing for the indexing and
// search pipeline. Logging setup (sinks, formatting, levels) is an
// external collaborator's responsibility per spec §1; this package only
// carries the ambient in-process tracing the indexer and searcher emit
// when a caller turns a target on.
package trace

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

var (
	logger = newLogger()

	current atomic.Int32
)

func newLogger() *log.Logger {
	return log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds|log.Lshortfile)
}

// Target is a tracing target.
type Target int32

const (
	// Index traces the history-walk indexing pipeline.
	Index Target = 1 << iota

	// Diff traces per-commit diff tracking and hunk application.
	Diff

	// Search traces query evaluation in the searcher.
	Search

	// Persist traces index save/load.
	Persist
)

// SetTarget sets the tracing targets that are currently enabled.
func SetTarget(target Target) {
	current.Store(int32(target))
}

// SetLogger overrides the logger used for tracing, e.g. to route it
// through a caller's own structured logger.
func SetLogger(l *log.Logger) {
	logger = l
}

// Print prints args only if the target is enabled.
func (t Target) Print(args ...any) {
	if t.Enabled() {
		logger.Output(2, fmt.Sprint(args...)) // nolint: errcheck
	}
}

// Printf prints a formatted message only if the target is enabled.
func (t Target) Printf(format string, args ...any) {
	if t.Enabled() {
		logger.Output(2, fmt.Sprintf(format, args...)) // nolint: errcheck
	}
}

// Enabled reports whether t is currently enabled.
func (t Target) Enabled() bool {
	return int32(t)&current.Load() != 0
}

// GetTarget returns the currently enabled target mask.
func GetTarget() Target {
	return Target(current.Load())
}
