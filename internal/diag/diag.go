// Package diag emits one structured record per bridge operation, naming the
// operation, the identifier it ran on, and its outcome.
package diag

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/birkland/assetresolv"
	"github.com/lmittmann/tint"
)

// Outcome of an operation
type Outcome string

// Outcomes
const (
	Success   Outcome = "success"
	CacheHit  Outcome = "cache-hit"
	CacheMiss Outcome = "cache-miss"
	NotEntity Outcome = "not-entity"
)

// Failed is the outcome of an operation that returned err
func Failed(err error) Outcome {
	return Outcome("error:" + assetresolv.KindOf(err).String())
}

// Options configure an Emitter
type Options struct {
	Verbose bool     // emit successful operations, not only failures
	Trace   []string // operation names to emit;  empty means all
	Format  string   // "json", or console text (default)
	NoColor bool
}

// Emitter writes diagnostic records synchronously, in call order.
type Emitter struct {
	log    *slog.Logger
	traced map[string]bool
}

// New creates an emitter writing to w
func New(w io.Writer, opts Options) *Emitter {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	switch opts.Format {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    opts.NoColor,
		})
	}

	return NewWithLogger(slog.New(handler), opts.Trace...)
}

// NewWithLogger creates an emitter on top of an existing logger.  If traced
// operation names are given, only those operations are emitted.
func NewWithLogger(log *slog.Logger, traced ...string) *Emitter {
	e := &Emitter{log: log}
	for _, op := range traced {
		op = strings.TrimSpace(op)
		if op == "" {
			continue
		}
		if e.traced == nil {
			e.traced = make(map[string]bool)
		}
		e.traced[op] = true
	}
	return e
}

// Nop returns an emitter that discards everything
func Nop() *Emitter {
	return NewWithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), "")
}

// Log emits the record of one operation
func (e *Emitter) Log(ctx context.Context, op, id string, outcome Outcome, attrs ...any) {
	if e == nil || (e.traced != nil && !e.traced[op]) {
		return
	}

	args := append([]any{"op", op, "id", id, "outcome", string(outcome)}, attrs...)
	e.log.Log(ctx, slog.LevelDebug, op, args...)
}

// Error emits the record of a failed operation, which is logged regardless of
// verbosity
func (e *Emitter) Error(ctx context.Context, op, id string, err error, attrs ...any) {
	if e == nil || (e.traced != nil && !e.traced[op]) {
		return
	}

	args := append([]any{
		"op", op,
		"id", id,
		"outcome", string(Failed(err)),
		"kind", assetresolv.KindOf(err).String(),
		"error", err,
	}, attrs...)
	e.log.Log(ctx, slog.LevelWarn, op, args...)
}
