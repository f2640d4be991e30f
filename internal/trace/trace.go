// Package trace provides newton.Observer implementations for reporting progress.
package trace

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/san-kum/nrsolve/internal/newton"
)

// Printer writes one human-readable line per iteration.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) OnIteration(rec newton.IterationRecord) {
	fmt.Fprintf(p.w, "iter %d err %.8f x = %s\n", rec.Iteration, rec.Error, FormatVector(rec.X, 4))
}

// FormatVector renders v as [a, b, ...] with prec decimals.
func FormatVector(v newton.Vector, prec int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.*f", prec, x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

type Logger struct {
	log    *slog.Logger
	system string
}

func NewLogObserver(log *slog.Logger, system string) *Logger {
	return &Logger{log: log, system: system}
}

func (l *Logger) OnIteration(rec newton.IterationRecord) {
	l.log.Debug("newton iteration",
		"system", l.system,
		"iter", rec.Iteration,
		"err", rec.Error,
		"residual", rec.Residual,
		"x", []float64(rec.X),
	)
}

// NewLogger builds a text slog.Logger at the named level (debug, info, warn, error).
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// Recorder keeps every record it observes.
type Recorder struct {
	Records []newton.IterationRecord
}

func (r *Recorder) OnIteration(rec newton.IterationRecord) {
	r.Records = append(r.Records, rec)
}

func (r *Recorder) Errors() []float64 {
	out := make([]float64, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.Error
	}
	return out
}

func (r *Recorder) Reset() { r.Records = nil }

type multi []newton.Observer

func (m multi) OnIteration(rec newton.IterationRecord) {
	for _, o := range m {
		o.OnIteration(rec)
	}
}

// Multi fans a record out to several observers. Nil observers are skipped.
func Multi(observers ...newton.Observer) newton.Observer {
	m := make(multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}
