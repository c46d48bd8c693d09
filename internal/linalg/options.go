package linalg

import (
	"log/slog"

	"github.com/born-ml/symten/internal/unitensor"
)

// Options tunes a decomposition.
type Options struct {
	// Workers bounds the number of sectors factorized concurrently.
	// Zero or less means one per CPU.
	Workers int
	// Logger receives per-call debug records. Nil means slog.Default().
	Logger *slog.Logger
	// SkipU and SkipV leave the corresponding factor out of the Result.
	SkipU, SkipV bool
}

// Option mutates Options.
type Option func(*Options)

// WithWorkers sets Options.Workers.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithLogger sets Options.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithoutU skips assembling U; Result.U is nil.
func WithoutU() Option {
	return func(o *Options) { o.SkipU = true }
}

// WithoutV skips assembling V; Result.V is nil.
func WithoutV() Option {
	return func(o *Options) { o.SkipV = true }
}

// ValuesOnly computes S alone.
func ValuesOnly() Option {
	return func(o *Options) { o.SkipU, o.SkipV = true, true }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Result holds the factors of t = U · S · V.
//
// U carries t's row legs followed by the new auxiliary leg, S is diagonal
// over the auxiliary space and V carries the auxiliary leg followed by t's
// column legs. U or V is nil when skipped with WithoutU, WithoutV or
// ValuesOnly.
type Result struct {
	U, S, V *unitensor.UniTensor
	// Discarded is the largest singular value dropped by truncation, or 0.
	// It is not the smallest kept value; that one is the last diagonal
	// entry of S in descending order.
	Discarded float64
}

// Kept is the total number of singular values in S.
func (r *Result) Kept() int {
	return r.S.Shape()[0]
}
