package dense

import (
	"fmt"
	"sync/atomic"

	"github.com/born-ml/symten/internal/parallel"
	"gonum.org/v1/gonum/floats"
)

var parallelCfg atomic.Pointer[parallel.Config]

func init() {
	cfg := parallel.DefaultConfig()
	parallelCfg.Store(&cfg)
}

// SetParallelism replaces the configuration used by elementwise kernels.
func SetParallelism(cfg parallel.Config) {
	parallelCfg.Store(&cfg)
}

func binary(op string, a, b *Array, f func(x, y float64) float64) (*Array, error) {
	if !a.shape.Equal(b.shape) {
		return nil, fmt.Errorf("dense: %s: shape mismatch %v vs %v", op, a.shape, b.shape)
	}
	av, bv := a.values(), b.values()
	out := Zeros(a.shape...)
	parallel.For(len(out.data), func(i int) {
		out.data[i] = f(av[i], bv[i])
	}, *parallelCfg.Load())
	return out, nil
}

// Add returns a + b elementwise.
func Add(a, b *Array) (*Array, error) {
	return binary("add", a, b, func(x, y float64) float64 { return x + y })
}

// Sub returns a - b elementwise.
func Sub(a, b *Array) (*Array, error) {
	return binary("sub", a, b, func(x, y float64) float64 { return x - y })
}

// Mul returns a * b elementwise.
func Mul(a, b *Array) (*Array, error) {
	return binary("mul", a, b, func(x, y float64) float64 { return x * y })
}

// Div returns a / b elementwise.
func Div(a, b *Array) (*Array, error) {
	return binary("div", a, b, func(x, y float64) float64 { return x / y })
}

// Scale returns a new array with every element multiplied by s.
func (a *Array) Scale(s float64) *Array {
	av := a.values()
	out := Zeros(a.shape...)
	parallel.For(len(out.data), func(i int) {
		out.data[i] = av[i] * s
	}, *parallelCfg.Load())
	return out
}

// Norm returns the Frobenius norm.
func (a *Array) Norm() float64 {
	return floats.Norm(a.values(), 2)
}

// Sum returns the sum of all elements.
func (a *Array) Sum() float64 {
	return floats.Sum(a.values())
}
