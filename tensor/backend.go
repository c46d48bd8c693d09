// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/parallel"
)

// Parallelism controls how elementwise kernels spread work across
// goroutines. Block-level fan-out in the SVD is configured per call with
// linalg.WithWorkers.
//
// Example:
//
//	tensor.SetParallelism(tensor.Parallelism{Enabled: true, NumWorkers: 4, MinChunkSize: 1 << 14})
type Parallelism = parallel.Config

// DefaultParallelism returns one worker per CPU.
func DefaultParallelism() Parallelism { return parallel.DefaultConfig() }

// SequentialParallelism disables goroutines in elementwise kernels.
func SequentialParallelism() Parallelism { return parallel.Sequential() }

// SetParallelism replaces the process-wide kernel configuration.
func SetParallelism(cfg Parallelism) { dense.SetParallelism(cfg) }
