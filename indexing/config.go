// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package indexing

import (
	"fmt"
	"time"
)

// Config holds the batching and retry settings of an index build.
type Config struct {
	// BatchSize is the number of texts embedded per call.
	BatchSize int

	// Concurrency is the number of batches embedded at the same time.
	Concurrency int

	// ReportInterval is how often progress is reported, in rows.
	ReportInterval int

	// MaxRetries is the number of attempts per embedding call.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:      64,
		Concurrency:    4,
		ReportInterval: 500,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be at least 1, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: max retries must be at least 1, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	if c.ReportInterval < 1 {
		return fmt.Errorf("%w: report interval must be at least 1, got %d", ErrInvalidConfig, c.ReportInterval)
	}
	return nil
}
