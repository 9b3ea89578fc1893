// Copyright 2024 The Troupe Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package clock provides a mockable time source with a monotonic reading.
// Slice accounting must use the monotonic reading, wall-clock adjustments
// must never make a slice appear shorter or longer than it was.
package clock

import (
	"time"

	bclock "github.com/benbjohnson/clock"
	"github.com/gavv/monotime"
)

type (
	// Timer is re-exported for callers that hold a Clock.
	Timer = bclock.Timer
	// Ticker is re-exported for callers that hold a Clock.
	Ticker = bclock.Ticker
	// MonotonicTime is a point on the monotonic clock.
	MonotonicTime time.Duration
)

var unixEpoch = time.Unix(0, 0)

// Clock is a time source that additionally exposes a monotonic reading.
type Clock interface {
	bclock.Clock
	Mono() MonotonicTime
}

type withRealMono struct {
	bclock.Clock
}

func (r withRealMono) Mono() MonotonicTime {
	return MonotonicTime(monotime.Now())
}

// Mock is a mockable clock for tests. Advancing the mock advances both the
// wall and the monotonic readings.
type Mock struct {
	*bclock.Mock
}

// Mono implements Clock.
func (r Mock) Mono() MonotonicTime {
	return MonotonicTime(r.Now().Sub(unixEpoch))
}

// New returns a Clock backed by the real time source.
func New() Clock {
	return withRealMono{bclock.New()}
}

// NewMock returns a mock Clock for tests.
func NewMock() *Mock {
	return &Mock{bclock.NewMock()}
}

// Sub returns the duration between two monotonic readings.
func (m MonotonicTime) Sub(other MonotonicTime) time.Duration {
	return time.Duration(m - other)
}
