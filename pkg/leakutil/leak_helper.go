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

package leakutil

import (
	"testing"

	"go.uber.org/goleak"
)

// SetUpLeakTest is used in TestMain to verify that no goroutine leaks after
// all tests in the package finish.
//
//	func TestMain(m *testing.M) {
//		leakutil.SetUpLeakTest(m)
//	}
func SetUpLeakTest(m *testing.M, extraOpts ...goleak.Option) {
	opts := []goleak.Option{
		goleak.IgnoreTopFunction("testing.runFuzzing"),
		goleak.IgnoreTopFunction("testing.(*F).Fuzz.func1"),
	}
	opts = append(opts, extraOpts...)

	goleak.VerifyTestMain(m, opts...)
}

// VerifyNone verifies that no unexpected goroutine is leaked at the point of
// call. It is useful for checking a single test rather than a whole package.
func VerifyNone(t *testing.T, extraOpts ...goleak.Option) {
	goleak.VerifyNone(t, extraOpts...)
}
