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

package errors

import (
	"github.com/pingcap/errors"
)

// errors
var (
	// mailbox errors
	ErrMailboxFull = errors.Normalize(
		"mailbox is full, please try again",
		errors.RFCCodeText("TRP:ErrMailboxFull"),
	)
	ErrMailboxClosed = errors.Normalize(
		"mailbox is closed",
		errors.RFCCodeText("TRP:ErrMailboxClosed"),
	)

	// processor errors
	ErrProcessorCompleted = errors.Normalize(
		"processor %s is completed and cannot execute",
		errors.RFCCodeText("TRP:ErrProcessorCompleted"),
	)
	ErrProcessorBusy = errors.Normalize(
		"processor %s is already executing a slice",
		errors.RFCCodeText("TRP:ErrProcessorBusy"),
	)
	ErrProcessorStartState = errors.Normalize(
		"processor %s cannot start in state %s",
		errors.RFCCodeText("TRP:ErrProcessorStartState"),
	)
	ErrProcessorPanic = errors.Normalize(
		"processor %s execution panicked: %v",
		errors.RFCCodeText("TRP:ErrProcessorPanic"),
	)

	// actor errors
	ErrActorStart = errors.Normalize(
		"actor %s failed to start",
		errors.RFCCodeText("TRP:ErrActorStart"),
	)

	// system errors
	ErrActorDuplicate = errors.Normalize(
		"actor %s is already registered",
		errors.RFCCodeText("TRP:ErrActorDuplicate"),
	)
	ErrActorNotFound = errors.Normalize(
		"actor %s not found",
		errors.RFCCodeText("TRP:ErrActorNotFound"),
	)
	ErrSystemStopped = errors.Normalize(
		"actor system is stopped",
		errors.RFCCodeText("TRP:ErrSystemStopped"),
	)

	// registry errors
	ErrFactoryDuplicate = errors.Normalize(
		"actor factory %s is already registered",
		errors.RFCCodeText("TRP:ErrFactoryDuplicate"),
	)
	ErrFactoryNotFound = errors.Normalize(
		"actor factory %s not found",
		errors.RFCCodeText("TRP:ErrFactoryNotFound"),
	)

	// config errors
	ErrInvalidSchedulerConfig = errors.Normalize(
		"invalid scheduler config, %s",
		errors.RFCCodeText("TRP:ErrInvalidSchedulerConfig"),
	)
	ErrInvalidLogConfig = errors.Normalize(
		"invalid log config, %s",
		errors.RFCCodeText("TRP:ErrInvalidLogConfig"),
	)
)
