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

package actor

import (
	"context"

	"github.com/troupe-io/troupe/pkg/actor/message"
)

// ID is ID for actor mailboxes.
type ID uint64

// State is the lifecycle state of a processor.
type State int32

// states of a processor
const (
	// StateIdle means the mailbox is drained and the processor waits for
	// new messages.
	StateIdle State = iota
	// StateReady means the processor has pending messages and waits to be
	// picked by a worker.
	StateReady
	// StateRunning means a worker is draining the processor's mailbox.
	StateRunning
	// StateCompleted means the processor has consumed a termination signal
	// or has been retired. It never runs again.
	StateCompleted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	}
	return "Unknown"
}

// Actor is a universal primitive of concurrent computation.
// See more https://en.wikipedia.org/wiki/Actor_model
//
// Messages sent to one actor are delivered in mailbox insertion order, and
// Receive is never called concurrently for the same actor, so actor code
// needs no synchronization for its own state.
type Actor[T any] interface {
	// Receive handles one message.
	//
	// The ctx is only for cancellation, and an actor must be aware of
	// the cancellation.
	//
	// A returned error means this one message was not handled successfully.
	// It is logged and the message counts as consumed; it never stops the
	// actor. The same holds for a panic raised inside Receive.
	Receive(ctx context.Context, msg message.Message[T]) error
}

// StartHook is an optional capability of an Actor. If the actor implements
// it, OnStart is called exactly once, before any message is delivered.
type StartHook interface {
	// OnStart initializes the actor. A returned error fails Start and the
	// actor is never scheduled.
	OnStart(ctx context.Context) error
}

// StopHook is an optional capability of an Actor. If the actor implements
// it, OnStop is called exactly once, after the termination signal has been
// consumed. No message is delivered afterwards.
type StopHook interface {
	OnStop(ctx context.Context) error
}
