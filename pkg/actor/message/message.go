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

// Package message defines messages that flow through actor mailboxes.
package message

// Type is the type of a message.
type Type int

// types of messages
const (
	TypeUnknown Type = iota
	// TypeValue is an ordinary application message.
	TypeValue
	// TypeStop is the termination signal. It causes a graceful, final
	// shutdown of the receiving actor. The signal is consumed by the runtime
	// and is never delivered to the actor itself.
	TypeStop
)

// Message is a vehicle holding a value that is sent to an actor's mailbox.
// We choose message to have a concrete type instead of an interface to save
// memory allocation.
type Message[T any] struct {
	Tp Type
	// Value is an application payload. It is only valid when Tp is TypeValue.
	Value T
}

// ValueMessage creates the message of an application value.
func ValueMessage[T any](value T) Message[T] {
	return Message[T]{
		Tp:    TypeValue,
		Value: value,
	}
}

// StopMessage creates the termination signal.
func StopMessage[T any]() Message[T] {
	return Message[T]{
		Tp: TypeStop,
	}
}
