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

// Package actor provides a cooperative actor runtime. A System multiplexes
// many actors onto a bounded pool of workers; each actor's pending work is
// run in bounded slices by its Processor, which hands control back to the
// System at the points the System demands.
//
// The following diagram shows how a message travels through the system.
//
//	,------.          ,-------.    ,-----.           ,------.          ,-----.
//	|caller|          |Mailbox|    |ready|           |worker|          |Actor|
//	`--+---'          `---+---'    `--+--'           `--+---'          `--+--'
//	   |   Tell(msg)      |           |                 |                 |
//	   | ---------------->|           |                 |                 |
//	   |                  |           |                 |                 |
//	   |           Schedule(proc)     |                 |                 |
//	   | ---------------------------->|                 |                 |
//	   |                  |           |                 |                 |
//	   |             Notify()         |                 |                 |
//	   | ---------------------------->|                 |                 |
//	   |                  |           |                 |                 |
//	   |                  |           |    dequeue()    |                 |
//	   |                  |           |<----------------|                 |
//	   |                  |           |                 |                 |
//	   |                  |           |   return proc   |                 |
//	   |                  |           |---------------->|                 |
//	   |                  |           |                 |                 |
//	   |                  |           |                 | Execute(ctx)    |
//	   |                  |  Receive()|                 |--.              |
//	   |                  |<----------------------------|  |              |
//	   |                  |           |                 |<-'              |
//	   |                  |           |                 |                 |
//	   |                  |           |                 |  Receive(msg)   |
//	   |                  |           |                 |---------------->|
//	   |                  |           |                 |                 |
//	   |                  |           |   Interrupt()   |                 |
//	   |                  |           |<----------------|                 |
//	,--+---.          ,---+---.    ,--+--.           ,--+---.          ,--+--.
//	|caller|          |Mailbox|    |ready|           |worker|          |Actor|
//	`------'          `-------'    `-----'           `------'          `-----'
//
// The Interrupt checkpoint after every dispatch is the only preemption
// mechanism. A slice that exceeds its quantum, its batch cap, or its
// starvation allowance yields, and the processor re-enters the ready queue
// if messages remain.
package actor
