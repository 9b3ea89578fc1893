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
	"time"

	"github.com/pingcap/log"
	"github.com/troupe-io/troupe/pkg/actor/message"
	"github.com/troupe-io/troupe/pkg/clock"
	cerrors "github.com/troupe-io/troupe/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Processor maps one actor onto the workers of a scheduler. It drains the
// actor's mailbox in bounded slices and hands control back to the scheduler
// at the points the scheduler demands, so that many actors share a small
// number of workers fairly.
type Processor[T any] struct {
	urn   string
	actor Actor[T]
	mb    Mailbox[T]
	sched Scheduler[T]
	clk   clock.Clock

	state     atomic.Int32
	executing atomic.Bool

	// scheduled reports whether the processor sits in the scheduler's ready
	// queue or is being executed. It is guarded by the scheduler's ready
	// queue mutex, never access it from anywhere else.
	scheduled bool

	// Slice counters are reset at every slice start. Cumulative counters are
	// folded in at slice boundaries only, so a partial slice never
	// double-counts. All counters tolerate concurrent readers.
	sliceMsgCount atomic.Int64
	sliceRunTime  atomic.Duration
	slicePenalty  atomic.Int64
	totalMsgCount atomic.Int64
	totalRunTime  atomic.Duration
}

// NewProcessor binds an actor to a mailbox and a scheduler.
// The urn identifies the processor within its scheduler.
func NewProcessor[T any](
	a Actor[T], mb Mailbox[T], sched Scheduler[T], urn string,
) *Processor[T] {
	return newProcessor(a, mb, sched, urn, clock.New())
}

func newProcessor[T any](
	a Actor[T], mb Mailbox[T], sched Scheduler[T], urn string, clk clock.Clock,
) *Processor[T] {
	return &Processor[T]{
		urn:   urn,
		actor: a,
		mb:    mb,
		sched: sched,
		clk:   clk,
	}
}

// Start fires the actor's OnStart hook if the actor implements it, then
// registers the processor with its scheduler. No message is processed yet.
// An error from OnStart fails the start and the processor is not registered.
func (p *Processor[T]) Start(ctx context.Context) error {
	if s := p.State(); s != StateIdle {
		return cerrors.ErrProcessorStartState.GenWithStackByArgs(p.urn, s)
	}
	if hook, ok := p.actor.(StartHook); ok {
		if err := hook.OnStart(ctx); err != nil {
			return cerrors.WrapError(cerrors.ErrActorStart, err, p.urn)
		}
	}
	p.setState(StateIdle)
	p.sched.Schedule(p)
	p.sched.Notify()
	return nil
}

// Execute runs one slice: it drains the mailbox message by message until the
// mailbox is empty, a termination signal is consumed, or the scheduler
// decides the slice must end. Only the scheduler's workers may call it.
//
// It returns ErrProcessorCompleted when the processor has already completed
// and ErrProcessorBusy when another slice is still active. Both are contract
// violations of the caller, not actor faults.
func (p *Processor[T]) Execute(ctx context.Context) error {
	if p.State() == StateCompleted {
		return cerrors.ErrProcessorCompleted.GenWithStackByArgs(p.urn)
	}
	if !p.executing.CompareAndSwap(false, true) {
		return cerrors.ErrProcessorBusy.GenWithStackByArgs(p.urn)
	}
	defer p.executing.Store(false)

	p.sliceMsgCount.Store(0)
	p.sliceRunTime.Store(0)
	for {
		msg, ok := p.mb.Receive()
		if !ok {
			p.setState(StateIdle)
			break
		}
		p.setState(StateRunning)
		if msg.Tp == message.TypeStop {
			// The termination signal is consumed here, it is never
			// delivered to Receive.
			p.stop(ctx)
			break
		}
		start := p.clk.Mono()
		p.dispatch(ctx, msg)
		elapsed := p.clk.Mono().Sub(start)
		// Update the slice statistics before asking the scheduler whether
		// the slice may go on.
		p.sliceMsgCount.Inc()
		p.sliceRunTime.Add(elapsed)
		if p.sched.Interrupt(p) == Yield {
			if p.mb.len() > 0 {
				p.setState(StateReady)
			} else {
				p.setState(StateIdle)
			}
			break
		}
	}
	p.totalMsgCount.Add(p.sliceMsgCount.Load())
	p.totalRunTime.Add(p.sliceRunTime.Load())
	return nil
}

// dispatch delivers one message to the actor. Errors and panics raised by
// actor code degrade to "this message was not handled", they never abort the
// processor.
func (p *Processor[T]) dispatch(ctx context.Context, msg message.Message[T]) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("actor panicked while handling a message",
				zap.String("urn", p.urn),
				zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	if err := p.actor.Receive(ctx, msg); err != nil {
		log.Warn("actor failed to handle a message",
			zap.String("urn", p.urn), zap.Error(err))
	}
}

func (p *Processor[T]) stop(ctx context.Context) {
	p.setState(StateCompleted)
	if hook, ok := p.actor.(StopHook); ok {
		if err := hook.OnStop(ctx); err != nil {
			log.Warn("actor failed to stop cleanly",
				zap.String("urn", p.urn), zap.Error(err))
		}
	}
}

// Tell appends a message to the mailbox and wakes the scheduler. It may be
// called at any time, from any goroutine, regardless of the processor state.
// It returns ErrMailboxFull when the mailbox is out of capacity.
func (p *Processor[T]) Tell(msg message.Message[T]) error {
	if err := p.mb.Send(msg); err != nil {
		return err
	}
	p.sched.Schedule(p)
	p.sched.Notify()
	return nil
}

// TellB is like Tell but blocks while the mailbox is full.
func (p *Processor[T]) TellB(ctx context.Context, msg message.Message[T]) error {
	if err := p.mb.SendB(ctx, msg); err != nil {
		return err
	}
	p.sched.Schedule(p)
	p.sched.Notify()
	return nil
}

// URN returns the processor's unique resource name.
func (p *Processor[T]) URN() string {
	return p.urn
}

// State returns the current lifecycle state. Concurrent readers may observe
// a state one transition behind the executing worker.
func (p *Processor[T]) State() State {
	return State(p.state.Load())
}

func (p *Processor[T]) setState(s State) {
	p.state.Store(int32(s))
}

// PendingMsgCount returns the current mailbox depth.
func (p *Processor[T]) PendingMsgCount() int {
	return p.mb.len()
}

// SliceMsgCount returns the number of messages processed in the current
// slice.
func (p *Processor[T]) SliceMsgCount() int64 {
	return p.sliceMsgCount.Load()
}

// SliceRunTime returns the run time spent in the current slice.
func (p *Processor[T]) SliceRunTime() time.Duration {
	return p.sliceRunTime.Load()
}

// SlicePenalty returns the accumulated fairness debt. The scheduler uses it
// to bias future yield decisions against processors that kept running while
// others waited.
func (p *Processor[T]) SlicePenalty() int64 {
	return p.slicePenalty.Load()
}

// SetSlicePenalty overwrites the fairness debt. Only the scheduler calls it.
func (p *Processor[T]) SetSlicePenalty(penalty int64) {
	p.slicePenalty.Store(penalty)
}

// TotalMsgCount returns the number of messages processed over all finished
// slices.
func (p *Processor[T]) TotalMsgCount() int64 {
	return p.totalMsgCount.Load()
}

// TotalRunTime returns the run time spent over all finished slices.
func (p *Processor[T]) TotalRunTime() time.Duration {
	return p.totalRunTime.Load()
}
