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
	"sync"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/troupe-io/troupe/pkg/actor/message"
	"github.com/troupe-io/troupe/pkg/clock"
	"github.com/troupe-io/troupe/pkg/config"
	cerrors "github.com/troupe-io/troupe/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Decision is the scheduler's answer to an Interrupt call.
type Decision int

// decisions
const (
	// Continue lets the processor keep draining its mailbox in the same
	// slice.
	Continue Decision = iota
	// Yield ends the slice now. The processor re-enters the ready set if
	// its mailbox is non-empty, otherwise it goes idle.
	Yield
)

// Scheduler owns the fairness policy across all registered processors.
// It is driven entirely through these three operations, there is no
// asynchronous preemption.
type Scheduler[T any] interface {
	// Schedule admits a processor into the ready bookkeeping. It is
	// idempotent, duplicate calls caused by concurrent Tell and Notify
	// collapse into one ready position.
	Schedule(p *Processor[T])
	// Notify hints that ready work may exist. It never blocks.
	Notify()
	// Interrupt is called by a running processor immediately after each
	// message dispatch. It decides whether the processor has used its fair
	// share and must yield. It never blocks.
	Interrupt(p *Processor[T]) Decision
}

// ready is the run queue shared by all workers. A processor occupies at most
// one position; the scheduled mark stays set from enqueue until the slice
// ends, which is what makes at-most-one-active-execution hold.
type ready[T any] struct {
	sync.Mutex
	cond    *sync.Cond
	queue   []*Processor[T]
	stopped bool
}

func newReady[T any]() *ready[T] {
	rd := &ready[T]{}
	rd.cond = sync.NewCond(&rd.Mutex)
	return rd
}

func (rd *ready[T]) enqueue(p *Processor[T]) {
	rd.Lock()
	defer rd.Unlock()
	if rd.stopped || p.scheduled || p.State() == StateCompleted {
		return
	}
	p.scheduled = true
	rd.queue = append(rd.queue, p)
	rd.cond.Signal()
}

// dequeue blocks until a processor is ready or the queue is closed.
func (rd *ready[T]) dequeue() (*Processor[T], bool) {
	rd.Lock()
	defer rd.Unlock()
	for len(rd.queue) == 0 && !rd.stopped {
		rd.cond.Wait()
	}
	if rd.stopped {
		return nil, false
	}
	p := rd.queue[0]
	rd.queue[0] = nil
	rd.queue = rd.queue[1:]
	return p, true
}

// finish returns a processor after a slice. It re-enqueues when work
// remains, otherwise it clears the scheduled mark. The mailbox length is
// checked under the queue mutex, so a Tell that raced with the slice end
// either sees the mark still set or enqueues itself.
func (rd *ready[T]) finish(p *Processor[T]) {
	rd.Lock()
	defer rd.Unlock()
	if !rd.stopped && (p.State() == StateReady || p.mb.len() > 0) {
		rd.queue = append(rd.queue, p)
		rd.cond.Signal()
		return
	}
	p.scheduled = false
}

func (rd *ready[T]) retire(p *Processor[T]) {
	rd.Lock()
	defer rd.Unlock()
	p.scheduled = false
}

func (rd *ready[T]) hasWaiting() bool {
	rd.Lock()
	defer rd.Unlock()
	return len(rd.queue) > 0
}

func (rd *ready[T]) close() {
	rd.Lock()
	defer rd.Unlock()
	rd.stopped = true
	rd.cond.Broadcast()
}

// SystemBuilder is a builder of a worker pool system.
type SystemBuilder[T any] struct {
	name       string
	workerNum  int
	mailboxCap int
	quantum    time.Duration
	batch      int64
	starvation int64
	clk        clock.Clock
}

// NewSystemBuilder returns a new system builder.
func NewSystemBuilder[T any](name string) *SystemBuilder[T] {
	defaultCfg := config.GetDefaultSchedulerConfig()
	return &SystemBuilder[T]{
		name:       name,
		workerNum:  defaultCfg.WorkerNumber,
		mailboxCap: defaultCfg.MailboxCapacity,
		quantum:    time.Duration(defaultCfg.Quantum),
		batch:      defaultCfg.Batch,
		starvation: defaultCfg.StarvationThreshold,
		clk:        clock.New(),
	}
}

// WorkerNumber sets the number of workers of a system.
// It must be in the range of (0, maxWorkerNum].
func (b *SystemBuilder[T]) WorkerNumber(workerNum int) *SystemBuilder[T] {
	if workerNum <= 0 {
		workerNum = 1
	} else if workerNum > maxWorkerNum {
		workerNum = maxWorkerNum
	}
	b.workerNum = workerNum
	return b
}

// MailboxCapacity sets the capacity of mailboxes created by Spawn.
func (b *SystemBuilder[T]) MailboxCapacity(cap int) *SystemBuilder[T] {
	if cap > 0 {
		b.mailboxCap = cap
	}
	return b
}

// Quantum sets the wall time budget of one slice.
func (b *SystemBuilder[T]) Quantum(quantum time.Duration) *SystemBuilder[T] {
	if quantum > 0 {
		b.quantum = quantum
	}
	return b
}

// Batch sets the maximum number of messages of one slice.
func (b *SystemBuilder[T]) Batch(batch int) *SystemBuilder[T] {
	if batch > 0 {
		b.batch = int64(batch)
	}
	return b
}

// StarvationThreshold sets how many dispatches a processor may survive while
// other processors wait before it is forced to yield.
func (b *SystemBuilder[T]) StarvationThreshold(n int) *SystemBuilder[T] {
	if n > 0 {
		b.starvation = int64(n)
	}
	return b
}

// Clock overrides the time source, tests use it with a mock clock.
func (b *SystemBuilder[T]) Clock(clk clock.Clock) *SystemBuilder[T] {
	b.clk = clk
	return b
}

// WithConfig applies a scheduler configuration.
func (b *SystemBuilder[T]) WithConfig(cfg *config.SchedulerConfig) *SystemBuilder[T] {
	return b.WorkerNumber(cfg.WorkerNumber).
		MailboxCapacity(cfg.MailboxCapacity).
		Quantum(time.Duration(cfg.Quantum)).
		Batch(int(cfg.Batch)).
		StarvationThreshold(int(cfg.StarvationThreshold))
}

// Build builds a system.
func (b *SystemBuilder[T]) Build() *System[T] {
	return &System[T]{
		name:       b.name,
		workerNum:  b.workerNum,
		mailboxCap: b.mailboxCap,
		quantum:    b.quantum,
		batch:      b.batch,
		starvation: b.starvation,
		clk:        b.clk,
		rd:         newReady[T](),
		procs:      make(map[string]*Processor[T]),
		drained:    make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

const maxWorkerNum = 64

// System is a scheduler that maps processors onto a bounded pool of workers.
// Processors are cooperative, non-preemptible units, a worker regains
// control only at the Interrupt checkpoints of a slice.
type System[T any] struct {
	name       string
	workerNum  int
	mailboxCap int
	quantum    time.Duration
	batch      int64
	starvation int64
	clk        clock.Clock

	rd *ready[T]

	procMu   sync.RWMutex
	procs    map[string]*Processor[T]
	stopping bool

	nextID      atomic.Uint64
	drained     chan struct{}
	drainedOnce sync.Once
	stopped     chan struct{}
	stoppedOnce sync.Once
}

var _ Scheduler[any] = (*System[any])(nil)

// Spawn creates a processor for the actor, registers it under the urn and
// starts it. The urn must be unique within the system.
func (s *System[T]) Spawn(
	ctx context.Context, urn string, a Actor[T],
) (*Processor[T], error) {
	mb := NewMailbox[T](ID(s.nextID.Inc()), s.mailboxCap)
	p := newProcessor[T](a, mb, s, urn, s.clk)

	s.procMu.Lock()
	if s.stopping {
		s.procMu.Unlock()
		return nil, cerrors.ErrSystemStopped.GenWithStackByArgs()
	}
	if _, ok := s.procs[urn]; ok {
		s.procMu.Unlock()
		return nil, cerrors.ErrActorDuplicate.GenWithStackByArgs(urn)
	}
	s.procs[urn] = p
	s.procMu.Unlock()

	if err := p.Start(ctx); err != nil {
		s.procMu.Lock()
		delete(s.procs, urn)
		s.procMu.Unlock()
		return nil, errors.Trace(err)
	}
	return p, nil
}

// Processor looks up a live processor by its urn.
func (s *System[T]) Processor(urn string) (*Processor[T], bool) {
	s.procMu.RLock()
	defer s.procMu.RUnlock()
	p, ok := s.procs[urn]
	return p, ok
}

// NumProcessors returns the number of live processors.
func (s *System[T]) NumProcessors() int {
	s.procMu.RLock()
	defer s.procMu.RUnlock()
	return len(s.procs)
}

// Tell sends a message to the actor registered under the urn.
func (s *System[T]) Tell(urn string, msg message.Message[T]) error {
	p, ok := s.Processor(urn)
	if !ok {
		return cerrors.ErrActorNotFound.GenWithStackByArgs(urn)
	}
	return p.Tell(msg)
}

// TellB is like Tell but blocks while the mailbox is full.
func (s *System[T]) TellB(
	ctx context.Context, urn string, msg message.Message[T],
) error {
	p, ok := s.Processor(urn)
	if !ok {
		return cerrors.ErrActorNotFound.GenWithStackByArgs(urn)
	}
	return p.TellB(ctx, msg)
}

// Schedule implements Scheduler.
func (s *System[T]) Schedule(p *Processor[T]) {
	s.rd.enqueue(p)
}

// Notify implements Scheduler.
func (s *System[T]) Notify() {
	s.rd.cond.Signal()
}

// Interrupt implements Scheduler.
//
// A slice ends when it exceeds the quantum or the batch cap. Below those
// caps the processor may keep running, but every dispatch that happens while
// other processors sit in the ready queue grows its penalty; once the
// penalty reaches the starvation threshold the processor yields as well.
// Workers pick processors in FIFO order, so no ready processor waits for
// more than a bounded number of slices.
func (s *System[T]) Interrupt(p *Processor[T]) Decision {
	if p.SliceMsgCount() >= s.batch || p.SliceRunTime() >= s.quantum {
		p.SetSlicePenalty(0)
		return Yield
	}
	if s.rd.hasWaiting() && p.slicePenalty.Inc() >= s.starvation {
		p.SetSlicePenalty(0)
		return Yield
	}
	return Continue
}

// Run drives the workers until the context is canceled or the system is
// stopped gracefully. It returns the context error on cancellation and nil
// after a graceful Stop.
func (s *System[T]) Run(ctx context.Context) error {
	totalWorkers.WithLabelValues(s.name).Set(float64(s.workerNum))
	defer totalWorkers.WithLabelValues(s.name).Set(0)

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		select {
		case <-ctx.Done():
			s.rd.close()
			return errors.Trace(ctx.Err())
		case <-s.stopped:
			s.rd.close()
			return nil
		}
	})
	for i := 0; i < s.workerNum; i++ {
		errg.Go(func() error {
			return s.poll(ctx)
		})
	}
	return errg.Wait()
}

// Stop shuts the system down gracefully: every live processor receives a
// termination signal and drains its mailbox before the workers exit. The ctx
// bounds how long Stop waits; on expiry the workers are released anyway and
// the context error is returned.
func (s *System[T]) Stop(ctx context.Context) error {
	s.procMu.Lock()
	if s.stopping {
		s.procMu.Unlock()
		return cerrors.ErrSystemStopped.GenWithStackByArgs()
	}
	s.stopping = true
	procs := make([]*Processor[T], 0, len(s.procs))
	for _, p := range s.procs {
		procs = append(procs, p)
	}
	if len(procs) == 0 {
		s.drainedOnce.Do(func() { close(s.drained) })
	}
	s.procMu.Unlock()

	for _, p := range procs {
		if p.State() == StateCompleted {
			continue
		}
		if err := p.TellB(ctx, message.StopMessage[T]()); err != nil {
			break
		}
	}
	var err error
	select {
	case <-s.drained:
	case <-ctx.Done():
		err = errors.Trace(ctx.Err())
	}
	s.stoppedOnce.Do(func() { close(s.stopped) })
	return err
}

func (s *System[T]) poll(ctx context.Context) error {
	for {
		p, ok := s.rd.dequeue()
		if !ok {
			return nil
		}
		workingWorkers.WithLabelValues(s.name).Inc()
		begin := s.clk.Mono()
		err := s.execute(ctx, p)
		elapsed := s.clk.Mono().Sub(begin)
		workingWorkers.WithLabelValues(s.name).Dec()
		workingDuration.WithLabelValues(s.name).Add(elapsed.Seconds())
		processedMessages.WithLabelValues(s.name).Add(float64(p.SliceMsgCount()))
		sliceDuration.WithLabelValues(s.name).Observe(elapsed.Seconds())
		if err != nil {
			// A failure outside the recovered actor-fault path is fatal for
			// the processor, not for the system. Surface it and retire the
			// processor instead of leaving it half-registered.
			log.Error("failed to execute processor, retiring it",
				zap.String("system", s.name),
				zap.String("urn", p.URN()),
				zap.Error(err))
			s.retire(p)
			continue
		}
		if p.State() == StateCompleted {
			s.retire(p)
			continue
		}
		s.rd.finish(p)
	}
}

func (s *System[T]) execute(ctx context.Context, p *Processor[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = cerrors.ErrProcessorPanic.GenWithStackByArgs(p.URN(), r)
		}
	}()
	return p.Execute(ctx)
}

func (s *System[T]) retire(p *Processor[T]) {
	p.setState(StateCompleted)
	s.rd.retire(p)
	s.procMu.Lock()
	delete(s.procs, p.URN())
	remaining, stopping := len(s.procs), s.stopping
	s.procMu.Unlock()
	if stopping && remaining == 0 {
		s.drainedOnce.Do(func() { close(s.drained) })
	}
}
