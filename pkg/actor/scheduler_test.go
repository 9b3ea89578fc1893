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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/troupe-io/troupe/pkg/actor/message"
	"github.com/troupe-io/troupe/pkg/clock"
	"github.com/troupe-io/troupe/pkg/config"
	cerrors "github.com/troupe-io/troupe/pkg/errors"
)

func TestSystemBuilder(t *testing.T) {
	t.Parallel()

	b := NewSystemBuilder[int]("test")
	defaultCfg := config.GetDefaultSchedulerConfig()
	require.Equal(t, defaultCfg.WorkerNumber, b.workerNum)
	require.Equal(t, defaultCfg.MailboxCapacity, b.mailboxCap)
	require.Equal(t, time.Duration(defaultCfg.Quantum), b.quantum)
	require.Equal(t, defaultCfg.Batch, b.batch)
	require.Equal(t, defaultCfg.StarvationThreshold, b.starvation)

	require.Equal(t, 1, b.WorkerNumber(0).workerNum)
	require.Equal(t, maxWorkerNum, b.WorkerNumber(1<<16).workerNum)
	require.Equal(t, 2, b.WorkerNumber(2).workerNum)

	sys := b.Quantum(time.Second).Batch(7).StarvationThreshold(3).Build()
	require.Equal(t, time.Second, sys.quantum)
	require.Equal(t, int64(7), sys.batch)
	require.Equal(t, int64(3), sys.starvation)
	require.Equal(t, 2, sys.workerNum)
}

func TestSystemBuilderWithConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.SchedulerConfig{
		WorkerNumber:        3,
		MailboxCapacity:     16,
		Quantum:             config.TomlDuration(50 * time.Millisecond),
		Batch:               9,
		StarvationThreshold: 5,
	}
	sys := NewSystemBuilder[int]("test").WithConfig(cfg).Build()
	require.Equal(t, 3, sys.workerNum)
	require.Equal(t, 16, sys.mailboxCap)
	require.Equal(t, 50*time.Millisecond, sys.quantum)
	require.Equal(t, int64(9), sys.batch)
	require.Equal(t, int64(5), sys.starvation)
}

func TestSystemSpawnAndStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sys := NewSystemBuilder[string]("spawn").WorkerNumber(2).Build()
	runDone := make(chan error, 1)
	go func() {
		runDone <- sys.Run(ctx)
	}()

	a := &recorder{}
	_, err := sys.Spawn(ctx, "urn:troupe:echo:1", a)
	require.Nil(t, err)
	require.Equal(t, 1, sys.NumProcessors())

	_, err = sys.Spawn(ctx, "urn:troupe:echo:1", &recorder{})
	require.True(t, cerrors.Is(err, cerrors.ErrActorDuplicate))

	require.Nil(t, sys.Tell("urn:troupe:echo:1", message.ValueMessage("a")))
	require.Nil(t, sys.Tell("urn:troupe:echo:1", message.ValueMessage("b")))
	err = sys.Tell("urn:troupe:missing", message.ValueMessage("x"))
	require.True(t, cerrors.Is(err, cerrors.ErrActorNotFound))

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.Nil(t, sys.Stop(stopCtx))
	require.Nil(t, <-runDone)

	require.Equal(t, []string{"a", "b"}, a.outputs)
	require.Equal(t, 1, a.started)
	require.Equal(t, 1, a.stopped)
	require.Equal(t, 0, sys.NumProcessors())

	// The system is terminal after Stop.
	_, err = sys.Spawn(ctx, "urn:troupe:echo:2", &recorder{})
	require.True(t, cerrors.Is(err, cerrors.ErrSystemStopped))
	err = sys.Stop(context.Background())
	require.True(t, cerrors.Is(err, cerrors.ErrSystemStopped))
}

func TestSystemRunCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	sys := NewSystemBuilder[string]("cancel").WorkerNumber(2).Build()
	runDone := make(chan error, 1)
	go func() {
		runDone <- sys.Run(ctx)
	}()
	cancel()
	require.ErrorIs(t, <-runDone, context.Canceled)
}

// seq appends "<prefix><n>" entries to a log shared between actors.
type seq struct {
	prefix string
	n      int
	mu     *sync.Mutex
	log    *[]string
}

func (a *seq) Receive(ctx context.Context, msg message.Message[string]) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.n++
	*a.log = append(*a.log, a.prefix+string(rune('0'+a.n)))
	return nil
}

func TestSystemFairness(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	// One worker, one message per slice: two busy processors must
	// alternate strictly, neither can hold the worker for a whole backlog.
	sys := NewSystemBuilder[string]("fairness").WorkerNumber(1).Batch(1).Build()

	var mu sync.Mutex
	var combined []string
	a1 := &seq{prefix: "a", mu: &mu, log: &combined}
	a2 := &seq{prefix: "b", mu: &mu, log: &combined}
	p1, err := sys.Spawn(ctx, "urn:troupe:seq:1", a1)
	require.Nil(t, err)
	p2, err := sys.Spawn(ctx, "urn:troupe:seq:2", a2)
	require.Nil(t, err)
	for i := 0; i < 3; i++ {
		require.Nil(t, p1.Tell(message.ValueMessage("x")))
		require.Nil(t, p2.Tell(message.ValueMessage("x")))
	}

	// Messages are queued before the first worker starts, so the
	// interleaving is deterministic.
	runDone := make(chan error, 1)
	go func() {
		runDone <- sys.Run(ctx)
	}()
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.Nil(t, sys.Stop(stopCtx))
	require.Nil(t, <-runDone)

	require.Equal(t, []string{"a1", "b1", "a2", "b2", "a3", "b3"}, combined)
	require.Equal(t, int64(3), p1.TotalMsgCount())
	require.Equal(t, int64(3), p2.TotalMsgCount())
}

func TestSystemInterruptPolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.NewMock()
	sys := NewSystemBuilder[string]("policy").
		Quantum(100 * time.Millisecond).
		Batch(10).
		StarvationThreshold(3).
		Clock(clk).
		Build()
	// No worker runs, the processor stays in the ready queue and counts as
	// waiting work for the starvation policy.
	p, err := sys.Spawn(ctx, "urn:troupe:policy:1", &recorder{})
	require.Nil(t, err)
	other, err := sys.Spawn(ctx, "urn:troupe:policy:2", &recorder{})
	require.Nil(t, err)
	require.NotNil(t, other)

	// Below every cap the processor may continue, but each survived
	// interrupt while others wait grows the penalty until it must yield.
	require.Equal(t, Continue, sys.Interrupt(p))
	require.Equal(t, int64(1), p.SlicePenalty())
	require.Equal(t, Continue, sys.Interrupt(p))
	require.Equal(t, Yield, sys.Interrupt(p))
	require.Equal(t, int64(0), p.SlicePenalty())

	// The batch cap ends a slice regardless of run time.
	p.sliceMsgCount.Store(10)
	require.Equal(t, Yield, sys.Interrupt(p))
	p.sliceMsgCount.Store(0)

	// The quantum ends a slice regardless of message count.
	p.sliceRunTime.Store(100 * time.Millisecond)
	require.Equal(t, Yield, sys.Interrupt(p))
}

// badStopper panics in OnStop, outside the recovered dispatch path.
type badStopper struct{}

func (a *badStopper) Receive(
	ctx context.Context, msg message.Message[string],
) error {
	return nil
}

func (a *badStopper) OnStop(ctx context.Context) error {
	panic("cannot stop")
}

func TestSystemRetiresProcessorOnPanicOutsideDispatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sys := NewSystemBuilder[string]("retire").WorkerNumber(1).Build()
	runDone := make(chan error, 1)
	go func() {
		runDone <- sys.Run(ctx)
	}()

	_, err := sys.Spawn(ctx, "urn:troupe:bad:1", &badStopper{})
	require.Nil(t, err)
	require.Nil(t, sys.Tell("urn:troupe:bad:1", message.StopMessage[string]()))

	// The failure is fatal for the processor only, the system keeps
	// running and the processor is retired rather than left half-dead.
	require.Eventually(t, func() bool {
		return sys.NumProcessors() == 0
	}, 5*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.Nil(t, sys.Stop(stopCtx))
	require.Nil(t, <-runDone)
}
