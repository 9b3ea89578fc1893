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

package registry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/troupe-io/troupe/pkg/actor"
	"github.com/troupe-io/troupe/pkg/actor/message"
	cerrors "github.com/troupe-io/troupe/pkg/errors"
)

type nopActor struct{}

func (a *nopActor) Receive(
	ctx context.Context, msg message.Message[string],
) error {
	return nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := New[string]()
	require.Empty(t, r.Names())

	err := r.Register("nop", func() actor.Actor[string] { return &nopActor{} })
	require.Nil(t, err)
	err = r.Register("nop", func() actor.Actor[string] { return &nopActor{} })
	require.True(t, cerrors.Is(err, cerrors.ErrFactoryDuplicate))

	f, err := r.Resolve("nop")
	require.Nil(t, err)
	require.NotNil(t, f())

	_, err = r.Resolve("missing")
	require.True(t, cerrors.Is(err, cerrors.ErrFactoryNotFound))

	r.MustRegister("other", func() actor.Actor[string] { return &nopActor{} })
	require.Equal(t, []string{"nop", "other"}, r.Names())
	require.Panics(t, func() {
		r.MustRegister("other", func() actor.Actor[string] { return &nopActor{} })
	})
}

func TestNewURN(t *testing.T) {
	t.Parallel()

	urn := NewURN("nop")
	require.True(t, strings.HasPrefix(urn, "urn:troupe:nop:"))
	require.NotEqual(t, urn, NewURN("nop"))
}
