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

// Package registry maps actor implementation names to constructors. The
// embedding application owns a Registry, populates it at startup and
// resolves factories at spawn time; there is no ambient global state and no
// dynamic loading.
package registry

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/troupe-io/troupe/pkg/actor"
	cerrors "github.com/troupe-io/troupe/pkg/errors"
)

// Factory constructs a fresh actor instance.
type Factory[T any] func() actor.Actor[T]

// Registry resolves actor implementation names into factories.
// It is safe for concurrent use.
type Registry[T any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// New creates an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		factories: make(map[string]Factory[T]),
	}
}

// Register binds a name to a factory. Registering the same name twice is an
// error.
func (r *Registry[T]) Register(name string, f Factory[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return cerrors.ErrFactoryDuplicate.GenWithStackByArgs(name)
	}
	r.factories[name] = f
	return nil
}

// MustRegister is like Register but panics on a duplicate name. It is meant
// for startup wiring where a duplicate is a programming error.
func (r *Registry[T]) MustRegister(name string, f Factory[T]) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Resolve returns the factory registered under the name.
func (r *Registry[T]) Resolve(name string) (Factory[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, cerrors.ErrFactoryNotFound.GenWithStackByArgs(name)
	}
	return f, nil
}

// Names returns all registered names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewURN derives a unique resource name for one instance of the named actor
// implementation.
func NewURN(name string) string {
	return "urn:troupe:" + name + ":" + uuid.NewString()
}
