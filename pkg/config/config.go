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

// Package config holds the runtime configuration of the actor runtime.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
	cerrors "github.com/troupe-io/troupe/pkg/errors"
	"github.com/troupe-io/troupe/pkg/logutil"
)

// TomlDuration is a duration with a custom json decoder and toml decoder
type TomlDuration time.Duration

// UnmarshalText is the toml decoder
func (d *TomlDuration) UnmarshalText(text []byte) error {
	stdDuration, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Trace(err)
	}
	*d = TomlDuration(stdDuration)
	return nil
}

// SchedulerConfig configures one actor system.
type SchedulerConfig struct {
	// WorkerNumber is the number of worker goroutines that execute
	// processor slices.
	WorkerNumber int `toml:"worker-number" json:"worker-number"`
	// MailboxCapacity bounds every mailbox created by Spawn. A Tell against
	// a full mailbox fails with ErrMailboxFull instead of blocking.
	MailboxCapacity int `toml:"mailbox-capacity" json:"mailbox-capacity"`
	// Quantum is the wall time budget of one slice.
	Quantum TomlDuration `toml:"quantum" json:"quantum"`
	// Batch is the maximum number of messages of one slice.
	Batch int64 `toml:"batch" json:"batch"`
	// StarvationThreshold is the number of dispatches a processor may
	// survive while others wait before it must yield.
	StarvationThreshold int64 `toml:"starvation-threshold" json:"starvation-threshold"`
}

// Config is the top level configuration of the runtime.
type Config struct {
	Log       logutil.Config  `toml:"log" json:"log"`
	Scheduler SchedulerConfig `toml:"scheduler" json:"scheduler"`
}

// GetDefaultSchedulerConfig returns the default scheduler configuration.
func GetDefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		WorkerNumber:        4,
		MailboxCapacity:     1024,
		Quantum:             TomlDuration(100 * time.Millisecond),
		Batch:               128,
		StarvationThreshold: 16,
	}
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Log:       logutil.Config{Level: "info"},
		Scheduler: *GetDefaultSchedulerConfig(),
	}
}

// ValidateAndAdjust validates the configuration and fills in defaults for
// unset fields.
func (c *Config) ValidateAndAdjust() error {
	c.Log.Adjust()
	return c.Scheduler.ValidateAndAdjust()
}

// ValidateAndAdjust validates the scheduler configuration and fills in
// defaults for unset fields.
func (c *SchedulerConfig) ValidateAndAdjust() error {
	defaultCfg := GetDefaultSchedulerConfig()
	if c.WorkerNumber == 0 {
		c.WorkerNumber = defaultCfg.WorkerNumber
	}
	if c.WorkerNumber < 0 {
		return cerrors.ErrInvalidSchedulerConfig.GenWithStackByArgs(
			"worker-number must be positive")
	}
	if c.MailboxCapacity == 0 {
		c.MailboxCapacity = defaultCfg.MailboxCapacity
	}
	if c.MailboxCapacity < 0 {
		return cerrors.ErrInvalidSchedulerConfig.GenWithStackByArgs(
			"mailbox-capacity must be positive")
	}
	if c.Quantum == 0 {
		c.Quantum = defaultCfg.Quantum
	}
	if c.Quantum < 0 {
		return cerrors.ErrInvalidSchedulerConfig.GenWithStackByArgs(
			"quantum must be positive")
	}
	if c.Batch == 0 {
		c.Batch = defaultCfg.Batch
	}
	if c.Batch < 0 {
		return cerrors.ErrInvalidSchedulerConfig.GenWithStackByArgs(
			"batch must be positive")
	}
	if c.StarvationThreshold == 0 {
		c.StarvationThreshold = defaultCfg.StarvationThreshold
	}
	if c.StarvationThreshold < 0 {
		return cerrors.ErrInvalidSchedulerConfig.GenWithStackByArgs(
			"starvation-threshold must be positive")
	}
	return nil
}

// FromTomlFile loads the configuration from a toml file and validates it.
func FromTomlFile(path string) (*Config, error) {
	cfg := GetDefaultConfig()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, cerrors.WrapError(cerrors.ErrInvalidSchedulerConfig, err,
			err.Error())
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		return nil, cerrors.ErrInvalidSchedulerConfig.GenWithStackByArgs(
			"unknown config key " + keys[0].String())
	}
	if err := cfg.ValidateAndAdjust(); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}
