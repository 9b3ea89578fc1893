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

package logutil

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	cerrors "github.com/troupe-io/troupe/pkg/errors"
	"go.uber.org/zap"
)

// Config represents the logging configuration of the runtime.
type Config struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level"`
	// File is the path of the log file, or empty for stderr.
	File string `toml:"file" json:"file"`
}

// Adjust fills in unset fields with default values.
func (cfg *Config) Adjust() {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
}

// InitLogger initializes the global logger. It must be called once, before
// any logging happens.
func InitLogger(cfg *Config) error {
	pcfg := &log.Config{
		Level: cfg.Level,
		File: log.FileLogConfig{
			Filename: cfg.File,
		},
	}
	logger, props, err := log.InitLogger(pcfg)
	if err != nil {
		return cerrors.WrapError(cerrors.ErrInvalidLogConfig, err, err.Error())
	}
	log.ReplaceGlobals(logger, props)
	return nil
}

// ZapErrorFilter wraps zap.Error. If err matches one of the given causes the
// field is dropped, which keeps expected errors such as context.Canceled out
// of the logs.
func ZapErrorFilter(err error, filterCauses ...error) zap.Field {
	cause := errors.Cause(err)
	for _, filterCause := range filterCauses {
		if cause == filterCause {
			return zap.Skip()
		}
	}
	return zap.Error(err)
}
