/*
 * Copyright (c) 2026 Sqlsh Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logging configures the process-wide zap logger. The shell
// writes its own output straight to the configured sinks; the logger
// carries diagnostics only and stays quiet unless -debug raises the
// level.
package logging

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultConfig returns the base logger configuration. Diagnostics go
// to stderr so they never interleave with query output on stdout.
func DefaultConfig() zap.Config {
	conf := zap.NewProductionConfig()
	conf.Sampling = nil
	conf.OutputPaths = []string{"stderr"}
	conf.EncoderConfig.TimeKey = "time"
	conf.EncoderConfig.LevelKey = "severity"
	conf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	conf.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	conf.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)

	return conf
}

// New builds a logger at the given level, falling back to a no-op
// logger when the config cannot be built.
func New(level zapcore.Level) *zap.Logger {
	conf := DefaultConfig()
	conf.Level = zap.NewAtomicLevelAt(level)
	logger, err := conf.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// ParseLevel maps a level name or numeric level to a zap level.
func ParseLevel(l string) (zapcore.Level, error) {
	l = strings.ToLower(strings.TrimSpace(l))
	switch l {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "dpanic":
		return zapcore.DPanicLevel, nil
	case "panic":
		return zapcore.PanicLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		level, err := strconv.ParseInt(l, 10, 8)
		if err != nil {
			return 0, err
		}
		return zapcore.Level(level), nil
	}
}
