// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package-level default logger.
//
// A Runtime takes its own logger via WithLogger; this file only supplies
// the fallback used when a caller doesn't configure one, following the
// same "global default, instance can override" shape as the event loop's
// SetStructuredLogger / getGlobalLogger pair, but wired to the real
// logiface + stumpy packages instead of a hand-rolled LogEntry type.

package rt

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var (
	defaultLoggerOnce sync.Once
	defaultLoggerInst *logiface.Logger[*stumpy.Event]
)

// defaultLogger returns the package default logger: stumpy backed, with
// a writer that drops every event, at the library's default level. Runtimes that
// care about log output should pass WithLogger explicitly.
func defaultLogger() *logiface.Logger[*stumpy.Event] {
	defaultLoggerOnce.Do(func() {
		defaultLoggerInst = stumpy.L.New(
			stumpy.L.WithStumpy(),
			stumpy.L.WithWriter(logiface.WriterFunc[*stumpy.Event](func(*stumpy.Event) error {
				return nil
			})),
		)
	})
	return defaultLoggerInst
}

func logTaskDestroyed(logger *logiface.Logger[*stumpy.Event], id uint64) {
	logger.Debug().Uint64(`task_id`, id).Log(`destroyed the task`)
}

func logTaskPanic(logger *logiface.Logger[*stumpy.Event], id uint64, v any) {
	logger.Err().Uint64(`task_id`, id).Any(`panic`, v).Log(`spawned task panicked, treating as complete`)
}

func logWakerPanic(logger *logiface.Logger[*stumpy.Event], v any) {
	logger.Err().Any(`panic`, v).Log(`waker invocation panicked`)
}

func logSelectorError(logger *logiface.Logger[*stumpy.Event], err error) {
	logger.Err().Err(err).Log(`selector wait failed`)
}

func logSpawn(logger *logiface.Logger[*stumpy.Event], id uint64) {
	logger.Debug().Uint64(`task_id`, id).Log(`spawned task`)
}

func logShutdown(logger *logiface.Logger[*stumpy.Event], runtimeID string) {
	logger.Info().Str(`runtime_id`, runtimeID).Log(`runtime shutting down`)
}
