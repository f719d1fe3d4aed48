// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// runtimeOptions holds configuration options for Runtime creation.
type runtimeOptions struct {
	workers           int
	registryCapacity  int
	wakerListCapacity int
	logger            *logiface.Logger[*stumpy.Event]
}

// RuntimeOption configures a Runtime instance.
type RuntimeOption interface {
	applyRuntime(*runtimeOptions)
}

// runtimeOptionImpl implements RuntimeOption.
type runtimeOptionImpl struct {
	applyFunc func(*runtimeOptions)
}

func (o *runtimeOptionImpl) applyRuntime(opts *runtimeOptions) {
	o.applyFunc(opts)
}

// WithWorkers sets the fixed size of the worker pool. The default, when n
// is <= 0, is runtime.GOMAXPROCS(0).
func WithWorkers(n int) RuntimeOption {
	return &runtimeOptionImpl{func(opts *runtimeOptions) {
		opts.workers = n
	}}
}

// WithRegistryCapacity hints the initial size of the task registry's
// backing map, avoiding rehashing when the expected task count is known
// up front.
func WithRegistryCapacity(n int) RuntimeOption {
	return &runtimeOptionImpl{func(opts *runtimeOptions) {
		opts.registryCapacity = n
	}}
}

// WithWakerListCapacity overrides the default 64-entry cap on the number
// of wakers a single reactor source may accumulate per direction (read or
// write) before AttachWaker panics with ErrWakerListFull.
func WithWakerListCapacity(n int) RuntimeOption {
	return &runtimeOptionImpl{func(opts *runtimeOptions) {
		opts.wakerListCapacity = n
	}}
}

// WithLogger overrides the runtime's structured logger. The default is
// the package-level defaultLogger, which discards every event.
func WithLogger(logger *logiface.Logger[*stumpy.Event]) RuntimeOption {
	return &runtimeOptionImpl{func(opts *runtimeOptions) {
		opts.logger = logger
	}}
}

// resolveRuntimeOptions applies RuntimeOption instances to runtimeOptions.
func resolveRuntimeOptions(opts []RuntimeOption) runtimeOptions {
	cfg := runtimeOptions{
		wakerListCapacity: defaultWakerListCapacity,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyRuntime(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = defaultLogger()
	}
	return cfg
}
