// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package async provides panic-safe goroutine scheduling for fire-and-forget
// background work. Intake handlers use it to schedule pipeline runs without
// a panic in one run taking down the HTTP server.
package async

import (
	"context"
	"runtime/debug"
)

// PanicReport captures a panic recovered from a scheduled goroutine.
//
// # Fields
//
//   - Value: the value passed to panic()
//   - Stack: full stack trace at panic time, for logs only — never for
//     client-visible error strings
type PanicReport struct {
	Value interface{}
	Stack string
}

// SafeGo runs fn in a goroutine with panic recovery.
//
// # Description
//
// If fn panics, the panic is caught and handed to onPanic instead of
// crashing the process. onPanic may be nil to recover silently.
//
// # Example
//
//	async.SafeGo(func() {
//	    runner.Run(ctx, id, req)
//	}, func(r async.PanicReport) {
//	    slog.Error("pipeline run panicked", "panic", r.Value)
//	})
//
// # Limitations
//
//   - onPanic runs synchronously in the recovered goroutine; if it panics
//     itself the process will crash
func SafeGo(fn func(), onPanic func(PanicReport)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if onPanic != nil {
					onPanic(PanicReport{Value: r, Stack: string(debug.Stack())})
				}
			}
		}()
		fn()
	}()
}

// SafeGoWithContext is like SafeGo but skips execution when ctx is already
// cancelled. fn should still watch ctx.Done() itself for long operations.
func SafeGoWithContext(ctx context.Context, fn func(), onPanic func(PanicReport)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if onPanic != nil {
					onPanic(PanicReport{Value: r, Stack: string(debug.Stack())})
				}
			}
		}()

		select {
		case <-ctx.Done():
			return
		default:
			fn()
		}
	}()
}
