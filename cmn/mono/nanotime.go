//go:build !mono

// Package mono provides low-level monotonic time
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package mono

import "time"

var started = time.Now()

func NanoTime() int64 { return int64(time.Since(started)) }
