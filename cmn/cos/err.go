// Package cos provides common low-level types and utilities for cryptic workers
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package cos

import (
	"errors"
	"fmt"
)

type (
	// ErrNotFound: registry lookups and friends
	ErrNotFound struct {
		what string
	}
	// ErrTimeout: an outbound call that saw no matching reply within its deadline
	ErrTimeout struct {
		what    string
		seconds int64
	}
)

// ErrNotFound

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " does not exist" }

func IsErrNotFound(err error) bool {
	var enf *ErrNotFound
	return errors.As(err, &enf)
}

// ErrTimeout

func NewErrTimeout(what string, seconds int64) *ErrTimeout {
	return &ErrTimeout{what: what, seconds: seconds}
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("%s: no reply within %ds", e.what, e.seconds)
}

func (*ErrTimeout) Timeout() bool { return true }

func IsErrTimeout(err error) bool {
	var et *ErrTimeout
	return errors.As(err, &et)
}

//
// misc
//

func Plural(num int) (s string) {
	if num != 1 {
		s = "s"
	}
	return
}
