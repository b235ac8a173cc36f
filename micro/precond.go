// Package micro implements the worker-side session engine of the cryptic
// messaging fabric.
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package micro

import (
	"errors"
	"fmt"
)

type (
	// Precondition inspects a user request before its handler runs. It may
	// reject the request by returning *AbortError (the request is answered
	// with that payload) or any other error (treated as a handler failure).
	Precondition func(data Payload, userID string) error

	// AbortError short-circuits a request with a caller-visible payload.
	AbortError struct {
		Payload Payload
	}
)

func (e *AbortError) Error() string {
	return fmt.Sprintf("request aborted: %v", e.Payload)
}

// Abort builds the error a precondition returns to answer the request with
// payload, typically {"error": ...}.
func Abort(payload Payload) *AbortError {
	return &AbortError{Payload: payload}
}

// WithPreconditions chains preconditions in order before handler. The first
// *AbortError answers the request with its payload; any other error stops
// the chain and is handled like a failure inside handler itself.
func WithPreconditions(handler UserHandler, pres ...Precondition) UserHandler {
	return func(data Payload, userID string) (Payload, error) {
		for _, pre := range pres {
			if err := pre(data, userID); err != nil {
				var abort *AbortError
				if errors.As(err, &abort) {
					return abort.Payload, nil
				}
				return nil, err
			}
		}
		return handler(data, userID)
	}
}
