//go:build debug

// Package provides debug utilities
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package debug

import (
	"fmt"
	"os"
	"strings"

	"github.com/cryptic-game/cryptic-go/cmn/nlog"
)

func ON() bool { return true }

func Infof(format string, a ...any) {
	nlog.InfoDepth(1, fmt.Sprintf("[DEBUG] "+format, a...))
}

func fatal(args ...any) {
	nlog.ErrorDepth(2, "ASSERTION FAILED: "+strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
	os.Exit(1)
}

func Assert(cond bool, args ...any) {
	if !cond {
		fatal(args...)
	}
}

func AssertFunc(f func() bool, args ...any) {
	if !f() {
		fatal(args...)
	}
}

func AssertNoErr(err error) {
	if err != nil {
		fatal(err)
	}
}

func Assertf(cond bool, format string, a ...any) {
	if !cond {
		fatal(fmt.Sprintf(format, a...))
	}
}
