// Package cos provides common low-level types and utilities for cryptic workers
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package cos

import (
	"github.com/google/uuid"
	"github.com/teris-io/shortid"
)

// Alphabet for generating short connection ties, shortid.DEFAULT_ABC reordered
const tieABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

var sid = shortid.MustNew(4 /*worker*/, tieABC, 2026)

//
// UUID
//

// GenUUID returns a correlation tag. Tags must be globally unique for the
// lifetime of the process; the broker echoes them verbatim.
func GenUUID() string {
	return uuid.NewString()
}

// GenTie returns a short id correlating the log lines of one connection
// epoch (connect..reconnect). Not a tag: never goes on the wire.
func GenTie() string {
	return sid.MustGenerate()
}

func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
