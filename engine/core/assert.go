package core

import (
	"fmt"
	"sync/atomic"
)

type AssertionLevel int32

const (
	// AssertionsOff only logs failed assertions.
	AssertionsOff AssertionLevel = iota
	// AssertionsOn panics on a failed assertion.
	AssertionsOn
)

var assertionLevel atomic.Int32

func init() {
	assertionLevel.Store(int32(AssertionsOn))
}

func SetAssertionLevel(level AssertionLevel) {
	assertionLevel.Store(int32(level))
}

func AssertionsEnabled() bool {
	return AssertionLevel(assertionLevel.Load()) == AssertionsOn
}

// Assert flags a programmer error. With assertions on it panics, otherwise the
// message is logged and execution continues.
func Assert(cond bool, msg string, args ...interface{}) {
	if cond {
		return
	}
	text := fmt.Sprintf(msg, args...)
	if AssertionsEnabled() {
		panic("assertion failed: " + text)
	}
	LogError("assertion failed: %s", text)
}
