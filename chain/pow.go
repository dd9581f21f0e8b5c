package chain

import (
	"strings"
	"sync/atomic"
)

// PowPrefix is the proof-of-work target: a header hash must begin with
// this literal string. Fixed at 4 leading zero hex chars (16 bits of
// difficulty) — spec.md's Non-goals explicitly exclude variable
// difficulty, so this is a constant, not a config knob.
const PowPrefix = "0000"

// PowOK reports whether a header hash satisfies the proof-of-work predicate.
func PowOK(headerHash string) bool {
	return strings.HasPrefix(headerHash, PowPrefix)
}

// Mine searches nonces starting at 0 until the header hash satisfies
// PowOK, mutating blk.Header.Nonce in place. It does not hold any lock —
// callers that need to stop a long-running search pass a non-nil abort
// flag and set it from another goroutine; Mine checks it every
// iteration and returns false if it was set before a solution was found.
func Mine(blk *Block, abort *atomic.Bool) bool {
	for nonce := uint64(0); ; nonce++ {
		if abort != nil && abort.Load() {
			return false
		}
		blk.Header.Nonce = nonce
		h, err := blk.HeaderHash()
		if err != nil {
			return false
		}
		if PowOK(h) {
			return true
		}
	}
}
