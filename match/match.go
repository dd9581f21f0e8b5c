// Package match provides the randomness a peer needs to play one round
// of the commit-reveal protocol: a move and the key that binds its
// commitment.
package match

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/rpschain/rpschain/chain"
)

// moves is the fixed throw set a player task samples from.
var moves = [...]chain.Move{chain.Rock, chain.Paper, chain.Scissors}

// GenerateMove draws one of rock/paper/scissors uniformly at random.
func GenerateMove() (chain.Move, error) {
	var b [1]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return "", fmt.Errorf("match: generate move: %w", err)
		}
		// 255 is the only byte value that would make the modulo uneven.
		if b[0] < 255 {
			return moves[int(b[0])%len(moves)], nil
		}
	}
}

// GenerateKey returns an 8-hex-char random key used to salt a move's
// commitment hash. It is never reused across matches.
func GenerateKey() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("match: generate key: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// ID derives a match identifier from the two participating peer IDs,
// sorted so that both sides compute the same string independent of who
// initiated. The running system does not call it: the match IDs peers
// play under are the tracker-issued "match_N" values carried in
// match_start.
func ID(a, b int, round int) string {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("%d-%d-%d", lo, hi, round)
}
