package chain

import (
	"encoding/json"
	"fmt"

	"github.com/rpschain/rpschain/crypto"
)

// Kind tags the four fixed transaction shapes this chain carries.
type Kind string

const (
	KindGenesis Kind = "GENESIS"
	KindCommit  Kind = "COMMIT"
	KindReveal  Kind = "REVEAL"
	KindResult  Kind = "RESULT"
)

// Move is one of the three rock-paper-scissors throws.
type Move string

const (
	Rock     Move = "rock"
	Paper    Move = "paper"
	Scissors Move = "scissors"
)

// beats maps a move to the move it defeats (rock>scissors>paper>rock).
var beats = map[Move]Move{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// ValidMove reports whether m is one of the three recognized throws.
func ValidMove(m Move) bool {
	switch m {
	case Rock, Paper, Scissors:
		return true
	default:
		return false
	}
}

// Transaction is a tagged record of one of four kinds. Only the fields
// relevant to Kind are populated; Winner and Tie are pointers so that a
// legitimate zero value (winner 0 on a tie, tie false on a win) can be
// told apart from "field not present on this kind".
type Transaction struct {
	Kind    Kind   `json:"type"`
	MatchID string `json:"match_id,omitempty"`
	Peer    int    `json:"peer,omitempty"`
	Hash    string `json:"hash,omitempty"`
	Move    Move   `json:"move,omitempty"`
	RevealKey string `json:"key,omitempty"`
	Winner  *int   `json:"winner,omitempty"`
	Tie     *bool  `json:"tie,omitempty"`
}

// NewGenesis returns the single marker transaction carried by block 0.
func NewGenesis() Transaction {
	return Transaction{Kind: KindGenesis}
}

// NewCommit builds a peer's binding commitment to a secret move.
func NewCommit(matchID string, peer int, hash string) Transaction {
	return Transaction{Kind: KindCommit, MatchID: matchID, Peer: peer, Hash: hash}
}

// NewReveal builds the opening of a prior commitment.
func NewReveal(matchID string, peer int, move Move, key string) Transaction {
	return Transaction{Kind: KindReveal, MatchID: matchID, Peer: peer, Move: move, RevealKey: key}
}

// NewResult builds the declared outcome of a completed match. winner is 0
// when tie is true.
func NewResult(matchID string, winner int, tie bool) Transaction {
	return Transaction{Kind: KindResult, MatchID: matchID, Winner: &winner, Tie: &tie}
}

// CommitHash is SHA-256(move || key) hex-encoded, the binding value a
// COMMIT carries and a matching REVEAL must reproduce.
func CommitHash(move Move, key string) string {
	return crypto.Hash([]byte(string(move) + key))
}

// Resolve applies the rock-paper-scissors table to two reveals already
// sorted by ascending peer ID, returning the winning peer ID (0 on tie)
// and whether the match tied.
func Resolve(lowPeer int, lowMove Move, highPeer int, highMove Move) (winner int, tie bool) {
	if lowMove == highMove {
		return 0, true
	}
	if beats[lowMove] == highMove {
		return lowPeer, false
	}
	return highPeer, false
}

// Key returns a dedup identity for this transaction within a buffer:
// (kind, match_id, peer) is unique for COMMIT/REVEAL, (kind, match_id) for
// RESULT and GENESIS (peer is always zero on those).
func (tx Transaction) Key() string {
	return fmt.Sprintf("%s:%s:%d", tx.Kind, tx.MatchID, tx.Peer)
}

// CanonicalJSON returns this transaction's fields as a lexicographically
// key-sorted, compact JSON object containing only the fields applicable
// to its Kind — the shape required for it to participate in the header
// hash (see Block.HeaderHash).
func (tx Transaction) CanonicalJSON() (json.RawMessage, error) {
	var fields []field
	switch tx.Kind {
	case KindGenesis:
		fields = []field{{"type", tx.Kind}}
	case KindCommit:
		fields = []field{
			{"hash", tx.Hash},
			{"match_id", tx.MatchID},
			{"peer", tx.Peer},
			{"type", tx.Kind},
		}
	case KindReveal:
		fields = []field{
			{"key", tx.RevealKey},
			{"match_id", tx.MatchID},
			{"move", tx.Move},
			{"peer", tx.Peer},
			{"type", tx.Kind},
		}
	case KindResult:
		winner := 0
		if tx.Winner != nil {
			winner = *tx.Winner
		}
		tie := false
		if tx.Tie != nil {
			tie = *tx.Tie
		}
		fields = []field{
			{"match_id", tx.MatchID},
			{"tie", tie},
			{"type", tx.Kind},
			{"winner", winner},
		}
	default:
		return nil, fmt.Errorf("unknown transaction kind %q", tx.Kind)
	}
	return marshalCanonical(fields)
}
