// Package wire defines the newline-delimited JSON messages exchanged
// between a tracker and its peers, and directly between peers.
package wire

import (
	"encoding/json"

	"github.com/rpschain/rpschain/chain"
)

// MsgType labels a wire message. The set is fixed: there is no
// version negotiation, matching a single-binary deployment where
// tracker and peer always ship together.
type MsgType string

const (
	// Tracker <-> peer.
	MsgRegister   MsgType = "register"
	MsgRegistered MsgType = "registered"
	MsgDirectory  MsgType = "directory"
	MsgMatchStart MsgType = "match_start"
	MsgGameEnd    MsgType = "game_end"

	// Peer <-> peer.
	MsgCommit         MsgType = "commit"
	MsgReveal         MsgType = "reveal"
	MsgBlockProposal  MsgType = "block_proposal"
	MsgChainRequest   MsgType = "chain_request"
	MsgChainResponse  MsgType = "chain_response"

	// Peer -> tracker, fire-and-forget status reports.
	MsgBlockchainUpdate MsgType = "blockchain_update"
)

// PeerAddr is a dialable peer location as announced in a directory message.
type PeerAddr struct {
	ID   int    `json:"id"`
	Addr string `json:"addr"`
}

// Message is a flat superset of every field any wire message carries.
// Schemas are small and fixed enough that a tagged union of structs
// would add more indirection than it removes; only the fields relevant
// to Type are populated on any given instance.
type Message struct {
	Type MsgType `json:"type"`

	// register / registered
	PeerID int    `json:"peer_id,omitempty"`
	Addr   string `json:"addr,omitempty"`

	// directory
	Peers []PeerAddr `json:"peers,omitempty"`

	// match_start
	MatchID  string `json:"match_id,omitempty"`
	Opponent int    `json:"opponent,omitempty"`

	// commit / reveal (PeerID above doubles as the sender's id)
	Hash string `json:"hash,omitempty"`
	Move string `json:"move,omitempty"`
	Key  string `json:"key,omitempty"`

	// block_proposal / chain_response
	Block *chain.Block   `json:"block,omitempty"`
	Chain []*chain.Block `json:"chain,omitempty"`

	// game_end / blockchain_update
	Winner int  `json:"winner,omitempty"`
	Tie    bool `json:"tie,omitempty"`
	Height int64 `json:"height,omitempty"`
}

// Marshal encodes m as a single compact JSON line, without the
// trailing newline (the caller's Conn appends that on write).
func (m Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}
