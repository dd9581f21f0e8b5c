package tracker

import (
	"github.com/rpschain/rpschain/chain"
	"github.com/rpschain/rpschain/wire"
)

// handlePeerMessage processes a fire-and-forget status report from a
// peer: game_end returns the reporting peer to the idle pool so it can
// be paired again, and blockchain_update records that peer's latest
// known chain for the Chains snapshot accessor.
//
// Each player sends game_end once per match, from PlayMatch; a peer's
// proposal handler does not re-report completion when a block carrying
// the match's RESULT arrives. markIdle still checks idle-pool
// membership before re-adding, so a repeated game_end never queues a
// peer twice.
func (t *Tracker) handlePeerMessage(id int, msg wire.Message) {
	switch msg.Type {
	case wire.MsgGameEnd:
		t.markIdle(id)
	case wire.MsgBlockchainUpdate:
		t.recordChain(id, msg.Chain)
	}
}

func (t *Tracker) markIdle(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.peers[id]
	if !ok || rec.idle {
		return
	}
	rec.idle = true
	for _, pid := range t.idle {
		if pid == id {
			return
		}
	}
	t.idle = append(t.idle, id)
}

func (t *Tracker) recordChain(id int, blocks []*chain.Block) {
	if len(blocks) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chains[id] = blocks
}

// Logs returns a copy of the tracker's recent event log lines.
func (t *Tracker) Logs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.logs))
	copy(out, t.logs)
	return out
}

// Chains returns a copy of the most recent chain each peer has
// reported, keyed by peer ID. This is the read-only snapshot surface
// a future visualizer would build on; nothing in this package renders it.
func (t *Tracker) Chains() map[int][]*chain.Block {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[int][]*chain.Block, len(t.chains))
	for id, blocks := range t.chains {
		cp := make([]*chain.Block, len(blocks))
		copy(cp, blocks)
		out[id] = cp
	}
	return out
}
