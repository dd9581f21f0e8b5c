package peer

import "github.com/rpschain/rpschain/chain"

// bufferAppend adds tx to the buffer if an equal-key transaction is not
// already present. Callers hold n.mu.
func (n *Node) bufferAppend(tx chain.Transaction) {
	key := tx.Key()
	for _, existing := range n.buffer {
		if existing.Key() == key {
			return
		}
	}
	n.buffer = append(n.buffer, tx)
}

// bufferHas reports whether the buffer already holds a transaction of
// kind k for matchID/peer. Callers hold n.mu.
func (n *Node) bufferHas(k chain.Kind, matchID string, peerID int) bool {
	for _, tx := range n.buffer {
		if tx.Kind == k && tx.MatchID == matchID && tx.Peer == peerID {
			return true
		}
	}
	return false
}

// bufferClean removes every transaction already carried by any block of
// the chain, so a newly mined block never duplicates one the chain already
// carries. Callers hold n.mu.
func (n *Node) bufferClean() {
	mined := make(map[string]bool)
	for _, blk := range n.chainState.Blocks {
		for _, tx := range blk.Transactions {
			mined[tx.Key()] = true
		}
	}
	kept := n.buffer[:0]
	for _, tx := range n.buffer {
		if !mined[tx.Key()] {
			kept = append(kept, tx)
		}
	}
	n.buffer = kept
}

// bufferSnapshot copies the buffer out for use in a block candidate,
// leaving the original untouched so a preempted mining attempt can
// retry with the buffer's latest contents. Callers hold n.mu.
func (n *Node) bufferSnapshot() []chain.Transaction {
	out := make([]chain.Transaction, len(n.buffer))
	copy(out, n.buffer)
	return out
}
