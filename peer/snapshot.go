package peer

import "github.com/rpschain/rpschain/chain"

// Snapshot is a read-only copy of a node's state at one instant,
// exposed as the only window into a running node: no HTTP dashboard or
// templated view sits on top of it, by design.
type Snapshot struct {
	PeerID    int
	Height    int64
	TipHash   string
	Blocks    []*chain.Block
	Directory []int
	Mining    bool
}

// Snapshot copies out enough state for an observer (a log line, a test
// assertion, a future visualizer) to describe this node without racing
// its background goroutines.
func (n *Node) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()

	blocks := make([]*chain.Block, len(n.chainState.Blocks))
	copy(blocks, n.chainState.Blocks)

	tipHash, _ := n.chainState.Tip().HeaderHash()

	peers := make([]int, 0, len(n.directory))
	for id := range n.directory {
		peers = append(peers, id)
	}

	return Snapshot{
		PeerID:    n.ID,
		Height:    n.chainState.Height(),
		TipHash:   tipHash,
		Blocks:    blocks,
		Directory: peers,
		Mining:    n.pending != nil || n.shouldBroadcast,
	}
}
