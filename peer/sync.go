package peer

import (
	"fmt"
	"log"

	"github.com/rpschain/rpschain/chain"
	"github.com/rpschain/rpschain/events"
	"github.com/rpschain/rpschain/wire"
)

// requestChain asks addr for its full chain and, if the response
// validates end to end and outgrows ours, adopts it wholesale. A chain
// only ever replaces the local one in full — there is no incremental
// splice beyond the depth-1 fork handled in Chain.Add, matching the
// system's single-depth reorg limit.
func (n *Node) requestChain(addr string) error {
	c, err := wire.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer c.Close()

	if err := c.SetDeadline(n.cfg.ChainRequestTimeout); err != nil {
		return err
	}
	if err := c.Send(wire.Message{Type: wire.MsgChainRequest}); err != nil {
		return err
	}
	resp, err := c.Receive()
	if err != nil {
		return err
	}
	if resp.Type != wire.MsgChainResponse {
		return fmt.Errorf("expected chain_response, got %s", resp.Type)
	}
	return n.adoptChain(resp.Chain)
}

// adoptChain validates candidate block by block from genesis and, only
// if every block checks out and it is longer than the current chain,
// replaces the local chain in its entirety.
func (n *Node) adoptChain(candidate []*chain.Block) error {
	if len(candidate) == 0 {
		return fmt.Errorf("empty candidate chain")
	}
	replacement, err := chain.New()
	if err != nil {
		return err
	}
	replacement.Blocks = candidate[:1]

	for i := 1; i < len(candidate); i++ {
		if _, err := replacement.Add(candidate[i]); err != nil {
			return fmt.Errorf("candidate chain invalid at block %d: %w", i, err)
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if replacement.Height() <= n.chainState.Height() {
		return nil
	}
	n.chainState = replacement
	n.bufferClean()
	n.cond.Broadcast()
	n.emit(events.Event{Type: events.EventChainResynced, Height: n.chainState.Height()})
	return nil
}

// onChainRequest replies with a full copy of the local chain.
func (n *Node) onChainRequest(c *wire.Conn) {
	n.mu.Lock()
	blocks := make([]*chain.Block, len(n.chainState.Blocks))
	copy(blocks, n.chainState.Blocks)
	n.mu.Unlock()

	if err := c.Send(wire.Message{Type: wire.MsgChainResponse, Chain: blocks}); err != nil {
		log.Printf("[peer %d] send chain_response: %v", n.ID, err)
	}
}

// resyncAfter runs selfCheck and, if it fails, requests the full chain
// from senderID — the peer whose proposal was just handled — and
// adopts it on success. This is what spec.md's self-check failure path
// calls: a local chain that no longer validates from genesis must be
// replaced wholesale rather than silently mined on top of.
func (n *Node) resyncAfter(senderID int) {
	if err := n.selfCheck(); err == nil {
		return
	}
	n.mu.Lock()
	addr, ok := n.directory[senderID]
	n.mu.Unlock()
	if !ok {
		log.Printf("[peer %d] self-check failed and sender %d is not in the directory", n.ID, senderID)
		return
	}
	if err := n.requestChain(addr.Addr); err != nil {
		log.Printf("[peer %d] resync from peer %d after self-check failure: %v", n.ID, senderID, err)
	}
}

// selfCheck verifies the local chain still validates from genesis. It
// exists to catch state corruption early during development and testing
// rather than silently mining on top of a broken chain. It only reads
// the chain; the buffer is not touched.
func (n *Node) selfCheck() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	blocks := n.chainState.Blocks
	check := &chain.Chain{Blocks: blocks[:1]}
	for i := 1; i < len(blocks); i++ {
		if _, err := check.Add(blocks[i]); err != nil {
			return fmt.Errorf("chain self-check failed at block %d: %w", i, err)
		}
	}
	return nil
}
