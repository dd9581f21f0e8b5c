package peer

import (
	"fmt"
	"log"

	"github.com/rpschain/rpschain/wire"
)

// sendOnce dials addr, writes a single message, and closes the
// connection. Match and block traffic is low-frequency enough that a
// persistent connection per peer pair is not worth the bookkeeping; one
// dial per message keeps the failure mode simple (a dead peer just
// fails this call, nothing else is holding a stale socket open).
func sendOnce(addr string, msg wire.Message) error {
	c, err := wire.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer c.Close()
	return c.Send(msg)
}

// peerAddrs returns a snapshot of the known directory, excluding self.
func (n *Node) peerAddrs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	addrs := make([]string, 0, len(n.directory))
	for id, p := range n.directory {
		if id == n.ID {
			continue
		}
		addrs = append(addrs, p.Addr)
	}
	return addrs
}

// broadcast sends msg to every known peer, logging but not failing on
// individual dial errors. A failed send is not retried, and the
// self-check that triggers a chain_request only catches a local chain
// that no longer validates, not one that is merely behind.
func (n *Node) broadcast(msg wire.Message) {
	for _, addr := range n.peerAddrs() {
		if err := sendOnce(addr, msg); err != nil {
			log.Printf("[peer %d] broadcast %s to %s: %v", n.ID, msg.Type, addr, err)
		}
	}
}

// sendTracker writes msg to the tracker connection.
func (n *Node) sendTracker(msg wire.Message) error {
	n.mu.Lock()
	conn := n.trackerConn
	n.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("peer %d: no tracker connection", n.ID)
	}
	return conn.Send(msg)
}
