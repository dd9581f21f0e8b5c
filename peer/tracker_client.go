package peer

import (
	"fmt"
	"log"

	"github.com/rpschain/rpschain/events"
	"github.com/rpschain/rpschain/wire"
)

// connectTracker dials the tracker, registers this node's address, and
// starts the background loop that reads tracker-initiated messages
// (directory updates and match_start assignments).
func (n *Node) connectTracker() error {
	c, err := wire.Dial(n.trackerAddr)
	if err != nil {
		return fmt.Errorf("connect tracker %s: %w", n.trackerAddr, err)
	}
	if err := c.Send(wire.Message{Type: wire.MsgRegister, PeerID: n.ID, Addr: n.ListenAddr}); err != nil {
		c.Close()
		return fmt.Errorf("register with tracker: %w", err)
	}

	n.mu.Lock()
	n.trackerConn = c
	n.mu.Unlock()

	n.wg.Add(1)
	go n.trackerReadLoop(c)
	return nil
}

func (n *Node) trackerReadLoop(c *wire.Conn) {
	defer n.wg.Done()
	for {
		msg, err := c.Receive()
		if err != nil {
			select {
			case <-n.stopCh:
				return
			default:
				log.Printf("[peer %d] tracker connection lost: %v", n.ID, err)
				return
			}
		}
		n.handleTrackerMessage(msg)
	}
}

func (n *Node) handleTrackerMessage(msg wire.Message) {
	switch msg.Type {
	case wire.MsgRegistered:
		n.mu.Lock()
		n.ID = msg.PeerID
		n.mu.Unlock()
	case wire.MsgDirectory:
		n.onDirectory(msg.Peers)
	case wire.MsgMatchStart:
		n.onMatchStart(msg)
	default:
		log.Printf("[peer %d] unexpected message from tracker: %s", n.ID, msg.Type)
	}
}

// onDirectory replaces the known peer address book.
func (n *Node) onDirectory(peers []wire.PeerAddr) {
	n.mu.Lock()
	n.directory = make(map[int]wire.PeerAddr, len(peers))
	for _, p := range peers {
		n.directory[p.ID] = p
	}
	n.mu.Unlock()
}

// onMatchStart launches the player task for a tracker-assigned pairing.
// It runs in its own goroutine so the tracker read loop is never
// blocked on a match's commit/reveal round trip.
func (n *Node) onMatchStart(msg wire.Message) {
	n.mu.Lock()
	opp, known := n.directory[msg.Opponent]
	n.mu.Unlock()
	if !known {
		log.Printf("[peer %d] match_start for unknown opponent %d", n.ID, msg.Opponent)
		return
	}

	n.emit(events.Event{Type: events.EventMatchStarted, MatchID: msg.MatchID})

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.PlayMatch(msg.MatchID, msg.Opponent, opp.Addr); err != nil {
			log.Printf("[peer %d] match %s: %v", n.ID, msg.MatchID, err)
		}
	}()
}
