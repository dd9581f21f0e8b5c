package peer

import (
	"log"

	"github.com/rpschain/rpschain/wire"
)

// serveConn handles one inbound connection, which may carry several
// messages in sequence (e.g. a chain_request immediately followed by
// the requester closing once it has the response).
func (n *Node) serveConn(c *wire.Conn) {
	trace := traceID()
	defer c.Close()
	for {
		msg, err := c.Receive()
		if err != nil {
			return
		}
		switch msg.Type {
		case wire.MsgCommit:
			n.onCommit(msg)
		case wire.MsgReveal:
			n.onReveal(msg)
		case wire.MsgBlockProposal:
			if msg.Block != nil {
				n.onBlockProposal(msg.Block, msg.PeerID)
			}
		case wire.MsgChainRequest:
			n.onChainRequest(c)
		default:
			log.Printf("[peer %d][%s] unexpected message from %s: %s", n.ID, trace, c.RemoteAddr(), msg.Type)
		}
	}
}
