package peer

import (
	"fmt"
	"log"

	"github.com/rpschain/rpschain/chain"
	"github.com/rpschain/rpschain/events"
	"github.com/rpschain/rpschain/match"
	"github.com/rpschain/rpschain/wire"
)

// PlayMatch runs one full commit-reveal round against opponentID at
// opponentAddr, assigned by the tracker. It is the player task: it
// generates this node's secret move, exchanges commitments and reveals
// directly with the opponent over TCP, computes the local result, and
// folds the match's transactions into the buffer for the next block.
//
// Steps: generate move+key, commit locally, send commit, wait for the
// opponent's commit, send reveal, wait for the opponent's reveal,
// resolve the winner, buffer the result, and — if this node won the
// mining election for the pairing — start mining. The tracker is told
// the outcome either way.
func (n *Node) PlayMatch(matchID string, opponentID int, opponentAddr string) error {
	move, err := match.GenerateMove()
	if err != nil {
		return err
	}
	key, err := match.GenerateKey()
	if err != nil {
		return err
	}
	hash := chain.CommitHash(move, key)
	commitTx := chain.NewCommit(matchID, n.ID, hash)

	n.mu.Lock()
	n.currentMatchID = matchID
	n.commits[matchID] = commitRecord{move: move, key: key}
	n.bufferAppend(commitTx)
	n.mu.Unlock()

	if err := sendOnce(opponentAddr, wire.Message{
		Type: wire.MsgCommit, PeerID: n.ID, MatchID: matchID, Hash: hash,
	}); err != nil {
		return fmt.Errorf("send commit: %w", err)
	}

	n.mu.Lock()
	gotOppCommit := n.waitForLocked(n.cfg.MatchStepTimeout, func() bool {
		return n.bufferHas(chain.KindCommit, matchID, opponentID)
	})
	n.mu.Unlock()
	if !gotOppCommit {
		return fmt.Errorf("match %s: timed out waiting for opponent's commit", matchID)
	}

	revealTx := chain.NewReveal(matchID, n.ID, move, key)
	n.mu.Lock()
	n.bufferAppend(revealTx)
	n.mu.Unlock()

	if err := sendOnce(opponentAddr, wire.Message{
		Type: wire.MsgReveal, PeerID: n.ID, MatchID: matchID, Move: string(move), Key: key,
	}); err != nil {
		return fmt.Errorf("send reveal: %w", err)
	}

	n.mu.Lock()
	gotOppReveal := n.waitForLocked(n.cfg.MatchStepTimeout, func() bool {
		return n.bufferHas(chain.KindReveal, matchID, opponentID)
	})
	var oppReveal chain.Transaction
	if gotOppReveal {
		for _, tx := range n.buffer {
			if tx.Kind == chain.KindReveal && tx.MatchID == matchID && tx.Peer == opponentID {
				oppReveal = tx
				break
			}
		}
	}
	n.currentMatchID = ""
	n.mu.Unlock()
	if !gotOppReveal {
		return fmt.Errorf("match %s: timed out waiting for opponent's reveal", matchID)
	}

	lowPeer, lowMove, highPeer, highMove := n.ID, move, opponentID, oppReveal.Move
	if lowPeer > highPeer {
		lowPeer, lowMove, highPeer, highMove = highPeer, oppReveal.Move, lowPeer, move
	}
	winner, tie := chain.Resolve(lowPeer, lowMove, highPeer, highMove)
	resultTx := chain.NewResult(matchID, winner, tie)

	n.mu.Lock()
	n.bufferAppend(resultTx)
	n.mu.Unlock()

	n.emit(events.Event{Type: events.EventMatchComplete, MatchID: matchID,
		Data: map[string]any{"winner": winner, "tie": tie}})

	if err := n.sendTracker(wire.Message{
		Type: wire.MsgGameEnd, MatchID: matchID, Winner: winner, Tie: tie,
	}); err != nil {
		log.Printf("[peer %d] report game_end for %s: %v", n.ID, matchID, err)
	}

	if isElectedMiner(n.ID, opponentID) {
		n.startMining([]chain.Transaction{commitTx, revealTx, resultTx})
	}
	return nil
}

// onCommit records an opponent's commit transaction and wakes any
// waiter (PlayMatch's wait for the opponent's commit) blocked on seeing
// it arrive.
func (n *Node) onCommit(msg wire.Message) {
	tx := chain.NewCommit(msg.MatchID, msg.PeerID, msg.Hash)
	n.mu.Lock()
	n.bufferAppend(tx)
	n.cond.Broadcast()
	n.mu.Unlock()
}

// onReveal records an opponent's reveal transaction and wakes any
// waiter blocked on seeing it arrive.
func (n *Node) onReveal(msg wire.Message) {
	tx := chain.NewReveal(msg.MatchID, msg.PeerID, chain.Move(msg.Move), msg.Key)
	n.mu.Lock()
	n.bufferAppend(tx)
	n.cond.Broadcast()
	n.mu.Unlock()
}
