package peer

import (
	"log"
	"sync/atomic"

	"github.com/rpschain/rpschain/chain"
	"github.com/rpschain/rpschain/events"
	"github.com/rpschain/rpschain/wire"
)

// isElectedMiner reports whether this node, not its opponent, is
// responsible for mining the block that carries a just-finished
// match's transactions. The lower peer ID mines; this keeps the two
// match participants from wastefully racing each other on the exact
// same transaction set, while leaving different concurrent match pairs
// free to mine independently — which is exactly how two depth-1 fork
// candidates for the same height arise.
func isElectedMiner(self, opponent int) bool {
	return self < opponent
}

// startMining builds a candidate block on top of the current tip
// carrying matchTxs plus anything else sitting in the buffer, and mines
// it in a background goroutine. Only one mining attempt runs at a time;
// a second call while one is already in flight is a no-op.
func (n *Node) startMining(matchTxs []chain.Transaction) {
	n.mu.Lock()
	if n.miningAbort != nil {
		n.mu.Unlock()
		return
	}
	for _, tx := range matchTxs {
		n.bufferAppend(tx)
	}
	n.bufferClean()
	txs := n.bufferSnapshot()
	tip := n.chainState.Tip()
	tipHash, err := tip.HeaderHash()
	if err != nil {
		n.mu.Unlock()
		log.Printf("[peer %d] hash tip: %v", n.ID, err)
		return
	}
	blk := chain.NewBlock(n.chainState.Height()+1, tipHash, txs)
	abort := &atomic.Bool{}
	n.miningAbort = abort
	n.shouldBroadcast = true
	n.mu.Unlock()

	go n.mineWorker(blk, abort)
}

// mineWorker runs the proof-of-work search and, on success, either
// broadcasts the solution immediately or parks it as pending if a
// competing proposal preempted this attempt while it was running.
func (n *Node) mineWorker(blk *chain.Block, abort *atomic.Bool) {
	found := chain.Mine(blk, abort)

	n.mu.Lock()
	n.miningAbort = nil
	if !found {
		n.mu.Unlock()
		return
	}
	if n.shouldBroadcast {
		n.shouldBroadcast = false
		outcome, err := n.chainState.Add(blk)
		n.cond.Broadcast()
		n.mu.Unlock()
		if err != nil {
			log.Printf("[peer %d] mined block rejected by own chain: %v", n.ID, err)
			return
		}
		n.emitOutcome(outcome, blk)
		n.broadcastBlock(blk)
		n.reportChainToTracker()
		return
	}
	// Preempted: keep the solution in case it turns out to win a
	// depth-1 fork race once the competing proposal is in hand.
	n.pending = blk
	n.cond.Broadcast()
	n.mu.Unlock()
}

// integrateLocked attempts to add blk to the chain; it emits no event,
// the caller does that after releasing n.mu. Callers hold n.mu.
func (n *Node) integrateLocked(blk *chain.Block) (chain.Outcome, error) {
	outcome, err := n.chainState.Add(blk)
	return outcome, err
}

// emitOutcome fires the event corresponding to a successful Add.
func (n *Node) emitOutcome(outcome chain.Outcome, blk *chain.Block) {
	height := blk.Header.Index
	switch outcome {
	case chain.Reorganized:
		n.emit(events.Event{Type: events.EventBlockReorganized, Height: height})
	case chain.Appended:
		n.emit(events.Event{Type: events.EventBlockAppended, Height: height})
	}
}

// broadcastBlock announces blk to every known peer, tagged with this
// node's ID so a recipient whose self-check later fails knows who to
// send a chain_request to.
func (n *Node) broadcastBlock(blk *chain.Block) {
	n.broadcast(wire.Message{Type: wire.MsgBlockProposal, Block: blk, PeerID: n.ID})
}

// onBlockProposal handles an incoming block_proposal message: it
// preempts any in-flight local mining attempt targeting the same
// height, integrates the proposal, and — if that preemption left a
// mined-but-unparked block still in flight — waits briefly for the
// worker to park it in n.pending, then re-mines and rebroadcasts it on
// top of the new tip rather than letting it die as a stale fork
// candidate. Finally it self-checks and resyncs from the sender if the
// local chain no longer validates.
func (n *Node) onBlockProposal(blk *chain.Block, senderID int) {
	n.mu.Lock()
	preempting := n.miningAbort != nil && blk.Header.Index == n.chainState.Height()+1
	if preempting {
		n.shouldBroadcast = false
		n.miningAbort.Store(true)
	}

	outcome, err := n.integrateLocked(blk)
	if err == nil {
		n.bufferClean()
	}

	// The preempted mineWorker is either still searching or blocked on
	// n.mu; give it up to PendingBlockTimeout to finish its search and
	// park its solution in n.pending before giving up on the rescue
	// (spec's cond.wait_for(pending, timeout=300ms)).
	if preempting {
		n.waitForLocked(n.cfg.PendingBlockTimeout, func() bool { return n.pending != nil })
	}
	if n.pending != nil {
		n.remineAndBroadcastPendingLocked()
	}
	n.cond.Broadcast()
	n.mu.Unlock()

	if err != nil {
		n.emit(events.Event{Type: events.EventBlockRejected, Height: blk.Header.Index})
	} else {
		n.emitOutcome(outcome, blk)
		n.reportChainToTracker()
	}

	n.resyncAfter(senderID)
}

// remineAndBroadcastPendingLocked rewrites a preempted-but-mined block
// to extend the current tip — index, prev, and a reset nonce — then
// mines and broadcasts it in the background. The stale pending block
// (built on what is now an old tip) cannot simply be re-added: its
// prev hash no longer matches, so it must be re-mined from scratch
// rather than integrated as-is. Callers hold n.mu.
func (n *Node) remineAndBroadcastPendingLocked() {
	stale := n.pending
	n.pending = nil

	tip := n.chainState.Tip()
	tipHash, err := tip.HeaderHash()
	if err != nil {
		log.Printf("[peer %d] hash tip for pending re-mine: %v", n.ID, err)
		return
	}
	blk := chain.NewBlock(n.chainState.Height()+1, tipHash, stale.Transactions)
	abort := &atomic.Bool{}
	n.miningAbort = abort
	n.shouldBroadcast = true

	go n.mineWorker(blk, abort)
}

// reportChainToTracker sends the tracker a blockchain_update with this
// node's current view of the chain, the fire-and-forget status report
// the Chains snapshot accessor is built from.
func (n *Node) reportChainToTracker() {
	n.mu.Lock()
	blocks := make([]*chain.Block, len(n.chainState.Blocks))
	copy(blocks, n.chainState.Blocks)
	height := n.chainState.Height()
	n.mu.Unlock()

	if err := n.sendTracker(wire.Message{Type: wire.MsgBlockchainUpdate, Chain: blocks, Height: height}); err != nil {
		log.Printf("[peer %d] report blockchain_update: %v", n.ID, err)
	}
}
