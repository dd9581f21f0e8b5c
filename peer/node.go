// Package peer implements the node actor: a single goroutine-safe state
// machine holding one peer's view of the chain, playing matches the
// tracker assigns it, and competing to mine and broadcast new blocks.
package peer

import (
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rpschain/rpschain/chain"
	"github.com/rpschain/rpschain/config"
	"github.com/rpschain/rpschain/events"
	"github.com/rpschain/rpschain/wire"
)

// commitRecord is what a peer remembers about its own commitment to a
// match so it can reveal it later without re-deriving the secret.
type commitRecord struct {
	move chain.Move
	key  string
}

// Node is one peer's entire mutable state, guarded by a single mutex.
// Every exported method that touches state takes n.mu; cond wakes
// callers of waitForLocked: a proposal handler waiting for a preempted
// miner to park its block in pending (see mine.go), and PlayMatch
// waiting for the opponent's commit or reveal.
type Node struct {
	ID         int
	ListenAddr string

	cfg     *config.Config
	emitter *events.Emitter

	trackerAddr string
	listener    net.Listener
	stopCh      chan struct{}
	wg          sync.WaitGroup

	mu   sync.Mutex
	cond *sync.Cond

	chainState *chain.Chain

	// buffer holds transactions observed (via commit/reveal messages or
	// gossip) that have not yet been folded into a mined block.
	buffer []chain.Transaction

	// pending is a block this node finished mining but could not
	// broadcast yet because another proposal arrived first and needs to
	// be resolved against it. nil when there is nothing held back.
	pending *chain.Block

	// commits records this node's own move+key per match_id. PlayMatch
	// builds its REVEAL from its local copies; nothing reads this map.
	commits map[string]commitRecord

	// directory is the tracker-announced peer ID -> dialable address map.
	directory map[int]wire.PeerAddr

	// shouldBroadcast is set when a mining attempt starts; a competing
	// proposal arriving mid-mine clears it to preempt the local attempt,
	// and mineWorker clears it once it has published its solution.
	shouldBroadcast bool

	// currentMatchID is the match this node is actively playing, if any.
	currentMatchID string

	// miningAbort is non-nil exactly while a mining attempt is in
	// flight; setting its value to true preempts that attempt.
	miningAbort *atomic.Bool

	trackerConn *wire.Conn
}

// NewNode constructs a Node that has not yet started networking. id is
// assigned by the tracker at registration time.
func NewNode(id int, listenAddr, trackerAddr string, cfg *config.Config, emitter *events.Emitter) (*Node, error) {
	c, err := chain.New()
	if err != nil {
		return nil, fmt.Errorf("peer: mine genesis: %w", err)
	}
	n := &Node{
		ID:          id,
		ListenAddr:  listenAddr,
		cfg:         cfg,
		emitter:     emitter,
		trackerAddr: trackerAddr,
		stopCh:      make(chan struct{}),
		chainState:  c,
		commits:     make(map[string]commitRecord),
		directory:   make(map[int]wire.PeerAddr),
	}
	n.cond = sync.NewCond(&n.mu)
	return n, nil
}

// Start opens the listening socket, connects to the tracker, and begins
// the accept loop. It does not block.
func (n *Node) Start() error {
	ln, err := net.Listen("tcp", n.ListenAddr)
	if err != nil {
		return fmt.Errorf("peer: listen %s: %w", n.ListenAddr, err)
	}
	n.listener = ln
	n.ListenAddr = ln.Addr().String()

	if err := n.connectTracker(); err != nil {
		ln.Close()
		return err
	}

	n.wg.Add(1)
	go n.acceptLoop()
	return nil
}

// Stop closes all sockets and waits for background goroutines to exit.
func (n *Node) Stop() {
	close(n.stopCh)
	if n.listener != nil {
		n.listener.Close()
	}
	n.mu.Lock()
	if n.trackerConn != nil {
		n.trackerConn.Close()
	}
	n.cond.Broadcast()
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *Node) acceptLoop() {
	defer n.wg.Done()
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.stopCh:
				return
			default:
				log.Printf("[peer %d] accept error: %v", n.ID, err)
				time.Sleep(100 * time.Millisecond)
				continue
			}
		}
		c := wire.NewConn(conn)
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.serveConn(c)
		}()
	}
}

// traceID is a process-local correlation id for log lines spanning a
// single incoming connection's lifetime; it never appears on the wire.
func traceID() string {
	return uuid.NewString()[:8]
}

// emit fires an event with this node's ID attached, unless the node was
// built without an emitter (e.g. a unit test exercising Chain logic only).
func (n *Node) emit(ev events.Event) {
	if n.emitter == nil {
		return
	}
	ev.PeerID = n.ID
	n.emitter.Emit(ev)
}
