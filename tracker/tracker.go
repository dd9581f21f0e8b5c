// Package tracker implements the rendezvous and matchmaking service
// peers register with: it hands out peer IDs, keeps the shared address
// directory, pairs up idle peers on a fixed interval, and accumulates
// a read-only log of its own registration events plus the chain
// snapshots peers report back.
package tracker

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/JekaMas/workerpool"
	"github.com/google/uuid"

	"github.com/rpschain/rpschain/chain"
	"github.com/rpschain/rpschain/config"
	"github.com/rpschain/rpschain/events"
	"github.com/rpschain/rpschain/wire"
)

// peerRecord is everything the tracker keeps about one registered peer.
type peerRecord struct {
	id      int
	addr    string
	conn    *wire.Conn
	idle    bool
	playing string // current match_id, "" when idle
}

// Tracker assigns peer IDs, maintains the directory, and runs
// matchmaking. All mutable state is behind mu; there is no finer
// locking because registration and matchmaking are both low-frequency
// relative to match traffic, which flows peer-to-peer and never
// touches the tracker.
type Tracker struct {
	cfg     *config.Config
	emitter *events.Emitter

	mu       sync.Mutex
	nextID   int
	peers    map[int]*peerRecord
	idle     []int
	matchSeq int
	chains   map[int][]*chain.Block
	logs     []string

	listener net.Listener
	stopCh   chan struct{}
	wg       sync.WaitGroup

	wp *workerpool.WorkerPool
}

// New constructs a Tracker ready to Start.
func New(cfg *config.Config, emitter *events.Emitter) *Tracker {
	return &Tracker{
		cfg:     cfg,
		emitter: emitter,
		nextID:  1,
		peers:   make(map[int]*peerRecord),
		chains:  make(map[int][]*chain.Block),
		stopCh:  make(chan struct{}),
		wp:      workerpool.New(8),
	}
}

// Start opens the listening socket, the accept loop, and the
// matchmaking ticker. It does not block.
func (t *Tracker) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	t.listener = ln

	t.wg.Add(2)
	go t.acceptLoop()
	go t.matchmakingLoop()
	return nil
}

// Stop closes the listener, every peer connection, and the worker pool,
// then waits for background goroutines to exit.
func (t *Tracker) Stop() {
	close(t.stopCh)
	if t.listener != nil {
		t.listener.Close()
	}
	t.mu.Lock()
	for _, p := range t.peers {
		if p.conn != nil {
			p.conn.Close()
		}
	}
	t.mu.Unlock()
	t.wp.StopWait()
	t.wg.Wait()
}

func (t *Tracker) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.stopCh:
				return
			default:
				log.Printf("[tracker] accept error: %v", err)
				time.Sleep(100 * time.Millisecond)
				continue
			}
		}
		c := wire.NewConn(conn)
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.serveConn(c)
		}()
	}
}

func (t *Tracker) serveConn(c *wire.Conn) {
	trace := uuid.NewString()[:8]
	msg, err := c.Receive()
	if err != nil {
		c.Close()
		return
	}
	if msg.Type != wire.MsgRegister {
		log.Printf("[tracker][%s] expected register, got %s", trace, msg.Type)
		c.Close()
		return
	}
	id := t.register(c, msg)

	for {
		msg, err := c.Receive()
		if err != nil {
			t.unregister(id)
			c.Close()
			return
		}
		t.handlePeerMessage(id, msg)
	}
}

// register assigns an ID if the peer did not already have one from a
// prior session, stores its address and connection, and broadcasts the
// updated directory to everyone.
func (t *Tracker) register(c *wire.Conn, msg wire.Message) int {
	t.mu.Lock()
	id := msg.PeerID
	if id == 0 {
		id = t.nextID
		t.nextID++
	}
	t.peers[id] = &peerRecord{id: id, addr: msg.Addr, conn: c, idle: true}
	t.idle = append(t.idle, id)
	t.appendLog("peer %d registered at %s", id, msg.Addr)
	t.mu.Unlock()

	if err := c.Send(wire.Message{Type: wire.MsgRegistered, PeerID: id}); err != nil {
		log.Printf("[tracker] ack register to %d: %v", id, err)
		return id
	}
	t.broadcastDirectory()
	return id
}

func (t *Tracker) unregister(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, id)
	kept := t.idle[:0]
	for _, pid := range t.idle {
		if pid != id {
			kept = append(kept, pid)
		}
	}
	t.idle = kept
	t.appendLog("peer %d disconnected", id)
}

// broadcastDirectory sends the full peer address book to every
// connected peer, under its own lock scope so sends happen outside mu.
func (t *Tracker) broadcastDirectory() {
	t.mu.Lock()
	peers := make([]wire.PeerAddr, 0, len(t.peers))
	conns := make([]*wire.Conn, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, wire.PeerAddr{ID: p.id, Addr: p.addr})
		conns = append(conns, p.conn)
	}
	t.mu.Unlock()

	msg := wire.Message{Type: wire.MsgDirectory, Peers: peers}
	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			log.Printf("[tracker] send directory: %v", err)
		}
	}
}

// appendLog records a line for later retrieval via Logs. Callers hold t.mu.
func (t *Tracker) appendLog(format string, args ...any) {
	t.logs = append(t.logs, fmt.Sprintf(format, args...))
	if len(t.logs) > 1000 {
		t.logs = t.logs[len(t.logs)-1000:]
	}
}
