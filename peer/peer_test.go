package peer

import (
	"net"
	"testing"
	"time"

	"github.com/rpschain/rpschain/chain"
	"github.com/rpschain/rpschain/config"
	"github.com/rpschain/rpschain/events"
	"github.com/rpschain/rpschain/wire"
)

// startTestNode builds a node with its own listener and accept loop
// running, skipping tracker registration (tests wire up directories by
// hand instead of going through a tracker).
func startTestNode(t *testing.T, id int) *Node {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.MatchStepTimeout = 2 * time.Second
	n, err := NewNode(id, "127.0.0.1:0", "", cfg, events.NewEmitter())
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	n.listener = ln
	n.ListenAddr = ln.Addr().String()
	n.wg.Add(1)
	go n.acceptLoop()
	t.Cleanup(func() {
		close(n.stopCh)
		ln.Close()
		n.wg.Wait()
	})
	return n
}

func linkDirectory(a, b *Node) {
	a.mu.Lock()
	a.directory[b.ID] = wire.PeerAddr{ID: b.ID, Addr: b.ListenAddr}
	a.mu.Unlock()
	b.mu.Lock()
	b.directory[a.ID] = wire.PeerAddr{ID: a.ID, Addr: a.ListenAddr}
	b.mu.Unlock()
}

// TestPlayMatch_TwoNodesConverge exercises the full commit-reveal
// round trip between two real listeners and checks that both sides
// land on the same winner/tie outcome in their buffer.
func TestPlayMatch_TwoNodesConverge(t *testing.T) {
	a := startTestNode(t, 1)
	b := startTestNode(t, 2)
	linkDirectory(a, b)

	done := make(chan error, 2)
	go func() { done <- a.PlayMatch("m1", b.ID, b.ListenAddr) }()
	go func() { done <- b.PlayMatch("m1", a.ID, a.ListenAddr) }()

	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("PlayMatch: %v", err)
		}
	}

	a.mu.Lock()
	var aResult chain.Transaction
	for _, tx := range a.buffer {
		if tx.Kind == chain.KindResult && tx.MatchID == "m1" {
			aResult = tx
		}
	}
	a.mu.Unlock()

	b.mu.Lock()
	var bResult chain.Transaction
	for _, tx := range b.buffer {
		if tx.Kind == chain.KindResult && tx.MatchID == "m1" {
			bResult = tx
		}
	}
	b.mu.Unlock()

	if aResult.Kind == "" || bResult.Kind == "" {
		t.Fatalf("both nodes should have a RESULT transaction buffered")
	}
	if *aResult.Winner != *bResult.Winner || *aResult.Tie != *bResult.Tie {
		t.Fatalf("nodes disagree on outcome: a=(%d,%v) b=(%d,%v)",
			*aResult.Winner, *aResult.Tie, *bResult.Winner, *bResult.Tie)
	}
}

func TestBufferAppendDedup(t *testing.T) {
	n := &Node{}
	tx := chain.NewCommit("m1", 1, "h")
	n.bufferAppend(tx)
	n.bufferAppend(tx)
	if len(n.buffer) != 1 {
		t.Fatalf("bufferAppend should dedup by Key(), got %d entries", len(n.buffer))
	}
}

func TestIsElectedMiner(t *testing.T) {
	if !isElectedMiner(1, 2) {
		t.Fatal("lower peer ID should be elected")
	}
	if isElectedMiner(2, 1) {
		t.Fatal("higher peer ID should not be elected")
	}
}
