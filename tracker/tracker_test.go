package tracker

import (
	"testing"
	"time"

	"github.com/rpschain/rpschain/config"
	"github.com/rpschain/rpschain/events"
	"github.com/rpschain/rpschain/wire"
)

func startTestTracker(t *testing.T) (*Tracker, string) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.MatchInterval = 30 * time.Millisecond
	tr := New(cfg, events.NewEmitter())
	if err := tr.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := tr.listener.Addr().String()
	t.Cleanup(tr.Stop)
	return tr, addr
}

func registerTestPeer(t *testing.T, trackerAddr, peerAddr string) *wire.Conn {
	t.Helper()
	c, err := wire.Dial(trackerAddr)
	if err != nil {
		t.Fatalf("dial tracker: %v", err)
	}
	if err := c.Send(wire.Message{Type: wire.MsgRegister, Addr: peerAddr}); err != nil {
		t.Fatalf("send register: %v", err)
	}
	ack, err := c.Receive()
	if err != nil {
		t.Fatalf("receive registered: %v", err)
	}
	if ack.Type != wire.MsgRegistered {
		t.Fatalf("expected registered, got %s", ack.Type)
	}
	return c
}

func TestRegisterAssignsIDsAndBroadcastsDirectory(t *testing.T) {
	_, addr := startTestTracker(t)

	c1 := registerTestPeer(t, addr, "127.0.0.1:11111")
	defer c1.Close()

	// The first peer gets a directory containing just itself.
	dir, err := c1.Receive()
	if err != nil {
		t.Fatalf("receive directory: %v", err)
	}
	if dir.Type != wire.MsgDirectory || len(dir.Peers) != 1 {
		t.Fatalf("expected a 1-peer directory, got %+v", dir)
	}
	if dir.Peers[0].ID != 1 {
		t.Fatalf("first registered peer should be assigned ID 1, got %d", dir.Peers[0].ID)
	}

	c2 := registerTestPeer(t, addr, "127.0.0.1:22222")
	defer c2.Close()

	// The first peer should now receive an updated 2-peer directory.
	dir2, err := c1.Receive()
	if err != nil {
		t.Fatalf("receive second directory on c1: %v", err)
	}
	if len(dir2.Peers) != 2 {
		t.Fatalf("expected a 2-peer directory, got %d peers", len(dir2.Peers))
	}
}

func TestPairIdlePeersDispatchesMatchStart(t *testing.T) {
	_, addr := startTestTracker(t)

	c1 := registerTestPeer(t, addr, "127.0.0.1:11111")
	defer c1.Close()
	c2 := registerTestPeer(t, addr, "127.0.0.1:22222")
	defer c2.Close()

	// Drain directory broadcasts triggered by registration.
	if _, err := c1.Receive(); err != nil {
		t.Fatal(err)
	}
	if _, err := c1.Receive(); err != nil {
		t.Fatal(err)
	}
	if _, err := c2.Receive(); err != nil {
		t.Fatal(err)
	}

	start, err := c1.Receive()
	if err != nil {
		t.Fatalf("receive match_start: %v", err)
	}
	if start.Type != wire.MsgMatchStart {
		t.Fatalf("expected match_start, got %s", start.Type)
	}
}

func TestMarkIdleIsIdempotent(t *testing.T) {
	tr, _ := startTestTracker(t)
	tr.peers[1] = &peerRecord{id: 1, idle: false}

	tr.markIdle(1)
	tr.markIdle(1)

	count := 0
	for _, id := range tr.idle {
		if id == 1 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("peer 1 should appear exactly once in the idle pool, got %d", count)
	}
}
