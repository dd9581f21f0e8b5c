package tracker

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"github.com/rpschain/rpschain/events"
	"github.com/rpschain/rpschain/wire"
)

func (t *Tracker) matchmakingLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(t.cfg.MatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.pairIdlePeers()
		}
	}
}

// pairIdlePeers shuffles the idle pool and dispatches one match_start
// pair per worker-pool job, so a slow or unreachable peer in one pair
// cannot delay dispatch to the others.
func (t *Tracker) pairIdlePeers() {
	t.mu.Lock()
	pool := make([]int, len(t.idle))
	copy(pool, t.idle)
	shuffle(pool)

	var pairs [][2]int
	for len(pool) >= 2 {
		a, b := pool[0], pool[1]
		pool = pool[2:]
		pairs = append(pairs, [2]int{a, b})
	}
	remaining := pool // odd one out stays idle this round
	t.idle = remaining

	peerAddr := make(map[int]string, len(pairs)*2)
	conns := make(map[int]*wire.Conn, len(pairs)*2)
	matchIDs := make([]string, len(pairs))
	for i, pr := range pairs {
		for _, id := range pr {
			if rec, ok := t.peers[id]; ok {
				rec.idle = false
				peerAddr[id] = rec.addr
				conns[id] = rec.conn
			}
		}
		t.matchSeq++
		matchIDs[i] = fmt.Sprintf("match_%d", t.matchSeq)
	}
	t.mu.Unlock()

	for i, pr := range pairs {
		pr := pr
		matchID := matchIDs[i]
		t.wp.Submit(func() {
			t.dispatchPair(matchID, pr[0], pr[1], conns[pr[0]], conns[pr[1]])
		})
	}
}

// dispatchPair tells both peers in a pairing to start playing. This
// runs in its own worker-pool job so that a send stalling on one peer's
// socket never holds up dispatch for every other pairing formed in the
// same matchmaking round.
func (t *Tracker) dispatchPair(matchID string, a, b int, connA, connB *wire.Conn) {
	t.emitter.Emit(events.Event{Type: events.EventMatchStarted, MatchID: matchID})

	if connA != nil {
		if err := connA.Send(wire.Message{Type: wire.MsgMatchStart, MatchID: matchID, Opponent: b}); err != nil {
			log.Printf("[tracker] dispatch %s to %d: %v", matchID, a, err)
		}
	}
	if connB != nil {
		if err := connB.Send(wire.Message{Type: wire.MsgMatchStart, MatchID: matchID, Opponent: a}); err != nil {
			log.Printf("[tracker] dispatch %s to %d: %v", matchID, b, err)
		}
	}
}

// shuffle is a Fisher-Yates shuffle seeded from crypto/rand, avoiding a
// math/rand global source shared (and potentially contended) across
// every tracker goroutine.
func shuffle(s []int) {
	for i := len(s) - 1; i > 0; i-- {
		j := randIntn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	var b [8]byte
	_, _ = rand.Read(b[:])
	return int(binary.BigEndian.Uint64(b[:]) % uint64(n))
}
