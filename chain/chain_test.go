package chain

import (
	"sync/atomic"
	"testing"
)

func mineNext(t *testing.T, index int64, prev string, txs []Transaction) *Block {
	t.Helper()
	blk := NewBlock(index, prev, txs)
	if !Mine(blk, nil) {
		t.Fatalf("mining unexpectedly aborted")
	}
	return blk
}

func newTestChain(t *testing.T) *Chain {
	t.Helper()
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// S1: a block whose Prev hashes the current tip and carries a valid
// proof of work extends the chain linearly.
func TestAdd_LinearExtension(t *testing.T) {
	c := newTestChain(t)
	tipHash, err := c.Tip().HeaderHash()
	if err != nil {
		t.Fatal(err)
	}
	blk := mineNext(t, 1, tipHash, nil)

	outcome, err := c.Add(blk)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if outcome != Appended {
		t.Fatalf("outcome = %v, want Appended", outcome)
	}
	if c.Height() != 1 {
		t.Fatalf("height = %d, want 1", c.Height())
	}
}

// S2: a depth-1 fork candidate whose hash sorts lower than the current
// tip's hash replaces the tip and reports Reorganized.
func TestAdd_ForkWinsTieBreak(t *testing.T) {
	c := newTestChain(t)
	genesisHash, err := c.Blocks[0].HeaderHash()
	if err != nil {
		t.Fatal(err)
	}

	var tip *Block
	var tipHash string
	for {
		tip = mineNext(t, 1, genesisHash, nil)
		tipHash, err = tip.HeaderHash()
		if err != nil {
			t.Fatal(err)
		}
		// a single tip is mined; the bounded competitor search below
		// looks for a candidate that beats it.
		break
	}
	c.Blocks = append(c.Blocks, tip)

	var winner *Block
	for i := 0; i < 64; i++ {
		candidate := NewBlock(1, genesisHash, nil)
		candidate.Header.Timestamp += int64(i + 1)
		if !Mine(candidate, nil) {
			continue
		}
		h, err := candidate.HeaderHash()
		if err != nil {
			t.Fatal(err)
		}
		if h < tipHash {
			winner = candidate
			break
		}
	}
	if winner == nil {
		t.Skip("could not find a competing candidate with a lower hash within the search budget")
	}

	outcome, err := c.Add(winner)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if outcome != Reorganized {
		t.Fatalf("outcome = %v, want Reorganized", outcome)
	}
	if c.Height() != 1 {
		t.Fatalf("height = %d, want 1 (fork replaces, does not grow)", c.Height())
	}
	gotHash, err := c.Tip().HeaderHash()
	if err != nil {
		t.Fatal(err)
	}
	winnerHash, _ := winner.HeaderHash()
	if gotHash != winnerHash {
		t.Fatalf("tip was not replaced by the winning fork candidate")
	}
}

// S3: a depth-1 fork candidate that loses the tie-break is handled
// (Appended, not an error) but does not mutate the chain.
func TestAdd_ForkLosesTieBreakIsNoOp(t *testing.T) {
	c := newTestChain(t)
	genesisHash, err := c.Blocks[0].HeaderHash()
	if err != nil {
		t.Fatal(err)
	}
	tip := mineNext(t, 1, genesisHash, nil)
	c.Blocks = append(c.Blocks, tip)
	tipHash, err := tip.HeaderHash()
	if err != nil {
		t.Fatal(err)
	}

	var loser *Block
	for i := 0; i < 64; i++ {
		candidate := NewBlock(1, genesisHash, nil)
		candidate.Header.Timestamp += int64(i + 1)
		if !Mine(candidate, nil) {
			continue
		}
		h, err := candidate.HeaderHash()
		if err != nil {
			t.Fatal(err)
		}
		if h > tipHash {
			loser = candidate
			break
		}
	}
	if loser == nil {
		t.Skip("could not find a losing competing candidate within the search budget")
	}

	outcome, err := c.Add(loser)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if outcome != Appended {
		t.Fatalf("outcome = %v, want Appended (handled, tip unchanged)", outcome)
	}
	gotHash, err := c.Tip().HeaderHash()
	if err != nil {
		t.Fatal(err)
	}
	if gotHash != tipHash {
		t.Fatalf("tip should not have changed on a losing fork candidate")
	}
}

// S4: a block whose index does not follow the tip is rejected.
func TestAdd_RejectsWrongIndex(t *testing.T) {
	c := newTestChain(t)
	tipHash, err := c.Tip().HeaderHash()
	if err != nil {
		t.Fatal(err)
	}
	blk := mineNext(t, 5, tipHash, nil)

	outcome, err := c.Add(blk)
	if err == nil {
		t.Fatal("expected an error for a non-sequential index")
	}
	if outcome != Rejected {
		t.Fatalf("outcome = %v, want Rejected", outcome)
	}
}

// S5: a block failing the proof-of-work predicate is rejected even when
// its index and prev link are otherwise correct.
func TestAdd_RejectsBadProofOfWork(t *testing.T) {
	c := newTestChain(t)
	tipHash, err := c.Tip().HeaderHash()
	if err != nil {
		t.Fatal(err)
	}
	blk := NewBlock(1, tipHash, nil)
	blk.Header.Nonce = 0 // almost certainly does not satisfy PowOK

	outcome, err := c.Add(blk)
	if err == nil {
		h, _ := blk.HeaderHash()
		if PowOK(h) {
			t.Skip("nonce 0 happened to satisfy proof of work, pick another seed")
		}
		t.Fatal("expected an error for a block failing proof of work")
	}
	if outcome != Rejected {
		t.Fatalf("outcome = %v, want Rejected", outcome)
	}
}

// S6: a REVEAL whose hash does not reproduce its COMMIT invalidates the
// whole block, even though the block's own proof of work is valid.
func TestAdd_RejectsMismatchedReveal(t *testing.T) {
	c := newTestChain(t)
	tipHash, err := c.Tip().HeaderHash()
	if err != nil {
		t.Fatal(err)
	}
	txs := []Transaction{
		NewCommit("m1", 1, CommitHash(Rock, "key1")),
		NewReveal("m1", 1, Paper, "key1"), // does not hash back to the commit
	}
	blk := mineNext(t, 1, tipHash, txs)

	outcome, err := c.Add(blk)
	if err == nil {
		t.Fatal("expected an error for a reveal that does not match its commit")
	}
	if outcome != Rejected {
		t.Fatalf("outcome = %v, want Rejected", outcome)
	}
}

// A complete, correctly resolved match group is accepted.
func TestAdd_AcceptsValidMatchGroup(t *testing.T) {
	c := newTestChain(t)
	tipHash, err := c.Tip().HeaderHash()
	if err != nil {
		t.Fatal(err)
	}

	keyA, keyB := "keyA", "keyB"
	moveA, moveB := Rock, Scissors
	winner, tie := Resolve(1, moveA, 2, moveB)

	txs := []Transaction{
		NewCommit("m1", 1, CommitHash(moveA, keyA)),
		NewCommit("m1", 2, CommitHash(moveB, keyB)),
		NewReveal("m1", 1, moveA, keyA),
		NewReveal("m1", 2, moveB, keyB),
		NewResult("m1", winner, tie),
	}
	blk := mineNext(t, 1, tipHash, txs)

	outcome, err := c.Add(blk)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if outcome != Appended {
		t.Fatalf("outcome = %v, want Appended", outcome)
	}
}

// A match group whose declared result does not match the recomputed
// outcome is rejected.
func TestAdd_RejectsWrongResult(t *testing.T) {
	c := newTestChain(t)
	tipHash, err := c.Tip().HeaderHash()
	if err != nil {
		t.Fatal(err)
	}

	keyA, keyB := "keyA", "keyB"
	moveA, moveB := Rock, Scissors // peer 1 actually wins

	txs := []Transaction{
		NewCommit("m1", 1, CommitHash(moveA, keyA)),
		NewCommit("m1", 2, CommitHash(moveB, keyB)),
		NewReveal("m1", 1, moveA, keyA),
		NewReveal("m1", 2, moveB, keyB),
		NewResult("m1", 2, false), // wrong: claims peer 2 won
	}
	blk := mineNext(t, 1, tipHash, txs)

	outcome, err := c.Add(blk)
	if err == nil {
		t.Fatal("expected an error for a mismatched declared result")
	}
	if outcome != Rejected {
		t.Fatalf("outcome = %v, want Rejected", outcome)
	}
}

func TestMine_AbortStopsSearch(t *testing.T) {
	blk := NewBlock(1, GenesisPrev, nil)
	var abort atomic.Bool
	abort.Store(true)
	if Mine(blk, &abort) {
		t.Fatal("Mine should not succeed when abort is already set")
	}
}

func TestResolve_BeatsTable(t *testing.T) {
	cases := []struct {
		low, high  Move
		wantWinner int
		wantTie    bool
	}{
		{Rock, Scissors, 1, false},
		{Scissors, Rock, 2, false},
		{Rock, Paper, 2, false},
		{Paper, Rock, 1, false},
		{Paper, Scissors, 2, false},
		{Scissors, Paper, 1, false},
		{Rock, Rock, 0, true},
	}
	for _, tc := range cases {
		winner, tie := Resolve(1, tc.low, 2, tc.high)
		if winner != tc.wantWinner || tie != tc.wantTie {
			t.Errorf("Resolve(1,%s,2,%s) = (%d,%v), want (%d,%v)", tc.low, tc.high, winner, tie, tc.wantWinner, tc.wantTie)
		}
	}
}
