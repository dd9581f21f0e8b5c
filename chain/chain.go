package chain

import (
	"errors"
	"fmt"
)

// Outcome is the result of attempting to add a candidate block.
type Outcome int

const (
	// Rejected means the block was not integrated in any form.
	Rejected Outcome = iota
	// Appended means the block extended the tip linearly, or lost a
	// depth-1 tie-break without mutating the chain — see Chain.Add.
	Appended
	// Reorganized means a depth-1 fork candidate replaced the tip.
	Reorganized
)

func (o Outcome) String() string {
	switch o {
	case Appended:
		return "Appended"
	case Reorganized:
		return "Reorganized"
	default:
		return "Rejected"
	}
}

// ErrInvalidBlock is wrapped by every validation failure reason.
var ErrInvalidBlock = errors.New("invalid block")

// Chain is an ordered block sequence starting at a mined genesis block.
// It is deliberately not internally synchronized: the caller (the peer
// actor) holds the single lock that protects all of a node's mutable
// state, chain included, matching spec.md §4.1's explicit design choice.
type Chain struct {
	Blocks []*Block
}

// New constructs a Chain with a freshly mined genesis block.
func New() (*Chain, error) {
	genesis := NewGenesisBlock()
	Mine(genesis, nil)
	return &Chain{Blocks: []*Block{genesis}}, nil
}

// Height is the index of the tip (0 for a chain holding only genesis).
func (c *Chain) Height() int64 {
	return int64(len(c.Blocks) - 1)
}

// Tip returns the current last block.
func (c *Chain) Tip() *Block {
	return c.Blocks[len(c.Blocks)-1]
}

// Add attempts to integrate blk per spec.md §4.1: a linear extension of
// the tip, a depth-1 fork candidate (replacing the tip only if it wins
// the lexicographic hash tie-break), or rejection in every other shape.
//
// A depth-1 candidate that loses its tie-break still returns Appended,
// not Rejected — "success" here means "proposal handled", not "chain
// mutated"; callers that need to know whether the chain actually changed
// must compare Tip() before and after.
func (c *Chain) Add(blk *Block) (Outcome, error) {
	tip := c.Tip()
	tipHash, err := tip.HeaderHash()
	if err != nil {
		return Rejected, err
	}

	if blk.Header.Prev == tipHash {
		if err := c.valid(blk, tip); err != nil {
			return Rejected, err
		}
		c.Blocks = append(c.Blocks, blk)
		return Appended, nil
	}

	if len(c.Blocks) >= 2 {
		parent := c.Blocks[len(c.Blocks)-2]
		parentHash, err := parent.HeaderHash()
		if err != nil {
			return Rejected, err
		}
		if blk.Header.Prev == parentHash {
			if err := c.valid(blk, parent); err != nil {
				return Rejected, err
			}
			blkHash, err := blk.HeaderHash()
			if err != nil {
				return Rejected, err
			}
			if blkHash < tipHash {
				c.Blocks[len(c.Blocks)-1] = blk
				return Reorganized, nil
			}
			return Appended, nil
		}
	}

	return Rejected, fmt.Errorf("%w: prev %q does not extend tip or its parent", ErrInvalidBlock, blk.Header.Prev)
}

// valid implements spec.md §4.1's validation predicate for blk extending prev.
func (c *Chain) valid(blk *Block, prev *Block) error {
	if blk.Header.Index != prev.Header.Index+1 {
		return fmt.Errorf("%w: index %d does not follow %d", ErrInvalidBlock, blk.Header.Index, prev.Header.Index)
	}
	prevHash, err := prev.HeaderHash()
	if err != nil {
		return err
	}
	if blk.Header.Prev != prevHash {
		return fmt.Errorf("%w: prev %q != parent hash %q", ErrInvalidBlock, blk.Header.Prev, prevHash)
	}
	h, err := blk.HeaderHash()
	if err != nil {
		return err
	}
	if !PowOK(h) {
		return fmt.Errorf("%w: hash %q fails proof of work", ErrInvalidBlock, h)
	}
	return validateTransactionSet(blk.Header.Transactions)
}

// matchGroup accumulates the transactions belonging to one match_id.
type matchGroup struct {
	commits map[int]Transaction
	reveals map[int]Transaction
	result  *Transaction
}

// validateTransactionSet implements spec.md §4.1 rule 4: every reveal
// must bind to a matching commit, and any full two-reveal-plus-result
// match group must recompute to exactly the declared outcome.
func validateTransactionSet(txs []Transaction) error {
	groups := make(map[string]*matchGroup)
	for _, tx := range txs {
		if tx.MatchID == "" {
			continue
		}
		g, ok := groups[tx.MatchID]
		if !ok {
			g = &matchGroup{commits: map[int]Transaction{}, reveals: map[int]Transaction{}}
			groups[tx.MatchID] = g
		}
		switch tx.Kind {
		case KindCommit:
			g.commits[tx.Peer] = tx
		case KindReveal:
			g.reveals[tx.Peer] = tx
		case KindResult:
			t := tx
			g.result = &t
		}
	}

	for matchID, g := range groups {
		for peer, reveal := range g.reveals {
			commit, ok := g.commits[peer]
			if !ok {
				return fmt.Errorf("%w: match %s reveal from peer %d has no matching commit", ErrInvalidBlock, matchID, peer)
			}
			if CommitHash(reveal.Move, reveal.RevealKey) != commit.Hash {
				return fmt.Errorf("%w: match %s reveal from peer %d does not hash to its commit", ErrInvalidBlock, matchID, peer)
			}
		}

		if len(g.reveals) == 2 && g.result != nil {
			peers := make([]int, 0, 2)
			for p := range g.reveals {
				peers = append(peers, p)
			}
			lowPeer, highPeer := peers[0], peers[1]
			if lowPeer > highPeer {
				lowPeer, highPeer = highPeer, lowPeer
			}
			winner, tie := Resolve(lowPeer, g.reveals[lowPeer].Move, highPeer, g.reveals[highPeer].Move)

			gotWinner, gotTie := 0, false
			if g.result.Winner != nil {
				gotWinner = *g.result.Winner
			}
			if g.result.Tie != nil {
				gotTie = *g.result.Tie
			}
			if gotWinner != winner || gotTie != tie {
				return fmt.Errorf("%w: match %s declares winner=%d tie=%v, recomputed winner=%d tie=%v",
					ErrInvalidBlock, matchID, gotWinner, gotTie, winner, tie)
			}
		}
	}
	return nil
}
