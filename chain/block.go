package chain

import (
	"encoding/json"
	"time"

	"github.com/rpschain/rpschain/crypto"
)

// GenesisPrev is the canonical all-zeros previous-hash of block 0 (64 hex chars).
const GenesisPrev = "0000000000000000000000000000000000000000000000000000000000000000"

// BlockHeader is the hashed portion of a block. Transactions is a header
// field — a quirk carried over from the system this chain reimplements,
// where transactions participate directly in the header hash rather than
// through a separate Merkle root (see Block.HeaderHash).
type BlockHeader struct {
	Index        int64         `json:"index"`
	Prev         string        `json:"prev"`
	Timestamp    int64         `json:"timestamp"`
	Nonce        uint64        `json:"nonce"`
	Transactions []Transaction `json:"transactions"`
}

// Block is an immutable header plus its transaction list. Transactions is
// duplicated at the top level for wire convenience; Header.Transactions
// is the copy that is actually hashed.
type Block struct {
	Header       BlockHeader   `json:"header"`
	Transactions []Transaction `json:"transactions"`
}

// NewBlock builds an unmined candidate block.
func NewBlock(index int64, prev string, txs []Transaction) *Block {
	return &Block{
		Header: BlockHeader{
			Index:        index,
			Prev:         prev,
			Timestamp:    time.Now().Unix(),
			Nonce:        0,
			Transactions: txs,
		},
		Transactions: txs,
	}
}

// NewGenesisBlock builds block 0's unmined candidate. Its timestamp is
// fixed at 0, not wall-clock time: every peer mines its own genesis
// independently (see peer.NewNode), and a wall-clock timestamp would
// give each process a different genesis header hash, which would make
// every subsequent block's prev-hash linkage disagree across peers.
func NewGenesisBlock() *Block {
	txs := []Transaction{NewGenesis()}
	return &Block{
		Header: BlockHeader{
			Index:        0,
			Prev:         GenesisPrev,
			Timestamp:    0,
			Nonce:        0,
			Transactions: txs,
		},
		Transactions: txs,
	}
}

// canonicalHeaderJSON returns the header's lexicographically key-sorted,
// compact JSON encoding — transactions included, each canonicalized the
// same way (see Transaction.CanonicalJSON).
func (h BlockHeader) canonicalHeaderJSON() ([]byte, error) {
	txs := make([]json.RawMessage, len(h.Transactions))
	for i, tx := range h.Transactions {
		raw, err := tx.CanonicalJSON()
		if err != nil {
			return nil, err
		}
		txs[i] = raw
	}
	txsJSON, err := json.Marshal(txs)
	if err != nil {
		return nil, err
	}
	return marshalCanonical([]field{
		{"index", h.Index},
		{"nonce", h.Nonce},
		{"prev", h.Prev},
		{"timestamp", h.Timestamp},
		{"transactions", json.RawMessage(txsJSON)},
	})
}

// HeaderHash is the block's identity: SHA-256 of the canonical header JSON.
func (b *Block) HeaderHash() (string, error) {
	data, err := b.Header.canonicalHeaderJSON()
	if err != nil {
		return "", err
	}
	return crypto.Hash(data), nil
}
