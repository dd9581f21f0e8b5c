package match

import (
	"testing"

	"github.com/rpschain/rpschain/chain"
)

func TestGenerateMove_AlwaysValid(t *testing.T) {
	for i := 0; i < 100; i++ {
		m, err := GenerateMove()
		if err != nil {
			t.Fatalf("GenerateMove: %v", err)
		}
		if !chain.ValidMove(m) {
			t.Fatalf("GenerateMove produced invalid move %q", m)
		}
	}
}

func TestGenerateKey_LengthAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		k, err := GenerateKey()
		if err != nil {
			t.Fatalf("GenerateKey: %v", err)
		}
		if len(k) != 8 {
			t.Fatalf("GenerateKey: want 8 hex chars, got %q (%d chars)", k, len(k))
		}
		if seen[k] {
			t.Fatalf("GenerateKey produced a duplicate: %q", k)
		}
		seen[k] = true
	}
}

func TestID_OrderIndependent(t *testing.T) {
	if ID(1, 2, 0) != ID(2, 1, 0) {
		t.Fatal("ID should not depend on argument order")
	}
	if ID(1, 2, 0) == ID(1, 2, 1) {
		t.Fatal("ID should vary with round")
	}
}
