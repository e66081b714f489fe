package inventory

import (
	"math/rand"
	"testing"
)

func dispenseTx(courseID string, qty int) *Transaction {
	return &Transaction{ID: "tx", CourseID: courseID, Type: TransactionDispense, Quantity: qty}
}

func returnTx(courseID string, qty int) *Transaction {
	return &Transaction{ID: "tx", CourseID: courseID, Type: TransactionReturn, Quantity: qty, Reason: ReasonUnused}
}

func TestReplayStock(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		history []*Transaction
		want    int
	}{
		{"empty history", 30, nil, 30},
		{"single dispense", 30, []*Transaction{dispenseTx("c", 10)}, 20},
		{"dispense and return", 30, []*Transaction{dispenseTx("c", 10), returnTx("c", 4)}, 24},
		{"drained", 5, []*Transaction{dispenseTx("c", 5)}, 0},
		{"clamped at zero", 5, []*Transaction{dispenseTx("c", 9)}, 0},
		{"zero initial", 0, []*Transaction{returnTx("c", 3)}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReplayStock(tt.initial, tt.history); got != tt.want {
				t.Errorf("ReplayStock(%d) = %d, want %d", tt.initial, got, tt.want)
			}
		})
	}
}

func TestReplayStockPermutationInvariant(t *testing.T) {
	history := []*Transaction{
		dispenseTx("c", 3),
		dispenseTx("c", 7),
		returnTx("c", 2),
		dispenseTx("c", 5),
		returnTx("c", 1),
	}
	want := ReplayStock(50, history)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := make([]*Transaction, len(history))
		copy(shuffled, history)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		if got := ReplayStock(50, shuffled); got != want {
			t.Fatalf("permutation %d: got %d, want %d", i, got, want)
		}
	}
}

func TestLedgerHistoryFiltersAndPreservesOrder(t *testing.T) {
	l := NewLedger()
	l.Append(dispenseTx("a", 1))
	l.Append(dispenseTx("b", 2))
	l.Append(returnTx("a", 3))
	l.Append(dispenseTx("a", 4))

	history := l.HistoryFor("a")
	if len(history) != 3 {
		t.Fatalf("expected 3 transactions for course a, got %d", len(history))
	}
	wantQty := []int{1, 3, 4}
	for i, tx := range history {
		if tx.Quantity != wantQty[i] {
			t.Errorf("position %d: quantity %d, want %d", i, tx.Quantity, wantQty[i])
		}
	}
	if got := l.HistoryFor("missing"); len(got) != 0 {
		t.Errorf("expected empty history for unknown course, got %d", len(got))
	}
}
