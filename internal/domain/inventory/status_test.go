package inventory

import "testing"

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		current int
		initial int
		want    StockStatus
	}{
		{100, 100, StockOK},
		{75, 100, StockOK},
		{74, 100, StockLow},
		{50, 100, StockLow},
		{49, 100, StockCritical},
		{25, 100, StockCritical},
		{24, 100, StockOutOfStock},
		{0, 100, StockOutOfStock},
		{3, 4, StockOK},
		{1, 3, StockCritical},
	}

	for _, tt := range tests {
		if got := Classify(tt.current, tt.initial); got != tt.want {
			t.Errorf("Classify(%d, %d) = %s, want %s", tt.current, tt.initial, got, tt.want)
		}
	}
}

func TestClassifyZeroInitial(t *testing.T) {
	// Courses with no allocation must resolve directly, not divide by zero.
	for _, current := range []int{0, 1, 50} {
		if got := Classify(current, 0); got != StockOutOfStock {
			t.Errorf("Classify(%d, 0) = %s, want %s", current, got, StockOutOfStock)
		}
	}
	if got := Classify(10, -1); got != StockOutOfStock {
		t.Errorf("Classify(10, -1) = %s, want %s", got, StockOutOfStock)
	}
}
