package inventory

// StockStatus is the four-level severity classification of a course's
// remaining stock, used for display only.
type StockStatus string

const (
	StockOK         StockStatus = "OK"
	StockLow        StockStatus = "LOW"
	StockCritical   StockStatus = "CRITICAL"
	StockOutOfStock StockStatus = "OUT_OF_STOCK"
)

// Classify maps a (current, initial) stock pair to a severity level.
// Thresholds on the percentage remaining, first match wins:
// ≥75 OK, ≥50 LOW, ≥25 CRITICAL, otherwise OUT_OF_STOCK. A course
// with no initial allocation classifies as OUT_OF_STOCK directly.
func Classify(current, initial int) StockStatus {
	if initial <= 0 {
		return StockOutOfStock
	}
	pct := float64(current) / float64(initial) * 100
	switch {
	case pct >= 75:
		return StockOK
	case pct >= 50:
		return StockLow
	case pct >= 25:
		return StockCritical
	default:
		return StockOutOfStock
	}
}
