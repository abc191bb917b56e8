package game

// DefaultMultipliers is the payout table indexed by safe-pick count.
var DefaultMultipliers = []float64{
	1.18, 1.49, 1.9, 2.46, 3.23, 4.31, 5.7, 7.89, 11.19, 16.01,
	24.01, 37.36, 60.37, 92, 168, 337, 664, 2000, 2000, 2000,
}

// MultiplierTable maps a safe-pick count to its cash-out multiplier.
type MultiplierTable []float64

// For returns the multiplier for picks, or false if the table has no entry.
func (t MultiplierTable) For(picks int) (float64, bool) {
	if picks < 0 || picks >= len(t) {
		return 0, false
	}
	return t[picks], true
}
