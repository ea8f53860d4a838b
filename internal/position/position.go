// Package position computes ordering keys for tasks within a status group.
//
// Positions are float64 values sorted ascending. Inserting between two
// neighbors bisects their gap, so repeated inserts into the same gap
// eventually run out of precision; Degenerate detects that point and
// Respace produces fresh, evenly spaced keys for a group.
package position

// Between returns a position for an item placed after left and before right.
// A nil neighbor means there is nothing on that side.
func Between(left, right *float64) float64 {
	switch {
	case left != nil && right != nil:
		return (*left + *right) / 2
	case left != nil:
		return *left + 1
	case right != nil:
		return *right - 1
	default:
		return 0
	}
}

// Degenerate reports whether p fails to sort strictly between the present
// neighbors. This happens once bisection has exhausted float precision, or when
// the neighbors are equal or out of order.
func Degenerate(left, right *float64, p float64) bool {
	if left != nil && !(p > *left) {
		return true
	}
	if right != nil && !(p < *right) {
		return true
	}
	return false
}

// Respace returns n evenly spaced positions starting at zero.
func Respace(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
