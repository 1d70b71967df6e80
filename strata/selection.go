package strata

// SelectionVector is a dense boolean mask, one entry per row (or per batch
// entry), true meaning "include".
type SelectionVector []bool

// NewAllSelected returns a selection vector of length n with every entry true.
func NewAllSelected(n int64) SelectionVector {
	v := make(SelectionVector, n)
	for i := range v {
		v[i] = true
	}
	return v
}

// CountSelected returns the number of true entries.
func (v SelectionVector) CountSelected() int {
	n := 0
	for _, selected := range v {
		if selected {
			n++
		}
	}
	return n
}
