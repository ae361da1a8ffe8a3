package layout

// Trigger decides when a graph should be laid out again. Only a change in
// node count fires it, so edge edits and drags keep their positions.
type Trigger struct {
	last int
}

// ShouldLayout reports whether count differs from the count seen on the
// previous call and records count. The first call fires for any non-empty
// graph.
func (t *Trigger) ShouldLayout(count int) bool {
	if count == t.last {
		return false
	}
	t.last = count
	return true
}

// Reset forgets the recorded count.
func (t *Trigger) Reset() {
	t.last = 0
}
