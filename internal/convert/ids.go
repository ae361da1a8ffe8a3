package convert

import (
	"github.com/google/uuid"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// NewID returns a fresh opaque node id.
func NewID() string {
	return uuid.NewString()
}

// withIDs returns a copy of the tree in which every step has a unique id.
// Steps without an id, or repeating one already seen, get a generated id.
func withIDs(steps []schema.Step) []schema.Step {
	seen := make(map[string]bool)
	var assign func(in []schema.Step) []schema.Step
	assign = func(in []schema.Step) []schema.Step {
		if len(in) == 0 {
			return nil
		}
		out := make([]schema.Step, len(in))
		for i, s := range in {
			if s.ID == "" || seen[s.ID] {
				s.ID = NewID()
			}
			seen[s.ID] = true
			s.Children = assign(s.Children)
			out[i] = s
		}
		return out
	}
	return assign(steps)
}
