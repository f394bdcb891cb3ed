package testutil

// FixedTraceID returns the same trace id on every call.
//
// Commands under test can then be run any number of times and their JSON
// envelopes compared byte for byte.
//
// Thread-safety: FixedTraceID is stateless and safe for concurrent use.
type FixedTraceID struct {
	id string
}

// DefaultTraceID is used when NewFixedTraceID is given an empty id.
const DefaultTraceID = "00000000-0000-7000-8000-000000000000"

// NewFixedTraceID creates a generator that always returns id.
func NewFixedTraceID(id string) *FixedTraceID {
	if id == "" {
		id = DefaultTraceID
	}
	return &FixedTraceID{id: id}
}

// Generate returns the fixed trace id.
func (g *FixedTraceID) Generate() string {
	return g.id
}
