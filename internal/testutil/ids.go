package testutil

// FixedIDGenerator generates the same identifier every time.
//
// This enables deterministic test execution and golden snapshot comparison:
// exports taken with the same FixedIDGenerator carry the same export id.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a new fixed identifier generator.
//
// If id is empty, Generate() returns "test-export-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-export-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed identifier.
//
// Implements backup.IDGenerator interface.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
