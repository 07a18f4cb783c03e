package testutil

// FixedTokenGenerator generates the same run token every time.
//
// This enables deterministic runs and golden comparison: the same scenario
// with the same FixedTokenGenerator produces byte-identical output.
//
// Unlike engine.FixedGenerator which returns tokens in sequence and panics
// when exhausted, this generator always returns the same token. This is
// useful where a test starts an unknown number of runs that should all
// share one token.
//
// Thread-safety: FixedTokenGenerator is stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a new fixed run token generator.
//
// If token is empty, Generate() returns "test-run-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed run token.
//
// Implements engine.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
