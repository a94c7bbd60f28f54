package ui

// Unicode symbols for status lines.
const (
	SymbolSuccess = "✓" // Action completed
	SymbolFail    = "✗" // Action failed
	SymbolSkipped = "⊘" // Action cancelled
)
