package driven

import "github.com/custodia-labs/vaultgraph/internal/core/domain"

// ParseResult is the structured output of parsing one raw document.
type ParseResult struct {
	// Metadata contains frontmatter key-value pairs.
	Metadata map[string]any

	// Body is the markdown content with frontmatter removed.
	Body string

	// PlainContent is the body with markup stripped.
	PlainContent string
}

// Parser extracts structure from raw markdown bytes.
// Implementations are pure text transforms with no I/O.
type Parser interface {
	// Parse separates frontmatter metadata from plain content.
	Parse(content []byte) (*ParseResult, error)

	// ExtractTags returns the normalized union of frontmatter tags and
	// inline #tags found in the content.
	ExtractTags(content string, frontmatterTags []string) []string

	// ExtractLinks returns outgoing link references in document order with
	// 1-based line numbers. Targets are raw (unresolved).
	ExtractLinks(content string) []domain.LinkRef

	// Chunk splits the markdown body into bounded, header-aware chunks.
	// Chunk IDs and document linkage are assigned by the caller.
	Chunk(body string, maxChunkChars int) []domain.Chunk
}
