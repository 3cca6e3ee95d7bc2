package domain

import (
	"hash/fnv"
	"path"
	"strings"
	"time"
)

// Document represents an indexed vault file with everything derived from it.
// It is the canonical record owned by the document index; other components
// only read snapshots or identifiers.
type Document struct {
	// ID is the normalized vault-relative path (case-folded, "/" separators).
	ID string

	// ModifiedAt is the file modification time at index time.
	ModifiedAt time.Time

	// ContentHash is a cheap non-cryptographic hash of the raw content.
	// Used only for change detection, never for integrity.
	ContentHash uint64

	// Metadata contains frontmatter key-value pairs.
	Metadata map[string]any

	// Content is the full raw text including frontmatter and markup.
	Content string

	// PlainContent is the text with frontmatter and markup stripped.
	PlainContent string

	// Chunks is the ordered sequence of bounded content slices.
	Chunks []Chunk

	// Tags is the set of normalized tags carried by the document.
	Tags []string

	// Links is the ordered sequence of outgoing link references.
	Links []LinkRef

	// IndexedAt is when the document was last (re)indexed.
	IndexedAt time.Time
}

// Title returns the display title: the "title" metadata key when present,
// otherwise the file name without extension.
func (d *Document) Title() string {
	if t, ok := d.Metadata["title"].(string); ok && t != "" {
		return t
	}
	base := path.Base(d.ID)
	return strings.TrimSuffix(base, path.Ext(base))
}

// HasEmbeddings reports whether every chunk carries an embedding vector.
// Documents without chunks trivially have no embeddings.
func (d *Document) HasEmbeddings() bool {
	if len(d.Chunks) == 0 {
		return false
	}
	for i := range d.Chunks {
		if len(d.Chunks[i].Embedding) == 0 {
			return false
		}
	}
	return true
}

// Chunk is a bounded-size slice of a document's plain text, the unit of
// embedding and semantic comparison.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Heading is the nearest enclosing section heading, if any.
	Heading string

	// Embedding is the vector representation for semantic search.
	// Nil until EnsureEmbeddings has run for the document.
	Embedding []float32
}

// LinkKind distinguishes the syntactic form of a link.
type LinkKind string

// Link kinds.
const (
	// LinkKindReference is a wikilink-style reference ([[target]]).
	LinkKindReference LinkKind = "reference"

	// LinkKindInline is a standard markdown link ([text](target)).
	LinkKindInline LinkKind = "inline"
)

// LinkRef is one directed link. In a document's outgoing list Target is the
// resolved destination; in an incoming list Source identifies the referrer.
type LinkRef struct {
	// Source is the normalized ID of the linking document.
	Source string

	// Target is the normalized ID of the linked document.
	// Kept even when no such document exists (a broken link).
	Target string

	// Display is the link text shown to the reader.
	Display string

	// Line is the 1-based line number of the link in the source document.
	Line int

	// Kind is the syntactic form of the link.
	Kind LinkKind
}

// ChangeKind classifies a change notification from the watcher.
type ChangeKind string

// Change kinds.
const (
	// ChangeModified means the file was created or its content changed.
	ChangeModified ChangeKind = "modified"

	// ChangeRemoved means the file no longer exists.
	ChangeRemoved ChangeKind = "removed"
)

// ChangeEvent is one debounced file change delivered by the watcher.
type ChangeEvent struct {
	// Kind is the change classification.
	Kind ChangeKind

	// ID is the normalized document identifier.
	ID string
}

// NormalizeID converts a vault-relative path into a canonical document
// identifier: forward slashes, case-folded, no leading "./" or "/".
func NormalizeID(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	return strings.ToLower(p)
}

// ResolveLinkTarget resolves a raw link target against the directory of the
// source document. Relative targets ("./x", "../x") and bare names resolve
// from the source's directory; absolute targets ("/x") resolve from the vault
// root. The result is normalized.
func ResolveLinkTarget(sourceID, target string) string {
	target = strings.ReplaceAll(target, "\\", "/")
	if strings.HasPrefix(target, "/") {
		return NormalizeID(target)
	}
	dir := path.Dir(sourceID)
	if dir == "." {
		dir = ""
	}
	return NormalizeID(path.Join(dir, target))
}

// HashContent computes the cheap content hash used for change detection.
func HashContent(content []byte) uint64 {
	h := fnv.New64a()
	h.Write(content) //nolint:errcheck // fnv never fails
	return h.Sum64()
}
