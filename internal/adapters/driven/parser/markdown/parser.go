// Package markdown parses vault documents: YAML frontmatter, inline tags,
// wiki-style and standard markdown links, and header-aware chunking.
package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
	"github.com/custodia-labs/vaultgraph/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

const frontmatterDelimiter = "---"

var (
	// inlineTagPattern matches #tag tokens, including hierarchical
	// project/sub segments, at a word boundary. A leading digit-only token
	// (like #123) is excluded to avoid issue references.
	inlineTagPattern = regexp.MustCompile(`(^|[\s(])#([a-zA-Z][\w/-]*)`)

	// wikiLinkPattern matches [[target]] and [[target|display]].
	wikiLinkPattern = regexp.MustCompile(`\[\[([^\[\]|]+)(?:\|([^\[\]]+))?\]\]`)

	// markdownLinkPattern matches [display](target); a preceding ! marks an
	// image embed, captured so it can be skipped.
	markdownLinkPattern = regexp.MustCompile(`(!?)\[([^\]]*)\]\(([^)\s]+)\)`)

	// headingPattern matches ATX headings at line start.
	headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

	// markup stripping patterns, applied in order.
	codeFencePattern     = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern    = regexp.MustCompile("`([^`]*)`")
	imagePattern         = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	emphasisPattern      = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+)(\*{1,3}|_{1,3})`)
	headingMarkerPattern = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	listMarkerPattern    = regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+`)
	blockquotePattern    = regexp.MustCompile(`(?m)^>\s?`)
)

// Parser is a stateless markdown parser. Safe for concurrent use.
type Parser struct{}

// NewParser creates a markdown parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse separates YAML frontmatter from the markdown body and derives the
// plain-text form. Malformed frontmatter fails the parse; a document
// without frontmatter parses with empty metadata.
func (p *Parser) Parse(content []byte) (*driven.ParseResult, error) {
	metadata, body, err := splitFrontmatter(string(content))
	if err != nil {
		return nil, fmt.Errorf("frontmatter: %w", err)
	}
	return &driven.ParseResult{
		Metadata:     metadata,
		Body:         body,
		PlainContent: stripMarkup(body),
	}, nil
}

// splitFrontmatter returns parsed frontmatter and the remaining body.
func splitFrontmatter(content string) (map[string]any, string, error) {
	if !strings.HasPrefix(content, frontmatterDelimiter+"\n") &&
		content != frontmatterDelimiter {
		return map[string]any{}, content, nil
	}

	rest := strings.TrimPrefix(content, frontmatterDelimiter+"\n")
	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		// Unterminated frontmatter block, treat the whole text as body.
		return map[string]any{}, content, nil
	}

	block := rest[:end]
	body := rest[end+len("\n"+frontmatterDelimiter):]
	body = strings.TrimPrefix(body, "\n")

	metadata := map[string]any{}
	if err := yaml.Unmarshal([]byte(block), &metadata); err != nil {
		return nil, "", err
	}
	return metadata, body, nil
}

// ExtractTags returns the normalized union of frontmatter tags and inline
// #tags. Tags inside code fences and inline code are ignored.
func (p *Parser) ExtractTags(content string, frontmatterTags []string) []string {
	tags := make([]string, 0, len(frontmatterTags))
	tags = append(tags, frontmatterTags...)

	cleaned := codeFencePattern.ReplaceAllString(content, "")
	cleaned = inlineCodePattern.ReplaceAllString(cleaned, "")
	for _, m := range inlineTagPattern.FindAllStringSubmatch(cleaned, -1) {
		tags = append(tags, m[2])
	}
	return domain.NormalizeTags(tags)
}

// ExtractLinks returns outgoing link references in document order with
// 1-based line numbers. Wiki links carry LinkKindReference, standard
// markdown links LinkKindInline. Image embeds, in-page anchors and
// external URLs are not link references.
func (p *Parser) ExtractLinks(content string) []domain.LinkRef {
	var links []domain.LinkRef
	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1

		for _, m := range wikiLinkPattern.FindAllStringSubmatch(line, -1) {
			target := strings.TrimSpace(m[1])
			if target == "" {
				continue
			}
			display := strings.TrimSpace(m[2])
			if display == "" {
				display = target
			}
			links = append(links, domain.LinkRef{
				Target:  target,
				Display: display,
				Line:    lineNo,
				Kind:    domain.LinkKindReference,
			})
		}

		for _, m := range markdownLinkPattern.FindAllStringSubmatch(line, -1) {
			if m[1] == "!" {
				continue
			}
			target := strings.TrimSpace(m[3])
			if target == "" || isExternalTarget(target) {
				continue
			}
			// Strip an in-page fragment; a bare fragment is not a link.
			if idx := strings.Index(target, "#"); idx >= 0 {
				target = target[:idx]
				if target == "" {
					continue
				}
			}
			links = append(links, domain.LinkRef{
				Target:  target,
				Display: strings.TrimSpace(m[2]),
				Line:    lineNo,
				Kind:    domain.LinkKindInline,
			})
		}
	}
	return links
}

// isExternalTarget reports whether a link target points outside the vault.
func isExternalTarget(target string) bool {
	for _, scheme := range []string{"http://", "https://", "mailto:", "ftp://", "file://"} {
		if strings.HasPrefix(target, scheme) {
			return true
		}
	}
	return false
}

// Chunk splits the markdown body at headings, then subdivides oversized
// sections at paragraph breaks, then at the character bound. Each chunk
// records the nearest enclosing heading and its 0-based position.
func (p *Parser) Chunk(body string, maxChunkChars int) []domain.Chunk {
	if maxChunkChars <= 0 {
		maxChunkChars = domain.DefaultChunkSize
	}

	var chunks []domain.Chunk
	emit := func(heading, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		for _, part := range splitBounded(text, maxChunkChars) {
			chunks = append(chunks, domain.Chunk{
				Content:  part,
				Position: len(chunks),
				Heading:  heading,
			})
		}
	}

	var heading string
	var section strings.Builder
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if !inFence {
			if m := headingPattern.FindStringSubmatch(line); m != nil {
				emit(heading, section.String())
				section.Reset()
				heading = strings.TrimSpace(m[2])
				continue
			}
		}
		section.WriteString(line)
		section.WriteByte('\n')
	}
	emit(heading, section.String())
	return chunks
}

// splitBounded divides text into pieces of at most maxChars, preferring
// paragraph breaks, then line breaks, then a hard cut.
func splitBounded(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	flush := func() {
		if piece := strings.TrimSpace(current.String()); piece != "" {
			parts = append(parts, piece)
		}
		current.Reset()
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		if current.Len() > 0 && current.Len()+len(paragraph)+2 > maxChars {
			flush()
		}
		if len(paragraph) > maxChars {
			flush()
			parts = append(parts, hardSplit(paragraph, maxChars)...)
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	flush()
	return parts
}

// hardSplit cuts text at line boundaries where possible, else mid-line.
func hardSplit(text string, maxChars int) []string {
	var parts []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxChars {
			if current.Len() > 0 {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			}
			parts = append(parts, line[:maxChars])
			line = line[maxChars:]
		}
		if current.Len() > 0 && current.Len()+len(line)+1 > maxChars {
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if piece := strings.TrimSpace(current.String()); piece != "" {
		parts = append(parts, piece)
	}
	return parts
}

// stripMarkup reduces markdown to searchable plain text. Heading and link
// display text is preserved; code fences are dropped entirely.
func stripMarkup(body string) string {
	text := codeFencePattern.ReplaceAllString(body, "")
	text = imagePattern.ReplaceAllString(text, "")
	text = wikiLinkPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := wikiLinkPattern.FindStringSubmatch(m)
		if strings.TrimSpace(sub[2]) != "" {
			return sub[2]
		}
		return sub[1]
	})
	text = markdownLinkPattern.ReplaceAllString(text, "$2")
	text = inlineCodePattern.ReplaceAllString(text, "$1")
	text = emphasisPattern.ReplaceAllString(text, "$2")
	text = headingMarkerPattern.ReplaceAllString(text, "")
	text = listMarkerPattern.ReplaceAllString(text, "")
	text = blockquotePattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
