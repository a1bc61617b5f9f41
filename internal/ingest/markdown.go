// Package ingest imports markdown policy documents into the knowledge
// base. Documents are chunked by heading so the assistant can return a
// specific policy section instead of a whole file.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/backend"
)

// policyPrefix is the record-store path prefix for ingested policy
// chunks.
const policyPrefix = "policies"

// Chunk is one heading-delimited section of a document.
type Chunk struct {
	Key     string
	Title   string
	Content string
}

// MarkdownIngester parses markdown policy documents into knowledge-base
// records.
type MarkdownIngester struct {
	store *backend.Store
	md    goldmark.Markdown
}

// NewMarkdownIngester creates a policy document ingester writing into
// the given store.
func NewMarkdownIngester(store *backend.Store) *MarkdownIngester {
	return &MarkdownIngester{
		store: store,
		md:    goldmark.New(),
	}
}

// IngestDir imports every .md file in dir (non-recursive). The existing
// policy set is replaced wholesale so removals in the source directory
// propagate. Returns the number of chunks written.
func (m *MarkdownIngester) IngestDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read policies dir: %w", err)
	}

	var chunks []Chunk
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		src, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		chunks = append(chunks, m.Parse(src)...)
	}

	return m.replace(ctx, chunks)
}

// IngestBytes imports a single markdown document, replacing the
// existing policy set.
func (m *MarkdownIngester) IngestBytes(ctx context.Context, src []byte) (int, error) {
	return m.replace(ctx, m.Parse(src))
}

func (m *MarkdownIngester) replace(ctx context.Context, chunks []Chunk) (int, error) {
	if err := m.store.DeletePrefix(ctx, policyPrefix); err != nil {
		return 0, err
	}

	count := 0
	for _, c := range chunks {
		value := map[string]any{"title": c.Title, "content": c.Content}
		if err := m.store.Write(ctx, policyPrefix+"/"+c.Key, value); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Parse chunks a markdown document by its headings (levels 1-3). Text
// before the first heading is dropped; deeper headings fold into their
// parent section's content.
func (m *MarkdownIngester) Parse(src []byte) []Chunk {
	doc := m.md.Parser().Parse(text.NewReader(src))

	var chunks []Chunk
	var keyParts [3]string // slug per heading level
	var title string
	var content strings.Builder

	flush := func() {
		body := strings.TrimSpace(content.String())
		key := joinKey(keyParts)
		if key != "" && body != "" {
			chunks = append(chunks, Chunk{Key: key, Title: title, Content: body})
		}
		content.Reset()
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level <= 3 {
			flush()
			title = string(h.Text(src))
			keyParts[h.Level-1] = slugify(title)
			for i := h.Level; i < len(keyParts); i++ {
				keyParts[i] = ""
			}
			continue
		}
		appendBlockText(&content, n, src)
	}
	flush()

	return chunks
}

// appendBlockText writes the raw source lines of a block node. Nodes
// without their own lines (lists, quotes) delegate to their children.
func appendBlockText(sb *strings.Builder, n ast.Node, src []byte) {
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(src))
		}
		sb.WriteByte('\n')
		return
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		appendBlockText(sb, c, src)
	}
}

func joinKey(parts [3]string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify converts a heading to a key-friendly format.
func slugify(s string) string {
	s = slugPattern.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}
