package source

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"study-assistant/internal/retrieval"
)

var defaultMarkdown = NewMarkdownExtractor()

// MarkdownExtractor flattens markdown into plain text using the goldmark AST.
type MarkdownExtractor struct {
	parser goldmark.Markdown
}

// NewMarkdownExtractor creates a markdown extractor with GFM tables enabled.
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Extract returns the title and the readable text of a markdown document.
// Headings, paragraphs and list items each start on their own line; table rows are
// rendered as "a | b | c".
func (m *MarkdownExtractor) Extract(content []byte, filename string) (Extracted, error) {
	doc := m.parser.Parser().Parse(text.NewReader(content))

	w := &lineWriter{}
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
				w.newline()
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock, *ast.List, *ast.ListItem, *ast.Blockquote, *extast.Table:
			w.newline()

		case *ast.Text:
			w.write(string(node.Segment.Value(content)))
			if node.SoftLineBreak() || node.HardLineBreak() {
				w.write(" ")
			}

		case *ast.String:
			w.write(string(node.Value))

		case *ast.CodeBlock, *ast.FencedCodeBlock:
			w.newline()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				w.write(string(line.Value(content)))
			}
			w.newline()
			return ast.WalkSkipChildren, nil

		case *extast.TableHeader, *extast.TableRow:
			w.newline()
			w.write(tableRowText(n, content))
			w.newline()
			return ast.WalkSkipChildren, nil

		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return Extracted{}, fmt.Errorf("%w: failed to read markdown %q: %w", retrieval.ErrInvalidDocument, filename, err)
	}

	return Extracted{
		Title: markdownTitle(doc, content, filename),
		Text:  strings.TrimSpace(w.String()),
	}, nil
}

// lineWriter accumulates text and collapses repeated line breaks.
type lineWriter struct {
	buf bytes.Buffer
}

func (w *lineWriter) write(s string) {
	w.buf.WriteString(s)
}

func (w *lineWriter) newline() {
	trimmed := bytes.TrimRight(w.buf.Bytes(), " \t")
	w.buf.Truncate(len(trimmed))
	if w.buf.Len() == 0 || bytes.HasSuffix(w.buf.Bytes(), []byte("\n")) {
		return
	}
	w.buf.WriteByte('\n')
}

func (w *lineWriter) String() string {
	return w.buf.String()
}

// markdownTitle picks the first level 1 heading, then the first level 2 heading,
// then the filename.
func markdownTitle(doc ast.Node, content []byte, filename string) string {
	var firstH1, firstH2 string

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			headingText := nodeText(heading, content)
			if heading.Level == 1 && firstH1 == "" {
				firstH1 = headingText
				return ast.WalkStop, nil
			}
			if heading.Level == 2 && firstH2 == "" {
				firstH2 = headingText
			}
		}
		return ast.WalkContinue, nil
	})

	if firstH1 != "" {
		return firstH1
	}
	if firstH2 != "" {
		return firstH2
	}
	return titleFromFilename(filename)
}

// titleFromFilename strips the extension and capitalizes each word.
func titleFromFilename(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)

	words := strings.Fields(name)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// nodeText extracts text content from a node and its children.
func nodeText(n ast.Node, content []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// tableRowText renders the cells of a table row separated by pipes.
func tableRowText(row ast.Node, content []byte) string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*extast.TableCell); ok {
			cells = append(cells, nodeText(c, content))
		}
	}
	return strings.Join(cells, " | ")
}
