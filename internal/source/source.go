// Package source turns uploaded files into plain text ready for indexing.
// Each supported format is a Kind; a Source is validated and extracted according to its Kind.
package source

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"study-assistant/internal/retrieval"
)

// Kind identifies the format of an uploaded document.
type Kind string

const (
	KindPlainText Kind = "plain_text"
	KindMarkdown  Kind = "markdown"
	KindPDF       Kind = "pdf"
)

// Source is an uploaded file awaiting extraction.
type Source struct {
	Kind     Kind
	Filename string
	Data     []byte
}

// Extracted is the text content of a Source.
type Extracted struct {
	Title string
	Text  string
	Pages []retrieval.PageSpan
}

var extensionKinds = map[string]Kind{
	".txt":      KindPlainText,
	".text":     KindPlainText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".pdf":      KindPDF,
}

// ParseKind validates a kind name supplied by a caller.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPlainText, KindMarkdown, KindPDF:
		return k, nil
	case "text", "txt":
		return KindPlainText, nil
	case "md":
		return KindMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unsupported document kind %q", retrieval.ErrInvalidDocument, s)
	}
}

// DetectKind infers the kind from the filename extension, falling back to the content type.
func DetectKind(filename, contentType string) (Kind, error) {
	if k, ok := extensionKinds[strings.ToLower(filepath.Ext(filename))]; ok {
		return k, nil
	}

	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch mediaType {
			case "application/pdf":
				return KindPDF, nil
			case "text/markdown", "text/x-markdown":
				return KindMarkdown, nil
			case "text/plain":
				return KindPlainText, nil
			}
		}
	}

	return "", fmt.Errorf("%w: unsupported file type %q", retrieval.ErrInvalidDocument, filename)
}

// Supported reports whether a filename has a supported extension.
func Supported(filename string) bool {
	_, ok := extensionKinds[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extract returns the text of src. Empty or unreadable content is retrieval.ErrInvalidDocument.
func Extract(src Source) (Extracted, error) {
	if len(bytes.TrimSpace(src.Data)) == 0 {
		return Extracted{}, fmt.Errorf("%w: %q is empty", retrieval.ErrInvalidDocument, src.Filename)
	}

	var (
		out Extracted
		err error
	)
	switch src.Kind {
	case KindPlainText:
		out, err = extractPlainText(src)
	case KindMarkdown:
		out, err = defaultMarkdown.Extract(src.Data, src.Filename)
	case KindPDF:
		out, err = extractPDF(src)
	default:
		return Extracted{}, fmt.Errorf("%w: unsupported document kind %q", retrieval.ErrInvalidDocument, src.Kind)
	}
	if err != nil {
		return Extracted{}, err
	}

	if strings.TrimSpace(out.Text) == "" {
		return Extracted{}, fmt.Errorf("%w: %q has no extractable text", retrieval.ErrInvalidDocument, src.Filename)
	}
	if out.Title == "" {
		out.Title = titleFromFilename(src.Filename)
	}
	return out, nil
}

func extractPlainText(src Source) (Extracted, error) {
	if !utf8.Valid(src.Data) {
		return Extracted{}, fmt.Errorf("%w: %q is not valid UTF-8 text", retrieval.ErrInvalidDocument, src.Filename)
	}
	text := strings.TrimPrefix(string(src.Data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return Extracted{Text: text}, nil
}
