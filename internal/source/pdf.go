package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"study-assistant/internal/retrieval"
)

// pageSeparator joins extracted pages; it belongs to the page before it.
const pageSeparator = "\n\n"

type pageText struct {
	number int
	text   string
}

func extractPDF(src Source) (Extracted, error) {
	pages, err := readPDFPages(src.Data)
	if err != nil {
		return Extracted{}, fmt.Errorf("%w: failed to read PDF %q: %w", retrieval.ErrInvalidDocument, src.Filename, err)
	}
	text, spans := joinPages(pages)
	return Extracted{Text: text, Pages: spans}, nil
}

// readPDFPages returns the plain text of each non-blank page, numbered from 1.
// The PDF parser panics on some malformed files; that is reported as an error.
func readPDFPages(data []byte) (pages []pageText, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		pages = append(pages, pageText{number: i, text: content})
	}
	return pages, nil
}

// joinPages concatenates page texts and records the rune range each page covers.
func joinPages(pages []pageText) (string, []retrieval.PageSpan) {
	var b strings.Builder
	spans := make([]retrieval.PageSpan, 0, len(pages))
	offset := 0
	for i, p := range pages {
		segment := p.text
		if i < len(pages)-1 {
			segment += pageSeparator
		}
		n := len([]rune(segment))
		spans = append(spans, retrieval.PageSpan{Page: p.number, Start: offset, End: offset + n})
		b.WriteString(segment)
		offset += n
	}
	return b.String(), spans
}
