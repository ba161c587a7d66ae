package retrieval

import "fmt"

// Span is a rune range [Start, End) of a text.
type Span struct {
	Start int
	End   int
}

// Splitter cuts text into fixed-size overlapping spans measured in runes.
type Splitter struct {
	Size    int
	Overlap int
}

// Validate checks that the splitter can make progress.
func (s Splitter) Validate() error {
	if s.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, s.Size)
	}
	if s.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidOptions, s.Overlap)
	}
	if s.Overlap >= s.Size {
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)", ErrInvalidOptions, s.Overlap, s.Size)
	}
	return nil
}

// Split returns the spans covering a text of length runes.
// Consecutive spans share Overlap runes; the last span ends at length.
func (s Splitter) Split(length int) []Span {
	if length <= 0 {
		return nil
	}
	step := s.Size - s.Overlap
	spans := make([]Span, 0, s.Count(length))
	for start := 0; ; start += step {
		end := min(start+s.Size, length)
		spans = append(spans, Span{Start: start, End: end})
		if end == length {
			break
		}
	}
	return spans
}

// Count returns how many spans Split produces for a text of length runes.
func (s Splitter) Count(length int) int {
	if length <= 0 {
		return 0
	}
	if length <= s.Size {
		return 1
	}
	step := s.Size - s.Overlap
	return (length - s.Overlap + step - 1) / step
}

// SplitText splits text and returns the chunk strings alongside their spans.
func (s Splitter) SplitText(text string) ([]string, []Span) {
	runes := []rune(text)
	spans := s.Split(len(runes))
	parts := make([]string, len(spans))
	for i, sp := range spans {
		parts[i] = string(runes[sp.Start:sp.End])
	}
	return parts, spans
}
