package rag

import (
	"fmt"
	"strings"

	"study-assistant/internal/llm"
	"study-assistant/internal/retrieval"
)

// SystemPrompt instructs the model to stay within the retrieved material.
const SystemPrompt = "You are a helpful study assistant. Answer questions strictly based on provided context."

const promptTemplate = `Based on the following context from study documents, answer the question.
If the answer cannot be found in the context, clearly state that.

Context:
%s

Question: %s

Provide a clear, accurate answer based only on the given context.`

// BuildPrompt renders the user prompt for question with the retrieved chunks in the given order,
// which callers keep as descending relevance.
func BuildPrompt(question string, results []retrieval.Result) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	return fmt.Sprintf(promptTemplate, strings.Join(texts, "\n\n"), question)
}

// Messages returns the chat messages for question and results.
func Messages(question string, results []retrieval.Result) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: BuildPrompt(question, results)},
	}
}

// SourceLabel formats the citation of a chunk, e.g. "lecture.pdf (Page 3)".
func SourceLabel(c retrieval.Chunk) string {
	if c.Page > 0 {
		return fmt.Sprintf("%s (Page %d)", c.Filename, c.Page)
	}
	return c.Filename
}
