// Package rag answers questions from the chunks retrieved out of a session index.
package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_client.go -package=mocks study-assistant/internal/rag ChatClient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"study-assistant/internal/contextutil"
	"study-assistant/internal/llm"
	"study-assistant/internal/retrieval"
)

// ErrLLMService is returned when the chat model fails to produce an answer.
var ErrLLMService = errors.New("llm service error")

const debugTextRunes = 300

// ChatClient is the LLM collaborator. *llm.Client implements it.
type ChatClient interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
	StreamChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(chunk string) error) error
}

// Retriever returns the k chunks most relevant to a question. *retrieval.Index implements it.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]retrieval.Result, error)
}

// Options tune generation.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// DefaultOptions returns the generation settings used for study answers.
func DefaultOptions() Options {
	return Options{Temperature: 0.3, MaxTokens: 1000}
}

// Engine provides RAG (Retrieval-Augmented Generation) functionality.
type Engine struct {
	chat ChatClient
	opts Options
}

// NewEngine creates a new RAG engine.
func NewEngine(chat ChatClient, opts Options) *Engine {
	return &Engine{chat: chat, opts: opts}
}

// Ask answers a question using the top K chunks of r.
func (e *Engine) Ask(ctx context.Context, r Retriever, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	results, messages, err := e.prepare(ctx, r, req)
	if err != nil {
		return AskResponse{}, err
	}

	answer, err := e.chat.ChatWithMessages(ctx, messages, e.params())
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return AskResponse{}, fmt.Errorf("%w: %w", ErrLLMService, err)
	}

	logger.InfoContext(ctx, "RAG query completed", "chunks_used", len(results), "answer_length", len(answer))
	return e.response(req, results, messages, answer), nil
}

// StreamAsk is Ask with the answer delivered to onDelta as it is generated.
// The returned response carries the full answer.
func (e *Engine) StreamAsk(ctx context.Context, r Retriever, req AskRequest, onDelta func(string) error) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	results, messages, err := e.prepare(ctx, r, req)
	if err != nil {
		return AskResponse{}, err
	}

	var answer strings.Builder
	err = e.chat.StreamChatWithMessages(ctx, messages, e.params(), func(delta string) error {
		answer.WriteString(delta)
		return onDelta(delta)
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to stream LLM response", "error", err)
		return AskResponse{}, fmt.Errorf("%w: %w", ErrLLMService, err)
	}

	logger.InfoContext(ctx, "RAG stream completed", "chunks_used", len(results), "answer_length", answer.Len())
	return e.response(req, results, messages, answer.String()), nil
}

func (e *Engine) prepare(ctx context.Context, r Retriever, req AskRequest) ([]retrieval.Result, []llm.Message, error) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "RAG query started", "k", req.K, "question_length", len(req.Question))

	results, err := r.Query(ctx, req.Question, req.K)
	if err != nil {
		return nil, nil, err
	}

	if len(results) > 0 {
		topScores := make([]float32, 0, 3)
		for i := 0; i < len(results) && i < 3; i++ {
			topScores = append(topScores, results[i].Score)
		}
		logger.DebugContext(ctx, "top search results", "top_3_scores", topScores)
	}

	messages := Messages(req.Question, results)
	logger.DebugContext(ctx, "LLM messages", "system_prompt", messages[0].Content, "user_message_length", len(messages[1].Content))
	return results, messages, nil
}

func (e *Engine) params() llm.ChatParams {
	return llm.ChatParams{
		Temperature: e.opts.Temperature,
		MaxTokens:   e.opts.MaxTokens,
	}
}

func (e *Engine) response(req AskRequest, results []retrieval.Result, messages []llm.Message, answer string) AskResponse {
	resp := AskResponse{
		Answer:     answer,
		Sources:    make([]string, 0, len(results)),
		References: make([]Reference, 0, len(results)),
	}
	for _, r := range results {
		resp.Sources = append(resp.Sources, SourceLabel(r.Chunk))
		resp.References = append(resp.References, Reference{
			ChunkID:    r.Chunk.ID,
			DocumentID: r.Chunk.DocumentID,
			Filename:   r.Chunk.Filename,
			Page:       r.Chunk.Page,
			ChunkIndex: r.Chunk.Index,
			Score:      r.Score,
		})
	}
	if req.Debug {
		resp.Debug = buildDebugInfo(req.Question, results, messages)
	}
	return resp
}

func buildDebugInfo(question string, results []retrieval.Result, messages []llm.Message) *DebugInfo {
	info := &DebugInfo{
		RetrievedChunks: make([]RetrievedChunk, 0, len(results)),
		PromptRunes:     utf8.RuneCountInString(messages[len(messages)-1].Content),
	}
	for i, r := range results {
		info.RetrievedChunks = append(info.RetrievedChunks, RetrievedChunk{
			ChunkID:      r.Chunk.ID,
			Filename:     r.Chunk.Filename,
			Page:         r.Chunk.Page,
			ScoreVector:  float64(r.Score),
			ScoreLexical: float64(lexicalScore(question, r.Chunk.Text, r.Chunk.Filename)),
			Text:         truncateRunes(r.Chunk.Text, debugTextRunes),
			Rank:         i + 1,
		})
	}
	return info
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
