package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"study-assistant/internal/llm"
	"study-assistant/internal/rag/mocks"
	"study-assistant/internal/retrieval"
	"study-assistant/internal/vectorstore"
)

func newTestIndex(t *testing.T, docs ...retrieval.Document) *retrieval.Index {
	t.Helper()
	embedder, err := llm.NewHashEmbedder(256)
	if err != nil {
		t.Fatalf("NewHashEmbedder() error = %v", err)
	}
	index, err := retrieval.NewIndex("rag-test", embedder, vectorstore.NewMemoryStore(), retrieval.Splitter{Size: 500, Overlap: 50})
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	for _, d := range docs {
		if _, err := index.Ingest(context.Background(), d); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
	}
	return index
}

func studyIndex(t *testing.T) *retrieval.Index {
	return newTestIndex(t,
		retrieval.Document{
			ID:       "bio",
			Filename: "biology.pdf",
			Text:     "Mitochondria are the powerhouse of the cell.",
			Pages:    []retrieval.PageSpan{{Page: 4, Start: 0, End: 45}},
		},
		retrieval.Document{ID: "chem", Filename: "chemistry.md", Text: "Acids donate protons while bases accept protons."},
	)
}

func TestEngine_Ask(t *testing.T) {
	ctrl := gomock.NewController(t)
	chat := mocks.NewMockChatClient(ctrl)
	engine := NewEngine(chat, DefaultOptions())

	chat.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), llm.ChatParams{Temperature: 0.3, MaxTokens: 1000}).
		DoAndReturn(func(_ context.Context, msgs []llm.Message, _ llm.ChatParams) (string, error) {
			if len(msgs) != 2 || msgs[0].Content != SystemPrompt {
				t.Errorf("unexpected messages: %+v", msgs)
			}
			if !strings.Contains(msgs[1].Content, "Mitochondria are the powerhouse of the cell.") {
				t.Errorf("prompt missing retrieved chunk: %s", msgs[1].Content)
			}
			if strings.Contains(msgs[1].Content, "protons") {
				t.Errorf("prompt contains chunk beyond k=1: %s", msgs[1].Content)
			}
			return "The mitochondria.", nil
		})

	resp, err := engine.Ask(context.Background(), studyIndex(t), AskRequest{Question: "What is the powerhouse of the cell?", K: 1})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != "The mitochondria." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "biology.pdf (Page 4)" {
		t.Errorf("Sources = %v, want [biology.pdf (Page 4)]", resp.Sources)
	}
	if len(resp.References) != 1 || resp.References[0].DocumentID != "bio" || resp.References[0].Score <= 0 {
		t.Errorf("References = %+v", resp.References)
	}
	if resp.Debug != nil {
		t.Error("Debug should be nil unless requested")
	}
}

func TestEngine_AskDebug(t *testing.T) {
	ctrl := gomock.NewController(t)
	chat := mocks.NewMockChatClient(ctrl)
	chat.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return("answer", nil)

	resp, err := NewEngine(chat, DefaultOptions()).Ask(context.Background(), studyIndex(t), AskRequest{Question: "protons acids", K: 5, Debug: true})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Debug == nil {
		t.Fatal("Debug = nil, want debug info")
	}
	chunks := resp.Debug.RetrievedChunks
	if len(chunks) != 2 {
		t.Fatalf("RetrievedChunks = %d, want 2", len(chunks))
	}
	if chunks[0].Filename != "chemistry.md" || chunks[0].Rank != 1 || chunks[1].Rank != 2 {
		t.Errorf("RetrievedChunks order = %+v", chunks)
	}
	if chunks[0].ScoreVector < chunks[1].ScoreVector {
		t.Error("RetrievedChunks not in descending vector score order")
	}
	if chunks[0].ScoreLexical <= 0 {
		t.Errorf("ScoreLexical = %f, want positive for overlapping words", chunks[0].ScoreLexical)
	}
	if resp.Debug.PromptRunes == 0 {
		t.Error("PromptRunes = 0")
	}
}

func TestEngine_AskErrors(t *testing.T) {
	t.Run("empty index", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		engine := NewEngine(mocks.NewMockChatClient(ctrl), DefaultOptions())

		_, err := engine.Ask(context.Background(), newTestIndex(t), AskRequest{Question: "anything", K: 3})
		if !errors.Is(err, retrieval.ErrEmptyIndex) {
			t.Errorf("Ask() error = %v, want ErrEmptyIndex", err)
		}
	})

	t.Run("invalid k", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		engine := NewEngine(mocks.NewMockChatClient(ctrl), DefaultOptions())

		_, err := engine.Ask(context.Background(), studyIndex(t), AskRequest{Question: "anything", K: 0})
		if !errors.Is(err, retrieval.ErrInvalidK) {
			t.Errorf("Ask() error = %v, want ErrInvalidK", err)
		}
	})

	t.Run("llm failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		chat := mocks.NewMockChatClient(ctrl)
		upstream := errors.New("503 from provider")
		chat.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return("", upstream)

		_, err := NewEngine(chat, DefaultOptions()).Ask(context.Background(), studyIndex(t), AskRequest{Question: "cell", K: 1})
		if !errors.Is(err, ErrLLMService) || !errors.Is(err, upstream) {
			t.Errorf("Ask() error = %v, want ErrLLMService wrapping cause", err)
		}
	})
}

func TestEngine_StreamAsk(t *testing.T) {
	ctrl := gomock.NewController(t)
	chat := mocks.NewMockChatClient(ctrl)
	chat.EXPECT().
		StreamChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []llm.Message, _ llm.ChatParams, cb func(string) error) error {
			for _, d := range []string{"The ", "mito", "chondria."} {
				if err := cb(d); err != nil {
					return err
				}
			}
			return nil
		})

	var deltas []string
	resp, err := NewEngine(chat, DefaultOptions()).StreamAsk(context.Background(), studyIndex(t), AskRequest{Question: "powerhouse cell", K: 2},
		func(d string) error {
			deltas = append(deltas, d)
			return nil
		})
	if err != nil {
		t.Fatalf("StreamAsk() error = %v", err)
	}
	if len(deltas) != 3 {
		t.Errorf("deltas = %v, want 3", deltas)
	}
	if resp.Answer != "The mitochondria." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Errorf("Sources = %v, want 2", resp.Sources)
	}
}

func TestEngine_StreamAskCallbackError(t *testing.T) {
	ctrl := gomock.NewController(t)
	chat := mocks.NewMockChatClient(ctrl)
	stop := errors.New("client went away")
	chat.EXPECT().
		StreamChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []llm.Message, _ llm.ChatParams, cb func(string) error) error {
			return cb("partial")
		})

	_, err := NewEngine(chat, DefaultOptions()).StreamAsk(context.Background(), studyIndex(t), AskRequest{Question: "cell", K: 1},
		func(string) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("StreamAsk() error = %v, want callback error", err)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo", 10); got != "héllo" {
		t.Errorf("truncateRunes() = %q", got)
	}
	if got := truncateRunes("héllo wörld", 5); got != "héllo..." {
		t.Errorf("truncateRunes() = %q, want %q", got, "héllo...")
	}
}
