package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"study-assistant/internal/rag"
	"study-assistant/internal/retrieval"
	"study-assistant/internal/service"
	service_mocks "study-assistant/internal/service/mocks"
)

func TestAskHandler_DebugMode(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		expectDebug bool
	}{
		{name: "debug mode enabled via true", target: "/sessions/s1/ask?debug=true", expectDebug: true},
		{name: "debug mode enabled via 1", target: "/sessions/s1/ask?debug=1", expectDebug: true},
		{name: "debug mode disabled", target: "/sessions/s1/ask", expectDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := service_mocks.NewMockStudyService(ctrl)
			handler := NewAskHandler(mockService)

			mockService.EXPECT().Ask(gomock.Any(), "s1", rag.AskRequest{Question: "What produces ATP?", Debug: tt.expectDebug}).
				DoAndReturn(func(_ any, _ string, req rag.AskRequest) (rag.AskResponse, error) {
					resp := rag.AskResponse{
						Answer:  "Mitochondria produce ATP.",
						Sources: []string{"bio.pdf (Page 3)"},
						References: []rag.Reference{
							{ChunkID: "d1:4", DocumentID: "d1", Filename: "bio.pdf", Page: 3, ChunkIndex: 4, Score: 0.8},
						},
					}
					if req.Debug {
						resp.Debug = &rag.DebugInfo{
							RetrievedChunks: []rag.RetrievedChunk{{ChunkID: "d1:4", Filename: "bio.pdf", Page: 3, ScoreVector: 0.8, Rank: 1}},
						}
					}
					return resp, nil
				})

			w := serve(t, http.MethodPost, "/sessions/{sessionID}/ask", handler.ServeHTTP, tt.target, `{"question":"What produces ATP?"}`)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
			}

			var resp AskResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Answer != "Mitochondria produce ATP." {
				t.Errorf("answer = %q", resp.Answer)
			}
			if len(resp.Sources) != 1 || resp.Sources[0] != "bio.pdf (Page 3)" {
				t.Errorf("sources = %v", resp.Sources)
			}
			if len(resp.References) != 1 || resp.References[0].Page != 3 {
				t.Errorf("references = %+v", resp.References)
			}
			if (resp.Debug != nil) != tt.expectDebug {
				t.Errorf("debug present = %v, want %v", resp.Debug != nil, tt.expectDebug)
			}
		})
	}
}

func TestAskHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		callsSvc   bool
		wantStatus int
	}{
		{name: "malformed body", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "empty question", body: `{"question":""}`, callsSvc: true, err: &service.ValidationError{Field: "question", Message: "cannot be empty"}, wantStatus: http.StatusBadRequest},
		{name: "unknown session", body: `{"question":"q"}`, callsSvc: true, err: fmt.Errorf("%w: s1", service.ErrNotFound), wantStatus: http.StatusNotFound},
		{name: "no documents", body: `{"question":"q"}`, callsSvc: true, err: retrieval.ErrEmptyIndex, wantStatus: http.StatusConflict},
		{name: "llm failure", body: `{"question":"q"}`, callsSvc: true, err: fmt.Errorf("%w: timeout", rag.ErrLLMService), wantStatus: http.StatusBadGateway},
		{name: "answering disabled", body: `{"question":"q"}`, callsSvc: true, err: service.ErrUnavailable, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := service_mocks.NewMockStudyService(ctrl)
			handler := NewAskHandler(mockService)
			if tt.callsSvc {
				mockService.EXPECT().Ask(gomock.Any(), "s1", gomock.Any()).Return(rag.AskResponse{}, tt.err)
			}

			w := serve(t, http.MethodPost, "/sessions/{sessionID}/ask", handler.ServeHTTP, "/sessions/s1/ask", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestAskHandler_Stream(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := service_mocks.NewMockStudyService(ctrl)
	handler := NewAskHandler(mockService)

	mockService.EXPECT().StreamAsk(gomock.Any(), "s1", rag.AskRequest{Question: "What produces ATP?", K: 2}, gomock.Any()).
		DoAndReturn(func(_ any, _ string, _ rag.AskRequest, callback func(string) error) (rag.AskResponse, error) {
			for _, delta := range []string{"Mito", "chondria\n"} {
				if err := callback(delta); err != nil {
					return rag.AskResponse{}, err
				}
			}
			return rag.AskResponse{
				Answer:     "Mitochondria\n",
				Sources:    []string{"bio.md"},
				References: []rag.Reference{{ChunkID: "d1:0", Filename: "bio.md"}},
			}, nil
		})

	w := serve(t, http.MethodPost, "/sessions/{sessionID}/ask", handler.ServeHTTP, "/sessions/s1/ask?stream=true", `{"question":"What produces ATP?","k":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	var events []string
	for _, block := range strings.Split(strings.TrimSpace(w.Body.String()), "\n\n") {
		events = append(events, strings.TrimPrefix(block, "data: "))
	}
	if len(events) != 4 {
		t.Fatalf("events = %q, want 4", events)
	}

	var first, second, final StreamEvent
	for i, dst := range []*StreamEvent{&first, &second, &final} {
		if err := json.Unmarshal([]byte(events[i]), dst); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
	}
	if first.Delta+second.Delta != "Mitochondria\n" {
		t.Errorf("deltas = %q + %q", first.Delta, second.Delta)
	}
	if len(final.Sources) != 1 || final.Sources[0] != "bio.md" {
		t.Errorf("final sources = %v", final.Sources)
	}
	if events[3] != "[DONE]" {
		t.Errorf("last event = %q, want [DONE]", events[3])
	}
}

func TestAskHandler_StreamErrorBeforeFirstDelta(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := service_mocks.NewMockStudyService(ctrl)
	handler := NewAskHandler(mockService)

	mockService.EXPECT().StreamAsk(gomock.Any(), "s1", gomock.Any(), gomock.Any()).Return(rag.AskResponse{}, retrieval.ErrEmptyIndex)

	w := serve(t, http.MethodPost, "/sessions/{sessionID}/ask", handler.ServeHTTP, "/sessions/s1/ask?stream=true", `{"question":"q"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
}

func TestAskHandler_StreamErrorMidStream(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := service_mocks.NewMockStudyService(ctrl)
	handler := NewAskHandler(mockService)

	mockService.EXPECT().StreamAsk(gomock.Any(), "s1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, _ string, _ rag.AskRequest, callback func(string) error) (rag.AskResponse, error) {
			_ = callback("Partial")
			return rag.AskResponse{}, fmt.Errorf("%w: stream reset", rag.ErrLLMService)
		})

	w := serve(t, http.MethodPost, "/sessions/{sessionID}/ask", handler.ServeHTTP, "/sessions/s1/ask?stream=true", `{"question":"q"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 once streaming started", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"error":"External service error"`) {
		t.Errorf("body = %q, want error event", body)
	}
	if strings.Contains(body, "[DONE]") {
		t.Errorf("body = %q, must not finish with [DONE]", body)
	}
}
