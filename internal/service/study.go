package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_study_service.go -package=mocks study-assistant/internal/service StudyService

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"study-assistant/internal/contextutil"
	"study-assistant/internal/indexer"
	"study-assistant/internal/rag"
	"study-assistant/internal/retrieval"
	"study-assistant/internal/session"
	"study-assistant/internal/source"
	"study-assistant/internal/storage"
)

// SessionInfo describes a study session.
type SessionInfo struct {
	ID        string
	CreatedAt time.Time
}

// IngestRequest is an uploaded document.
type IngestRequest struct {
	Filename string
	// Kind is optional; when empty it is detected from Filename and ContentType.
	Kind        string
	ContentType string
	Data        []byte
}

// DocumentInfo describes a document of a session.
type DocumentInfo struct {
	ID         string
	Filename   string
	Kind       string
	Title      string
	Chunks     int
	Runes      int
	Duplicate  bool
	UploadedAt time.Time
}

// QueryRequest asks for the chunks most relevant to Text.
type QueryRequest struct {
	Text string
	// K defaults to the configured default when 0 and is capped at the configured maximum.
	K int
}

// QueryResult is a retrieved chunk.
type QueryResult struct {
	ChunkID    string
	DocumentID string
	Filename   string
	Source     string
	Page       int
	ChunkIndex int
	Text       string
	Score      float32
}

// StudyService is the use-case layer behind the HTTP API and the CLI.
type StudyService interface {
	CreateSession(ctx context.Context) (SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	IngestDocument(ctx context.Context, sessionID string, req IngestRequest) (DocumentInfo, error)
	IngestDirectory(ctx context.Context, sessionID, dir string) (*indexer.DirectoryReport, error)
	RemoveDocument(ctx context.Context, sessionID, documentID string) (int, error)
	ListDocuments(ctx context.Context, sessionID string) ([]DocumentInfo, error)
	Query(ctx context.Context, sessionID string, req QueryRequest) ([]QueryResult, error)
	Ask(ctx context.Context, sessionID string, req rag.AskRequest) (rag.AskResponse, error)
	StreamAsk(ctx context.Context, sessionID string, req rag.AskRequest, callback func(chunk string) error) (rag.AskResponse, error)
	Stats(ctx context.Context, sessionID string) (*indexer.CoverageStats, error)
}

// Config holds the service limits.
type Config struct {
	DefaultK           int
	MaxK               int
	MaxUploadBytes     int64
	EmbeddingModelName string
}

// studyService implements StudyService.
type studyService struct {
	sessions  *session.Manager
	pipeline  *indexer.Pipeline
	documents storage.DocumentStore
	engine    *rag.Engine
	cfg       Config
}

// NewStudyService creates a new StudyService. engine may be nil, in which case Ask and
// StreamAsk return ErrUnavailable.
func NewStudyService(sessions *session.Manager, pipeline *indexer.Pipeline, documents storage.DocumentStore, engine *rag.Engine, cfg Config) StudyService {
	return &studyService{
		sessions:  sessions,
		pipeline:  pipeline,
		documents: documents,
		engine:    engine,
		cfg:       cfg,
	}
}

// lockSession locks a session that may have been evicted since it was looked up.
func lockSession(sess *session.Session) error {
	if err := sess.Lock(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return nil
}

func (s *studyService) session(ctx context.Context, sessionID string) (*session.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, &ValidationError{Field: "session_id", Message: "cannot be empty"}
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	return sess, nil
}

// CreateSession starts a new session with an empty index.
func (s *studyService) CreateSession(ctx context.Context) (SessionInfo, error) {
	sess, err := s.sessions.Create(ctx)
	if err != nil {
		return SessionInfo{}, WrapError(err, "failed to create session")
	}
	return SessionInfo{ID: sess.ID, CreatedAt: sess.CreatedAt}, nil
}

// DeleteSession drops a session with all its documents.
func (s *studyService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return WrapError(err, "failed to delete session")
	}
	return nil
}

// IngestDocument validates, extracts and indexes an uploaded document.
func (s *studyService) IngestDocument(ctx context.Context, sessionID string, req IngestRequest) (DocumentInfo, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Filename) == "" {
		return DocumentInfo{}, &ValidationError{Field: "filename", Message: "cannot be empty"}
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(req.Data)) > s.cfg.MaxUploadBytes {
		return DocumentInfo{}, &ValidationError{Field: "content", Message: fmt.Sprintf("exceeds %d bytes", s.cfg.MaxUploadBytes)}
	}

	var (
		kind source.Kind
		err  error
	)
	if req.Kind != "" {
		kind, err = source.ParseKind(req.Kind)
	} else {
		kind, err = source.DetectKind(req.Filename, req.ContentType)
	}
	if err != nil {
		logger.WarnContext(ctx, "rejected document", "filename", req.Filename, "error", err)
		return DocumentInfo{}, err
	}

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return DocumentInfo{}, err
	}

	if err := lockSession(sess); err != nil {
		return DocumentInfo{}, err
	}
	result, err := s.pipeline.Ingest(ctx, sess.ID, sess.Index(), source.Source{Kind: kind, Filename: req.Filename, Data: req.Data})
	sess.Unlock()
	if err != nil {
		return DocumentInfo{}, err
	}

	return DocumentInfo{
		ID:         result.DocumentID,
		Filename:   result.Filename,
		Kind:       string(result.Kind),
		Title:      result.Title,
		Chunks:     result.Chunks,
		Runes:      result.Runes,
		Duplicate:  result.Duplicate,
		UploadedAt: result.UploadedAt,
	}, nil
}

// IngestDirectory indexes every supported file below dir.
func (s *studyService) IngestDirectory(ctx context.Context, sessionID, dir string) (*indexer.DirectoryReport, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, &ValidationError{Field: "dir", Message: "cannot be empty"}
	}
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := lockSession(sess); err != nil {
		return nil, err
	}
	defer sess.Unlock()
	return s.pipeline.IngestDirectory(ctx, sess.ID, sess.Index(), dir)
}

// RemoveDocument deletes a document and returns how many chunks were removed.
func (s *studyService) RemoveDocument(ctx context.Context, sessionID, documentID string) (int, error) {
	if strings.TrimSpace(documentID) == "" {
		return 0, &ValidationError{Field: "document_id", Message: "cannot be empty"}
	}
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	if err := lockSession(sess); err != nil {
		return 0, err
	}
	defer sess.Unlock()
	return s.pipeline.Remove(ctx, sess.ID, sess.Index(), documentID)
}

// ListDocuments returns the documents of a session in upload order.
func (s *studyService) ListDocuments(ctx context.Context, sessionID string) ([]DocumentInfo, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	records, err := s.documents.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, WrapError(err, "failed to list documents")
	}

	docs := make([]DocumentInfo, 0, len(records))
	for _, r := range records {
		docs = append(docs, DocumentInfo{
			ID:         r.ID,
			Filename:   r.Filename,
			Kind:       r.Kind,
			Title:      r.Title,
			Chunks:     r.ChunkCount,
			Runes:      r.Runes,
			UploadedAt: r.UploadedAt,
		})
	}
	return docs, nil
}

func (s *studyService) resolveK(k int) (int, error) {
	if k == 0 {
		return s.cfg.DefaultK, nil
	}
	if s.cfg.MaxK > 0 && k > s.cfg.MaxK {
		return 0, &ValidationError{Field: "k", Message: fmt.Sprintf("cannot exceed %d", s.cfg.MaxK)}
	}
	return k, nil
}

// Query returns the chunks most relevant to req.Text.
func (s *studyService) Query(ctx context.Context, sessionID string, req QueryRequest) ([]QueryResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &ValidationError{Field: "query", Message: "cannot be empty"}
	}
	k, err := s.resolveK(req.K)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	results, err := lockedRetriever{sess}.Query(ctx, req.Text, k)
	if err != nil {
		return nil, err
	}

	out := make([]QueryResult, 0, len(results))
	for _, r := range results {
		out = append(out, QueryResult{
			ChunkID:    r.Chunk.ID,
			DocumentID: r.Chunk.DocumentID,
			Filename:   r.Chunk.Filename,
			Source:     rag.SourceLabel(r.Chunk),
			Page:       r.Chunk.Page,
			ChunkIndex: r.Chunk.Index,
			Text:       r.Chunk.Text,
			Score:      r.Score,
		})
	}
	return out, nil
}

func (s *studyService) prepareAsk(ctx context.Context, sessionID string, req *rag.AskRequest) (*session.Session, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, &ValidationError{Field: "question", Message: "cannot be empty"}
	}
	if s.engine == nil {
		return nil, fmt.Errorf("%w: question answering is disabled", ErrUnavailable)
	}
	k, err := s.resolveK(req.K)
	if err != nil {
		return nil, err
	}
	req.K = k
	return s.session(ctx, sessionID)
}

// Ask answers a question from the session's documents.
func (s *studyService) Ask(ctx context.Context, sessionID string, req rag.AskRequest) (rag.AskResponse, error) {
	sess, err := s.prepareAsk(ctx, sessionID, &req)
	if err != nil {
		return rag.AskResponse{}, err
	}
	return s.engine.Ask(ctx, lockedRetriever{sess}, req)
}

// StreamAsk answers a question and streams the answer via callback.
func (s *studyService) StreamAsk(ctx context.Context, sessionID string, req rag.AskRequest, callback func(chunk string) error) (rag.AskResponse, error) {
	sess, err := s.prepareAsk(ctx, sessionID, &req)
	if err != nil {
		return rag.AskResponse{}, err
	}
	return s.engine.StreamAsk(ctx, lockedRetriever{sess}, req, callback)
}

// Stats returns coverage statistics of a session.
func (s *studyService) Stats(ctx context.Context, sessionID string) (*indexer.CoverageStats, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := lockSession(sess); err != nil {
		return nil, err
	}
	defer sess.Unlock()
	return s.pipeline.CoverageStats(ctx, sess.ID, sess.Index(), s.cfg.EmbeddingModelName)
}

// lockedRetriever holds the session lock only for the index lookup, not for generation.
type lockedRetriever struct {
	sess *session.Session
}

func (r lockedRetriever) Query(ctx context.Context, text string, k int) ([]retrieval.Result, error) {
	if err := lockSession(r.sess); err != nil {
		return nil, err
	}
	defer r.sess.Unlock()
	return r.sess.Index().Query(ctx, text, k)
}
