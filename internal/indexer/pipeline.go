// Package indexer feeds uploaded documents into a session index and its catalog.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"study-assistant/internal/contextutil"
	"study-assistant/internal/library"
	"study-assistant/internal/retrieval"
	"study-assistant/internal/source"
	"study-assistant/internal/storage"
)

// Pipeline orchestrates extraction, indexing and cataloguing of documents.
// Callers serialise calls per session.
type Pipeline struct {
	documents storage.DocumentStore
	chunks    storage.ChunkStore
	now       func() time.Time
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(documents storage.DocumentStore, chunks storage.ChunkStore) *Pipeline {
	return &Pipeline{
		documents: documents,
		chunks:    chunks,
		now:       time.Now,
	}
}

// IngestResult describes an ingested document.
type IngestResult struct {
	DocumentID string
	Filename   string
	Kind       source.Kind
	Title      string
	Chunks     int
	Runes      int
	// Duplicate is set when the same bytes were already uploaded to the session.
	// No new document is created in that case.
	Duplicate  bool
	UploadedAt time.Time
}

// Ingest extracts src, indexes it and records it in the catalog.
// If the catalog write fails the document is removed from the index again.
func (p *Pipeline) Ingest(ctx context.Context, sessionID string, index *retrieval.Index, src source.Source) (*IngestResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	extracted, err := source.Extract(src)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(src.Data)
	hash := hex.EncodeToString(sum[:])

	existing, err := p.documents.GetByHash(ctx, sessionID, hash)
	switch {
	case err == nil:
		logger.DebugContext(ctx, "skipping duplicate document", "session_id", sessionID, "filename", src.Filename, "document_id", existing.ID)
		return &IngestResult{
			DocumentID: existing.ID,
			Filename:   existing.Filename,
			Kind:       source.Kind(existing.Kind),
			Title:      existing.Title,
			Chunks:     existing.ChunkCount,
			Runes:      existing.Runes,
			Duplicate:  true,
			UploadedAt: existing.UploadedAt,
		}, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing document: %w", err)
	}

	doc := retrieval.Document{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		Filename:   src.Filename,
		Kind:       string(src.Kind),
		Text:       extracted.Text,
		Pages:      extracted.Pages,
		UploadedAt: p.now().UTC(),
	}

	chunks, err := index.Ingest(ctx, doc)
	if err != nil {
		return nil, err
	}

	runes := len([]rune(doc.Text))
	record := &storage.DocumentRecord{
		ID:         doc.ID,
		SessionID:  sessionID,
		Filename:   doc.Filename,
		Kind:       doc.Kind,
		Title:      extracted.Title,
		Hash:       hash,
		Runes:      runes,
		ChunkCount: len(chunks),
		UploadedAt: doc.UploadedAt,
	}
	if err := p.documents.Insert(ctx, record); err != nil {
		p.rollback(ctx, sessionID, index, doc.ID, false)
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	chunkRecords := make([]*storage.ChunkRecord, len(chunks))
	for i, c := range chunks {
		chunkRecords[i] = &storage.ChunkRecord{
			ID:          c.ID,
			DocumentID:  doc.ID,
			ChunkIndex:  c.Index,
			Page:        c.Page,
			StartOffset: c.Start,
			EndOffset:   c.End,
			Text:        c.Text,
		}
	}
	if err := p.chunks.InsertBatch(ctx, chunkRecords); err != nil {
		p.rollback(ctx, sessionID, index, doc.ID, true)
		return nil, fmt.Errorf("failed to insert chunks: %w", err)
	}

	logger.InfoContext(ctx, "ingested document", "session_id", sessionID, "document_id", doc.ID, "filename", doc.Filename, "chunks", len(chunks), "title", extracted.Title)
	return &IngestResult{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Kind:       src.Kind,
		Title:      extracted.Title,
		Chunks:     len(chunks),
		Runes:      runes,
		UploadedAt: doc.UploadedAt,
	}, nil
}

func (p *Pipeline) rollback(ctx context.Context, sessionID string, index *retrieval.Index, documentID string, catalogued bool) {
	logger := contextutil.LoggerFromContext(ctx)
	if _, err := index.Remove(ctx, documentID); err != nil {
		logger.ErrorContext(ctx, "failed to roll back indexed document", "document_id", documentID, "error", err)
	}
	if !catalogued {
		return
	}
	if err := p.documents.Delete(ctx, sessionID, documentID); err != nil {
		logger.ErrorContext(ctx, "failed to roll back document record", "document_id", documentID, "error", err)
	}
}

// Remove deletes a document from the index and the catalog and returns the number of
// chunks removed. Unknown documents are a no-op.
func (p *Pipeline) Remove(ctx context.Context, sessionID string, index *retrieval.Index, documentID string) (int, error) {
	removed, err := index.Remove(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if err := p.documents.Delete(ctx, sessionID, documentID); err != nil {
		return removed, fmt.Errorf("failed to delete document record: %w", err)
	}
	return removed, nil
}

// FileError records a file that could not be ingested.
type FileError struct {
	RelPath string
	Err     error
}

// DirectoryReport summarises a directory ingestion.
type DirectoryReport struct {
	Files      int
	Ingested   []*IngestResult
	Duplicates int
	Failed     []FileError
}

// IngestDirectory scans dir and ingests every supported file.
// Errors for individual files are recorded but don't stop the process.
func (p *Pipeline) IngestDirectory(ctx context.Context, sessionID string, index *retrieval.Index, dir string) (*DirectoryReport, error) {
	logger := contextutil.LoggerFromContext(ctx)

	files, err := library.Scan(ctx, dir)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "starting directory ingestion", "dir", dir, "total_files", len(files))

	report := &DirectoryReport{Files: len(files)}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		data, err := os.ReadFile(file.AbsPath)
		if err != nil {
			report.Failed = append(report.Failed, FileError{RelPath: file.RelPath, Err: fmt.Errorf("failed to read file: %w", err)})
			continue
		}

		result, err := p.Ingest(ctx, sessionID, index, source.Source{Kind: file.Kind, Filename: file.RelPath, Data: data})
		if err != nil {
			logger.ErrorContext(ctx, "failed to ingest file", "rel_path", file.RelPath, "error", err)
			report.Failed = append(report.Failed, FileError{RelPath: file.RelPath, Err: err})
			continue
		}
		if result.Duplicate {
			report.Duplicates++
			continue
		}
		report.Ingested = append(report.Ingested, result)
	}

	logger.InfoContext(ctx, "directory ingestion completed", "total_files", len(files), "ingested", len(report.Ingested), "duplicates", report.Duplicates, "errors", len(report.Failed))
	return report, nil
}
