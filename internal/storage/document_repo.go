package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks study-assistant/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// Insert inserts a document. The document.ID must be set before calling this method.
	Insert(ctx context.Context, doc *DocumentRecord) error
	// GetByID gets a document of a session. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, sessionID, id string) (*DocumentRecord, error)
	// GetByHash gets the document of a session with the given content hash.
	// Returns ErrNotFound if not found.
	GetByHash(ctx context.Context, sessionID, hash string) (*DocumentRecord, error)
	// ListBySession returns the documents of a session in upload order.
	ListBySession(ctx context.Context, sessionID string) ([]*DocumentRecord, error)
	// Delete removes a document and its chunks. Deleting an unknown document is a no-op.
	Delete(ctx context.Context, sessionID, id string) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = "id, session_id, filename, kind, title, hash, runes, chunk_count, uploaded_at"

// Insert inserts a document.
func (r *DocumentRepo) Insert(ctx context.Context, doc *DocumentRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO documents ("+documentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		doc.ID, doc.SessionID, doc.Filename, doc.Kind, doc.Title, doc.Hash, doc.Runes, doc.ChunkCount, doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID gets a document of a session. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, sessionID, id string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE session_id = ? AND id = ?",
		sessionID, id,
	)
	return scanDocument(row)
}

// GetByHash gets the document of a session with the given content hash.
func (r *DocumentRepo) GetByHash(ctx context.Context, sessionID, hash string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE session_id = ? AND hash = ?",
		sessionID, hash,
	)
	return scanDocument(row)
}

// ListBySession returns the documents of a session in upload order.
// Returns an empty slice if the session has no documents (not an error).
func (r *DocumentRepo) ListBySession(ctx context.Context, sessionID string) ([]*DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE session_id = ? ORDER BY uploaded_at, rowid",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := []*DocumentRecord{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

// Delete removes a document; its chunks cascade.
func (r *DocumentRepo) Delete(ctx context.Context, sessionID, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE session_id = ? AND id = ?", sessionID, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*DocumentRecord, error) {
	var doc DocumentRecord
	var title sql.NullString
	err := row.Scan(&doc.ID, &doc.SessionID, &doc.Filename, &doc.Kind, &title, &doc.Hash, &doc.Runes, &doc.ChunkCount, &doc.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	doc.Title = title.String
	return &doc, nil
}
