package storage

import "time"

// SessionRecord is a study session in the catalog.
type SessionRecord struct {
	ID           string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// DocumentRecord is an uploaded document owned by a session.
type DocumentRecord struct {
	ID         string
	SessionID  string
	Filename   string
	Kind       string
	Title      string
	Hash       string // SHA256 hex string of the uploaded bytes
	Runes      int    // Length of the extracted text
	ChunkCount int
	UploadedAt time.Time
}

// ChunkRecord is the catalog entry of an indexed chunk.
type ChunkRecord struct {
	ID          string // Same as the vector point ID
	DocumentID  string
	ChunkIndex  int // Index within document (starts at 0)
	Page        int // 0 when the source has no pages
	StartOffset int
	EndOffset   int
	Text        string
}
