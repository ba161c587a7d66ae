package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"study-assistant/internal/llm"
	"study-assistant/internal/retrieval"
	"study-assistant/internal/source"
	"study-assistant/internal/storage"
	storage_mocks "study-assistant/internal/storage/mocks"
	"study-assistant/internal/vectorstore"
)

const testSession = "session-1"

type testEnv struct {
	pipeline *Pipeline
	index    *retrieval.Index
	docs     *storage.DocumentRepo
	chunks   *storage.ChunkRepo
}

func newTestIndex(t *testing.T) *retrieval.Index {
	t.Helper()
	embedder, err := llm.NewHashEmbedder(128)
	if err != nil {
		t.Fatalf("NewHashEmbedder() error = %v", err)
	}
	index, err := retrieval.NewIndex("ns", embedder, vectorstore.NewMemoryStore(), retrieval.Splitter{Size: 40, Overlap: 10})
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	return index
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	if err := storage.NewSessionRepo(db).Create(context.Background(), &storage.SessionRecord{ID: testSession}); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	docs := storage.NewDocumentRepo(db)
	chunks := storage.NewChunkRepo(db)
	return &testEnv{
		pipeline: NewPipeline(docs, chunks),
		index:    newTestIndex(t),
		docs:     docs,
		chunks:   chunks,
	}
}

func TestPipeline_Ingest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	src := source.Source{
		Kind:     source.KindMarkdown,
		Filename: "cell_biology.md",
		Data:     []byte("# Cell Biology\n\nMitochondria are the powerhouse of the cell. They produce ATP through respiration."),
	}
	result, err := env.pipeline.Ingest(ctx, testSession, env.index, src)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.Duplicate {
		t.Error("first Ingest() reported a duplicate")
	}
	if result.Title != "Cell Biology" || result.Kind != source.KindMarkdown {
		t.Errorf("Ingest() = %+v", result)
	}
	if result.Chunks < 2 {
		t.Errorf("Chunks = %d, want several with size 40", result.Chunks)
	}

	stats := env.index.Stats()
	if stats.Documents != 1 || stats.Chunks != result.Chunks {
		t.Errorf("index stats = %+v, want 1 document and %d chunks", stats, result.Chunks)
	}

	record, err := env.docs.GetByID(ctx, testSession, result.DocumentID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if record.ChunkCount != result.Chunks || record.Hash == "" || record.Runes != result.Runes {
		t.Errorf("document record = %+v", record)
	}

	ids, err := env.chunks.ListIDsByDocument(ctx, result.DocumentID)
	if err != nil {
		t.Fatalf("ListIDsByDocument() error = %v", err)
	}
	indexed := env.index.Chunks(result.DocumentID)
	if len(ids) != len(indexed) {
		t.Fatalf("catalog has %d chunks, index has %d", len(ids), len(indexed))
	}
	for i := range ids {
		if ids[i] != indexed[i].ID {
			t.Errorf("chunk %d id = %s, want %s", i, ids[i], indexed[i].ID)
		}
	}
}

func TestPipeline_IngestDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	src := source.Source{Kind: source.KindPlainText, Filename: "a.txt", Data: []byte("Photosynthesis converts light into chemical energy.")}

	first, err := env.pipeline.Ingest(ctx, testSession, env.index, src)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	src.Filename = "copy.txt"
	second, err := env.pipeline.Ingest(ctx, testSession, env.index, src)
	if err != nil {
		t.Fatalf("Ingest() duplicate error = %v", err)
	}
	if !second.Duplicate || second.DocumentID != first.DocumentID || second.Filename != "a.txt" {
		t.Errorf("duplicate Ingest() = %+v, want existing document %s", second, first.DocumentID)
	}
	if got := env.index.Stats().Documents; got != 1 {
		t.Errorf("index documents = %d, want 1", got)
	}
}

func TestPipeline_IngestInvalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		src  source.Source
	}{
		{"empty", source.Source{Kind: source.KindPlainText, Filename: "e.txt"}},
		{"whitespace", source.Source{Kind: source.KindPlainText, Filename: "w.txt", Data: []byte(" \n\t ")}},
		{"unknown kind", source.Source{Kind: "docx", Filename: "x.docx", Data: []byte("text")}},
		{"invalid utf8", source.Source{Kind: source.KindPlainText, Filename: "b.txt", Data: []byte{0xff, 0xfe, 0xfd}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.pipeline.Ingest(ctx, testSession, env.index, tt.src)
			if !errors.Is(err, retrieval.ErrInvalidDocument) {
				t.Errorf("Ingest() error = %v, want ErrInvalidDocument", err)
			}
		})
	}
	if got := env.index.Stats().Chunks; got != 0 {
		t.Errorf("index chunks = %d, want 0", got)
	}
}

func TestPipeline_IngestRollsBackOnCatalogFailure(t *testing.T) {
	src := source.Source{Kind: source.KindPlainText, Filename: "a.txt", Data: []byte("Enzymes lower activation energy.")}

	t.Run("document insert fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		docs := storage_mocks.NewMockDocumentStore(ctrl)
		chunks := storage_mocks.NewMockChunkStore(ctrl)
		index := newTestIndex(t)

		docs.EXPECT().GetByHash(gomock.Any(), testSession, gomock.Any()).Return(nil, storage.ErrNotFound)
		docs.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		_, err := NewPipeline(docs, chunks).Ingest(context.Background(), testSession, index, src)
		if err == nil {
			t.Fatal("Ingest() expected error")
		}
		if got := index.Stats(); got.Documents != 0 || got.Chunks != 0 {
			t.Errorf("index stats after rollback = %+v, want empty", got)
		}
	})

	t.Run("chunk insert fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		docs := storage_mocks.NewMockDocumentStore(ctrl)
		chunks := storage_mocks.NewMockChunkStore(ctrl)
		index := newTestIndex(t)

		docs.EXPECT().GetByHash(gomock.Any(), testSession, gomock.Any()).Return(nil, storage.ErrNotFound)
		docs.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
		chunks.EXPECT().InsertBatch(gomock.Any(), gomock.Len(1)).Return(errors.New("constraint"))
		docs.EXPECT().Delete(gomock.Any(), testSession, gomock.Any()).Return(nil)

		_, err := NewPipeline(docs, chunks).Ingest(context.Background(), testSession, index, src)
		if err == nil {
			t.Fatal("Ingest() expected error")
		}
		if got := index.Stats().Chunks; got != 0 {
			t.Errorf("index chunks after rollback = %d, want 0", got)
		}
	})

	t.Run("hash lookup fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		docs := storage_mocks.NewMockDocumentStore(ctrl)
		index := newTestIndex(t)

		docs.EXPECT().GetByHash(gomock.Any(), testSession, gomock.Any()).Return(nil, errors.New("db closed"))

		if _, err := NewPipeline(docs, storage_mocks.NewMockChunkStore(ctrl)).Ingest(context.Background(), testSession, index, src); err == nil {
			t.Fatal("Ingest() expected error")
		}
	})
}

func TestPipeline_Remove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.pipeline.Ingest(ctx, testSession, env.index, source.Source{
		Kind: source.KindPlainText, Filename: "a.txt", Data: []byte("The Krebs cycle takes place in the mitochondrial matrix."),
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	removed, err := env.pipeline.Remove(ctx, testSession, env.index, result.DocumentID)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if removed != result.Chunks {
		t.Errorf("Remove() = %d, want %d", removed, result.Chunks)
	}
	if _, err := env.docs.GetByID(ctx, testSession, result.DocumentID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("document record still present: %v", err)
	}
	if ids, _ := env.chunks.ListIDsByDocument(ctx, result.DocumentID); len(ids) != 0 {
		t.Errorf("chunk records still present: %v", ids)
	}

	removed, err = env.pipeline.Remove(ctx, testSession, env.index, result.DocumentID)
	if err != nil || removed != 0 {
		t.Errorf("second Remove() = %d, %v; want 0, nil", removed, err)
	}
}

func TestPipeline_IngestDirectory(t *testing.T) {
	env := newTestEnv(t)
	root := t.TempDir()

	files := map[string]string{
		"biology/cells.md":   "# Cells\n\nCells are the basic unit of life.",
		"chemistry/acids.txt": "Acids donate protons in solution.",
		"copy/cells.md":      "# Cells\n\nCells are the basic unit of life.",
		"empty.txt":          "   ",
		"broken.pdf":         "this is not a pdf",
		"ignored.png":        "binary",
	}
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}

	report, err := env.pipeline.IngestDirectory(context.Background(), testSession, env.index, root)
	if err != nil {
		t.Fatalf("IngestDirectory() error = %v", err)
	}
	if report.Files != 5 {
		t.Errorf("Files = %d, want 5", report.Files)
	}
	if len(report.Ingested) != 2 {
		t.Errorf("Ingested = %d, want 2", len(report.Ingested))
	}
	if report.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", report.Duplicates)
	}
	if len(report.Failed) != 2 {
		t.Errorf("Failed = %+v, want broken.pdf and empty.txt", report.Failed)
	}
	for _, f := range report.Failed {
		if !errors.Is(f.Err, retrieval.ErrInvalidDocument) {
			t.Errorf("failure for %s = %v, want ErrInvalidDocument", f.RelPath, f.Err)
		}
	}
	if got := env.index.Stats().Documents; got != 2 {
		t.Errorf("index documents = %d, want 2", got)
	}
}

func TestPipeline_IngestDirectoryMissing(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.pipeline.IngestDirectory(context.Background(), testSession, env.index, filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Error("IngestDirectory() expected error for missing directory")
	}
}
