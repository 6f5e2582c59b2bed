//go:build cgo

package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brunobiangulo/goextract/store"
)

// keywordEmbedder maps text onto four topic axes.
type keywordEmbedder struct {
	err   error
	calls int
}

func (k *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	k.calls++
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		v := []float32{0.01, 0.01, 0.01, 0.01}
		for axis, words := range [][]string{
			{"pay", "invoice", "fee"},
			{"law", "court", "jurisdiction"},
			{"terminat", "notice"},
			{"confidential"},
		} {
			for _, w := range words {
				if strings.Contains(lower, w) {
					v[axis] += 1
				}
			}
		}
		out[i] = v
	}
	return out, nil
}

var contractChunks = []store.Chunk{
	{Content: "This Agreement is made between Acme Ltd and Globex plc.", ChunkType: "section", Heading: "AGREEMENT"},
	{Content: "4.1 The Customer shall pay each invoice within 30 days.", ChunkType: "clause", Heading: "4. Fees > 4.1", Clause: "4.1"},
	{Content: "9.1 Either party may terminate on 90 days written notice.", ChunkType: "clause", Heading: "9. Term > 9.1", Clause: "9.1"},
	{Content: "14.1 This Agreement is governed by the law of England.", ChunkType: "clause", Heading: "14. Law > 14.1", Clause: "14.1"},
	{Content: "14.2 The courts of London have exclusive jurisdiction.", ChunkType: "clause", Heading: "14. Law > 14.2", Clause: "14.2"},
}

func seedDocument(t *testing.T, s *store.Store, path string, emb Embedder) int64 {
	t.Helper()
	ctx := context.Background()
	docID, err := s.UpsertDocument(ctx, store.Document{Path: path, Filename: filepath.Base(path), Format: "txt", ContentHash: path})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	chunks := make([]store.Chunk, len(contractChunks))
	for i, c := range contractChunks {
		c.DocumentID = docID
		c.PositionInDoc = i
		chunks[i] = c
	}
	ids, err := s.InsertChunks(ctx, chunks)
	if err != nil {
		t.Fatalf("insert chunks: %v", err)
	}
	if emb == nil {
		return docID
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := emb.Embed(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	for i, id := range ids {
		if err := s.InsertEmbedding(ctx, id, docID, vecs[i]); err != nil {
			t.Fatalf("insert embedding: %v", err)
		}
	}
	return docID
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "retrieval.db"), 4)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const governingLawQuery = "Find sections containing information about Governing Law. Key phrases: governing law, jurisdiction. Return relevant sections with context."

func TestDocumentRetrieverHybrid(t *testing.T) {
	s := newTestStore(t)
	emb := &keywordEmbedder{}
	docID := seedDocument(t, s, "/contracts/a.txt", emb)
	otherID := seedDocument(t, s, "/contracts/b.txt", emb)

	r := New(s, emb, Config{}).ForDocument(docID)
	if r.DocumentID() != docID {
		t.Fatalf("DocumentID = %d", r.DocumentID())
	}
	got, err := r.GetContext(context.Background(), governingLawQuery, 2)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	want := "[14. Law > 14.1]\n14.1 This Agreement is governed by the law of England.\n\n" +
		"[14. Law > 14.2]\n14.2 The courts of London have exclusive jurisdiction."
	if got != want {
		t.Errorf("context =\n%s\nwant\n%s", got, want)
	}

	results, trace, err := New(s, emb, Config{}).Search(context.Background(), otherID, governingLawQuery, SearchOptions{MaxResults: 10})
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range results {
		if res.DocumentID != otherID {
			t.Errorf("result from document %d leaked into search of %d", res.DocumentID, otherID)
		}
	}
	if trace.VectorSkipped || trace.VecResults == 0 || trace.FTSResults == 0 {
		t.Errorf("trace = %+v", trace)
	}
}

func TestDocumentRetrieverFTSOnly(t *testing.T) {
	s := newTestStore(t)
	docID := seedDocument(t, s, "/contracts/a.txt", nil)

	e := New(s, nil, Config{})
	got, err := e.ForDocument(docID).GetContext(context.Background(),
		"Find sections containing information about Payment Terms. Key phrases: invoice. Return relevant sections with context.", 0)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if !strings.HasPrefix(got, "[4. Fees > 4.1]\n4.1 The Customer shall pay") {
		t.Errorf("context = %q", got)
	}

	_, trace, err := e.Search(context.Background(), docID, "invoice", SearchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !trace.VectorSkipped || trace.VecResults != 0 {
		t.Errorf("trace = %+v", trace)
	}
}

func TestDocumentRetrieverNoMatch(t *testing.T) {
	s := newTestStore(t)
	docID := seedDocument(t, s, "/contracts/a.txt", nil)

	got, err := New(s, nil, Config{}).ForDocument(docID).GetContext(context.Background(), "Find the relevant sections", 2)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if got != "" {
		t.Errorf("context = %q, want empty", got)
	}
}

func TestSearchEmbedderFailureFallsBackToFTS(t *testing.T) {
	s := newTestStore(t)
	docID := seedDocument(t, s, "/contracts/a.txt", nil)
	emb := &keywordEmbedder{err: errors.New("embedding endpoint down")}

	results, _, err := New(s, emb, Config{}).Search(context.Background(), docID, "terminate notice", SearchOptions{MaxResults: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Clause != "9.1" {
		t.Errorf("results = %+v", results)
	}

	_, _, err = New(s, emb, Config{}).Search(context.Background(), docID, "the and", SearchOptions{})
	if err == nil {
		t.Error("expected the embedder error when FTS has nothing to search")
	}
}
