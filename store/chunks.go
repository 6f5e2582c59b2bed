package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

// Chunk represents a row in the chunks table.
type Chunk struct {
	ID            int64  `json:"id"`
	DocumentID    int64  `json:"document_id"`
	Content       string `json:"content"`
	ChunkType     string `json:"chunk_type"`
	Heading       string `json:"heading"`
	Clause        string `json:"clause,omitempty"`
	PageNumber    int    `json:"page_number"`
	PositionInDoc int    `json:"position_in_doc"`
	TokenCount    int    `json:"token_count"`
	ContentHash   string `json:"content_hash"`
}

// SearchResult holds a chunk with its retrieval score.
type SearchResult struct {
	ChunkID       int64   `json:"chunk_id"`
	DocumentID    int64   `json:"document_id"`
	Content       string  `json:"content"`
	Heading       string  `json:"heading"`
	Clause        string  `json:"clause,omitempty"`
	PositionInDoc int     `json:"position_in_doc"`
	Score         float64 `json:"score"`
}

// InsertChunks inserts a batch of chunks and returns their IDs.
func (s *Store) InsertChunks(ctx context.Context, chunks []Chunk) ([]int64, error) {
	ids := make([]int64, len(chunks))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (document_id, content, chunk_type, heading, clause,
				page_number, position_in_doc, token_count, content_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, c := range chunks {
			hash := sha256.Sum256([]byte(c.Content))
			res, err := stmt.ExecContext(ctx,
				c.DocumentID, c.Content, c.ChunkType, c.Heading, nullIfEmpty(c.Clause),
				c.PageNumber, c.PositionInDoc, c.TokenCount, hex.EncodeToString(hash[:]))
			if err != nil {
				return fmt.Errorf("inserting chunk %d: %w", i, err)
			}
			if ids[i], err = res.LastInsertId(); err != nil {
				return err
			}
		}
		return nil
	})
	return ids, err
}

// GetChunksByDocument returns all chunks for a document in document order.
func (s *Store) GetChunksByDocument(ctx context.Context, docID int64) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, chunk_type, COALESCE(heading, ''), COALESCE(clause, ''),
			page_number, position_in_doc, token_count, content_hash
		FROM chunks WHERE document_id = ? ORDER BY position_in_doc
	`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.ChunkType, &c.Heading, &c.Clause,
			&c.PageNumber, &c.PositionInDoc, &c.TokenCount, &c.ContentHash); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// --- Embedding operations ---

// InsertEmbedding stores a vector embedding for a chunk of docID.
func (s *Store) InsertEmbedding(ctx context.Context, chunkID, docID int64, embedding []float32) error {
	if len(embedding) != s.embeddingDim {
		return fmt.Errorf("embedding has %d dimensions, store expects %d", len(embedding), s.embeddingDim)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_chunks (chunk_id, document_id, embedding) VALUES (?, ?, ?)",
		chunkID, docID, serializeFloat32(embedding))
	return err
}

// ChunkHasEmbedding checks if a specific chunk has a vector embedding.
func (s *Store) ChunkHasEmbedding(ctx context.Context, chunkID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vec_chunks WHERE chunk_id = ?", chunkID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// --- Search ---

// VectorSearch returns the k chunks of docID nearest to queryEmbedding.
func (s *Store) VectorSearch(ctx context.Context, docID int64, queryEmbedding []float32, k int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, v.distance,
			c.content, COALESCE(c.heading, ''), COALESCE(c.clause, ''), c.position_in_doc, c.document_id
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		WHERE v.embedding MATCH ? AND k = ? AND v.document_id = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var distance float64
		if err := rows.Scan(&r.ChunkID, &distance,
			&r.Content, &r.Heading, &r.Clause, &r.PositionInDoc, &r.DocumentID); err != nil {
			return nil, err
		}
		// cosine distance to similarity
		r.Score = 1.0 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

// FTSSearch runs an FTS5 MATCH query over the chunks of docID, best first.
func (s *Store) FTSSearch(ctx context.Context, docID int64, query string, limit int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.rowid, f.rank,
			c.content, COALESCE(c.heading, ''), COALESCE(c.clause, ''), c.position_in_doc, c.document_id
		FROM chunks_fts f
		JOIN chunks c ON c.id = f.rowid
		WHERE chunks_fts MATCH ? AND c.document_id = ?
		ORDER BY f.rank
		LIMIT ?
	`, query, docID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var rank float64
		if err := rows.Scan(&r.ChunkID, &rank,
			&r.Content, &r.Heading, &r.Clause, &r.PositionInDoc, &r.DocumentID); err != nil {
			return nil, err
		}
		// FTS5 rank is negative (lower = better)
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
