// Package retrieval finds the chunks of one contract that answer a field
// query, fusing vector and full-text search.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/brunobiangulo/goextract/store"
)

// ---------------------------------------------------------------------------
// Identifier detection for query routing.
// When a query names a clause, an amount or a quoted defined term we boost
// FTS weight and reduce vector weight so that exact-match retrieval is
// preferred over semantic similarity.
// ---------------------------------------------------------------------------
var identifierPatterns = []*regexp.Regexp{
	// Clause references: clause 12.1, Section 4, Schedule 2
	regexp.MustCompile(`(?i)\b(?:clause|section|article|schedule|annex|appendix)\s+\d+(?:\.\d+)*\b`),
	// Bare clause numbers: 12.1, 3.4.2
	regexp.MustCompile(`\b\d+\.\d+(?:\.\d+)*\b`),
	// Amounts: $5,000, EUR 10000, £250
	regexp.MustCompile(`(?:[$€£]|\b(?:USD|EUR|GBP|CHF)\b)\s?\d`),
	// Quoted defined terms: "Effective Date"
	regexp.MustCompile(`["\x{201c}][A-Z][^"\x{201d}]{2,}["\x{201d}]`),
}

// detectIdentifiers returns true if the query contains at least one
// structured identifier.
func detectIdentifiers(query string) bool {
	for _, p := range identifierPatterns {
		if p.MatchString(query) {
			return true
		}
	}
	return false
}

// DefaultNumResults is the number of chunks a DocumentRetriever returns when
// the caller asks for none.
const DefaultNumResults = 2

// Embedder turns texts into vectors. llm.Provider satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds retrieval engine configuration.
type Config struct {
	WeightVector float64
	WeightFTS    float64
	// CandidatePool is how many results each method contributes to fusion.
	CandidatePool int
}

// SearchOptions configures a single search operation.
type SearchOptions struct {
	MaxResults int
	WeightVec  float64
	WeightFTS  float64
}

// SearchTrace records the breakdown of a hybrid search operation.
type SearchTrace struct {
	DocumentID          int64                     `json:"document_id"`
	VecResults          int                       `json:"vec_results"`
	FTSResults          int                       `json:"fts_results"`
	FusedResults        int                       `json:"fused_results"`
	VecWeight           float64                   `json:"vec_weight"`
	FTSWeight           float64                   `json:"fts_weight"`
	IdentifiersDetected bool                      `json:"identifiers_detected"`
	VectorSkipped       bool                      `json:"vector_skipped"`
	MaxRequested        int                       `json:"max_requested"`
	FTSQuery            string                    `json:"fts_query"`
	ElapsedMs           int64                     `json:"elapsed_ms"`
	PerResult           map[int64]FusedResultInfo `json:"per_result,omitempty"`
}

// Engine performs hybrid retrieval over the chunks of one document at a
// time, combining vector search and FTS5.
type Engine struct {
	store    *store.Store
	embedder Embedder
	cfg      Config
}

// New creates a retrieval engine. embedder may be nil, in which case only
// full-text search runs.
func New(s *store.Store, embedder Embedder, cfg Config) *Engine {
	if cfg.WeightVector <= 0 {
		cfg.WeightVector = 1.0
	}
	if cfg.WeightFTS <= 0 {
		cfg.WeightFTS = 1.0
	}
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = 20
	}
	return &Engine{store: s, embedder: embedder, cfg: cfg}
}

// Search performs hybrid retrieval within documentID using RRF to fuse the
// vector and FTS5 result lists. Results are best first.
func (e *Engine) Search(ctx context.Context, documentID int64, query string, opts SearchOptions) ([]store.SearchResult, *SearchTrace, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 20
	}
	if opts.WeightVec == 0 {
		opts.WeightVec = e.cfg.WeightVector
	}
	if opts.WeightFTS == 0 {
		opts.WeightFTS = e.cfg.WeightFTS
	}
	pool := max(e.cfg.CandidatePool, opts.MaxResults)

	trace := &SearchTrace{
		DocumentID:   documentID,
		MaxRequested: opts.MaxResults,
	}

	if detectIdentifiers(query) {
		slog.Debug("retrieval: identifiers detected in query, boosting FTS weight",
			"query", query,
			"original_fts", opts.WeightFTS,
			"original_vec", opts.WeightVec)
		opts.WeightFTS *= 2.0
		opts.WeightVec *= 0.5
		trace.IdentifiersDetected = true
	}
	trace.VecWeight = opts.WeightVec
	trace.FTSWeight = opts.WeightFTS

	ftsQuery := sanitizeFTSQuery(query)
	trace.FTSQuery = ftsQuery
	trace.VectorSkipped = e.embedder == nil

	searchStart := time.Now()

	type result struct {
		results []store.SearchResult
		err     error
	}
	vecCh := make(chan result, 1)
	ftsCh := make(chan result, 1)

	go func() {
		if e.embedder == nil {
			vecCh <- result{}
			return
		}
		r, err := e.vectorSearch(ctx, documentID, query, pool)
		vecCh <- result{r, err}
	}()
	go func() {
		if ftsQuery == "" {
			ftsCh <- result{}
			return
		}
		r, err := e.store.FTSSearch(ctx, documentID, ftsQuery, pool)
		ftsCh <- result{r, err}
	}()

	vecRes := <-vecCh
	ftsRes := <-ftsCh

	if vecRes.err != nil {
		slog.Warn("retrieval: vector search failed", "document_id", documentID, "error", vecRes.err)
	}
	if ftsRes.err != nil {
		slog.Warn("retrieval: fts search failed", "document_id", documentID, "error", ftsRes.err)
	}
	trace.VecResults = len(vecRes.results)
	trace.FTSResults = len(ftsRes.results)

	fused, infoMap := fuseRRF(vecRes.results, ftsRes.results, opts.WeightVec, opts.WeightFTS, opts.MaxResults)
	trace.FusedResults = len(fused)
	trace.PerResult = infoMap
	trace.ElapsedMs = time.Since(searchStart).Milliseconds()

	slog.Debug("retrieval: search complete",
		"document_id", documentID,
		"vec_results", trace.VecResults, "fts_results", trace.FTSResults,
		"fused", trace.FusedResults,
		"elapsed", time.Since(searchStart).Round(time.Millisecond))

	if len(fused) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, trace, err
		}
		// If every method failed, surface the first error.
		if vecRes.err != nil && (ftsRes.err != nil || ftsQuery == "") {
			return nil, trace, fmt.Errorf("vector search: %w", vecRes.err)
		}
		if ftsRes.err != nil && (vecRes.err != nil || e.embedder == nil) {
			return nil, trace, fmt.Errorf("fts search: %w", ftsRes.err)
		}
	}
	return fused, trace, nil
}

// vectorSearch embeds the query and searches the document's vectors.
func (e *Engine) vectorSearch(ctx context.Context, documentID int64, query string, k int) ([]store.SearchResult, error) {
	embeddings, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return e.store.VectorSearch(ctx, documentID, embeddings[0], k)
}

// ForDocument returns a retriever scoped to one document.
func (e *Engine) ForDocument(documentID int64) *DocumentRetriever {
	return &DocumentRetriever{engine: e, documentID: documentID}
}

// DocumentRetriever serves context for one document. It satisfies
// extraction.Retriever.
type DocumentRetriever struct {
	engine     *Engine
	documentID int64
}

// DocumentID returns the document the retriever is scoped to.
func (r *DocumentRetriever) DocumentID() int64 { return r.documentID }

// GetContext returns the numResults best chunks for query, rendered in
// document order with their clause headings. An empty string means nothing
// matched.
func (r *DocumentRetriever) GetContext(ctx context.Context, query string, numResults int) (string, error) {
	if numResults <= 0 {
		numResults = DefaultNumResults
	}
	results, _, err := r.engine.Search(ctx, r.documentID, query, SearchOptions{MaxResults: numResults})
	if err != nil {
		return "", err
	}
	return formatContext(results), nil
}

// formatContext renders results in document order, each chunk prefixed with
// its heading in brackets and separated by a blank line.
func formatContext(results []store.SearchResult) string {
	ordered := make([]store.SearchResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PositionInDoc < ordered[j].PositionInDoc
	})

	var b strings.Builder
	for _, r := range ordered {
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if r.Heading != "" {
			b.WriteString("[" + r.Heading + "]\n")
		}
		b.WriteString(content)
	}
	return b.String()
}
