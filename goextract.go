// Package goextract ingests contracts and extracts a catalog of fields from
// them with a language model.
package goextract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/goextract/analysis"
	"github.com/brunobiangulo/goextract/chunker"
	"github.com/brunobiangulo/goextract/extraction"
	"github.com/brunobiangulo/goextract/llm"
	"github.com/brunobiangulo/goextract/parser"
	"github.com/brunobiangulo/goextract/prompt"
	"github.com/brunobiangulo/goextract/retrieval"
	"github.com/brunobiangulo/goextract/schema"
	"github.com/brunobiangulo/goextract/store"
)

// Engine is the main entry point for contract ingestion and extraction.
type Engine interface {
	// Ingest parses, chunks, indexes and embeds a document.
	// Returns document ID. Skips if content hash unchanged.
	Ingest(ctx context.Context, path string, opts ...IngestOption) (int64, error)

	// Extract runs the field catalog over an ingested document, using its
	// full text and per-document retrieval.
	Extract(ctx context.Context, documentID int64, opts ...ExtractOption) (*extraction.Run, error)

	// ExtractText runs the field catalog over raw contract text.
	ExtractText(ctx context.Context, content string, opts ...ExtractOption) (*extraction.Run, error)

	// Analyze runs one free-form analysis over an ingested document. query
	// is the question for analysis.Custom and ignored otherwise.
	Analyze(ctx context.Context, documentID int64, t analysis.Type, query string, opts ...ExtractOption) (*analysis.Result, error)

	// AnalyzeText runs one free-form analysis over raw contract text.
	AnalyzeText(ctx context.Context, content string, t analysis.Type, query string, opts ...ExtractOption) (*analysis.Result, error)

	// Document returns one document including its extracted text.
	Document(ctx context.Context, documentID int64) (*Document, error)

	// Delete removes a document and all associated data.
	Delete(ctx context.Context, documentID int64) error

	// ListDocuments returns all ingested documents.
	ListDocuments(ctx context.Context) ([]Document, error)

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// Document represents an ingested document.
type Document struct {
	ID          int64             `json:"id"`
	Path        string            `json:"path"`
	Filename    string            `json:"filename"`
	Format      string            `json:"format"`
	ContentHash string            `json:"content_hash"`
	Status      string            `json:"status"`
	Content     string            `json:"content,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

// IngestOption configures ingestion behavior.
type IngestOption func(*ingestOptions)

type ingestOptions struct {
	forceReparse bool
	metadata     map[string]string
}

// WithForceReparse forces re-parsing even if the hash hasn't changed.
func WithForceReparse() IngestOption {
	return func(o *ingestOptions) { o.forceReparse = true }
}

// WithMetadata attaches custom metadata to the ingested document.
func WithMetadata(metadata map[string]string) IngestOption {
	return func(o *ingestOptions) { o.metadata = metadata }
}

// ExtractOption configures a single extraction run.
type ExtractOption func(*extractOptions)

type extractOptions struct {
	variant       prompt.Variant
	schema        *schema.Schema
	concurrency   int
	failurePolicy extraction.FailurePolicy
	numResults    int
	agent         extraction.Agent
	retriever     extraction.Retriever
}

// WithVariant selects the prompt variant.
func WithVariant(v prompt.Variant) ExtractOption {
	return func(o *extractOptions) { o.variant = v }
}

// WithSchema replaces the configured field catalog for this run.
func WithSchema(s *schema.Schema) ExtractOption {
	return func(o *extractOptions) { o.schema = s }
}

// WithConcurrency sets how many fields are processed at once.
func WithConcurrency(n int) ExtractOption {
	return func(o *extractOptions) { o.concurrency = n }
}

// WithFailurePolicy sets what a failing field does to the run.
func WithFailurePolicy(p extraction.FailurePolicy) ExtractOption {
	return func(o *extractOptions) { o.failurePolicy = p }
}

// WithNumResults sets how many chunks retrieval returns per field.
func WithNumResults(n int) ExtractOption {
	return func(o *extractOptions) { o.numResults = n }
}

// WithAgent replaces the configured chat model for this run.
func WithAgent(a extraction.Agent) ExtractOption {
	return func(o *extractOptions) { o.agent = a }
}

// WithRetriever supplies a retriever to ExtractText. Extract always uses the
// document's own retriever.
func WithRetriever(r extraction.Retriever) ExtractOption {
	return func(o *extractOptions) { o.retriever = r }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg       Config
	store     *store.Store
	schema    *schema.Schema
	variant   prompt.Variant
	policy    extraction.FailurePolicy
	agent     extraction.Agent
	embedLLM  llm.Provider
	parsers   *parser.Registry
	chunkr    *chunker.Chunker
	retriever *retrieval.Engine
}

// New creates a new goextract engine with the given configuration.
func New(cfg Config) (Engine, error) {
	variant, err := prompt.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	policy, err := extraction.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	fields, err := cfg.loadSchema()
	if err != nil {
		return nil, err
	}

	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 768
	}

	var agent extraction.Agent
	if cfg.Chat.Provider != "" {
		chatLLM, err := llm.NewProvider(cfg.Chat.provider())
		if err != nil {
			return nil, fmt.Errorf("creating chat provider: %w", err)
		}
		agent = newChatAgent(chatLLM, cfg.Chat.Model, cfg.Temperature)
	}

	var embedLLM llm.Provider
	if cfg.Embedding.Provider != "" {
		embedLLM, err = llm.NewProvider(cfg.Embedding.provider())
		if err != nil {
			return nil, fmt.Errorf("creating embedding provider: %w", err)
		}
	}

	s, err := store.New(cfg.resolveDBPath(), cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	var embedder retrieval.Embedder
	if embedLLM != nil {
		embedder = embedLLM
	}

	return &engine{
		cfg:      cfg,
		store:    s,
		schema:   fields,
		variant:  variant,
		policy:   policy,
		agent:    agent,
		embedLLM: embedLLM,
		parsers:  parser.NewRegistry(),
		chunkr: chunker.New(chunker.Config{
			MaxTokens: cfg.MaxChunkTokens,
			Overlap:   cfg.ChunkOverlap,
		}),
		retriever: retrieval.New(s, embedder, retrieval.Config{
			WeightVector: cfg.WeightVector,
			WeightFTS:    cfg.WeightFTS,
		}),
	}, nil
}

// Ingest processes a document through the full pipeline.
func (e *engine) Ingest(ctx context.Context, path string, opts ...IngestOption) (int64, error) {
	options := &ingestOptions{}
	for _, o := range opts {
		o(options)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}

	format := parser.FormatOf(absPath)
	p, err := e.parsers.Get(format)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	hash, err := fileHash(absPath)
	if err != nil {
		return 0, fmt.Errorf("hashing file: %w", err)
	}

	// Unchanged and fully ingested: nothing to do.
	if !options.forceReparse {
		existing, err := e.store.GetDocumentByPath(ctx, absPath)
		if err == nil && existing.ContentHash == hash && existing.Status == store.StatusReady {
			slog.Debug("ingest: document unchanged", "file", existing.Filename, "doc_id", existing.ID)
			return existing.ID, nil
		}
	}

	var metadataJSON string
	if options.metadata != nil {
		data, _ := json.Marshal(options.metadata)
		metadataJSON = string(data)
	}

	filename := filepath.Base(absPath)
	doc := store.Document{
		Path:        absPath,
		Filename:    filename,
		Format:      format,
		ContentHash: hash,
		Status:      store.StatusPending,
		Metadata:    metadataJSON,
	}
	docID, err := e.store.UpsertDocument(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("upserting document: %w", err)
	}

	slog.Info("ingest: parsing document", "file", filename, "format", format, "doc_id", docID)
	parseStart := time.Now()

	parsed, err := p.Parse(ctx, absPath)
	if err != nil {
		e.markFailed(docID)
		if errors.Is(err, parser.ErrUnsupportedFormat) {
			return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return 0, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	doc.Content = parsed.Text()
	if strings.TrimSpace(doc.Content) == "" {
		e.markFailed(docID)
		return 0, fmt.Errorf("%w: %s", ErrNoContent, filename)
	}
	if _, err := e.store.UpsertDocument(ctx, doc); err != nil {
		e.markFailed(docID)
		return 0, fmt.Errorf("storing document text: %w", err)
	}

	slog.Info("ingest: parsing complete",
		"file", filename, "sections", len(parsed.Sections), "chars", len(doc.Content),
		"elapsed", time.Since(parseStart).Round(time.Millisecond))

	chunks := e.chunkr.Chunk(parsed.Sections)
	slog.Info("ingest: chunking complete", "file", filename, "chunks", len(chunks))

	// Re-ingest replaces chunks and embeddings wholesale.
	if err := e.store.DeleteDocumentData(ctx, docID); err != nil {
		e.markFailed(docID)
		return 0, fmt.Errorf("cleaning old data: %w", err)
	}
	for i := range chunks {
		chunks[i].DocumentID = docID
	}
	chunkIDs, err := e.store.InsertChunks(ctx, chunks)
	if err != nil {
		e.markFailed(docID)
		return 0, fmt.Errorf("inserting chunks: %w", err)
	}

	if e.embedLLM != nil && len(chunks) > 0 {
		embedStart := time.Now()
		if err := e.embedChunks(ctx, docID, chunks, chunkIDs); err != nil {
			e.markFailed(docID)
			return 0, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
		slog.Info("ingest: embeddings complete",
			"file", filename, "chunks", len(chunks),
			"elapsed", time.Since(embedStart).Round(time.Millisecond))
	}

	if err := e.store.UpdateDocumentStatus(ctx, docID, store.StatusReady); err != nil {
		return 0, err
	}
	slog.Info("ingest: document ready",
		"file", filename, "doc_id", docID,
		"total_elapsed", time.Since(parseStart).Round(time.Millisecond))
	return docID, nil
}

// markFailed records a failed ingestion. It runs on a fresh context so a
// cancelled ingest still leaves the row in a terminal state.
func (e *engine) markFailed(docID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.UpdateDocumentStatus(ctx, docID, store.StatusFailed); err != nil {
		slog.Warn("ingest: marking document failed", "doc_id", docID, "error", err)
	}
}

// readyDocument loads a document that has finished ingestion.
func (e *engine) readyDocument(ctx context.Context, documentID int64) (*store.Document, error) {
	doc, err := e.store.GetDocument(ctx, documentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrDocumentNotFound, documentID)
	}
	if err != nil {
		return nil, err
	}
	if doc.Status != store.StatusReady {
		return nil, fmt.Errorf("%w: document %d is %s", ErrDocumentNotReady, documentID, doc.Status)
	}
	return doc, nil
}

// Extract runs the field catalog over an ingested document.
func (e *engine) Extract(ctx context.Context, documentID int64, opts ...ExtractOption) (*extraction.Run, error) {
	doc, err := e.readyDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	options := e.extractOptions(opts)
	options.retriever = e.retriever.ForDocument(documentID)
	slog.Info("extract: document", "doc_id", documentID, "file", doc.Filename)
	return e.run(ctx, doc.Content, options)
}

// ExtractText runs the field catalog over raw contract text. Without a
// retriever every field sees the full text.
func (e *engine) ExtractText(ctx context.Context, content string, opts ...ExtractOption) (*extraction.Run, error) {
	options := e.extractOptions(opts)
	if strings.TrimSpace(content) == "" && options.retriever == nil {
		return nil, ErrNoContent
	}
	return e.run(ctx, content, options)
}

func (e *engine) extractOptions(opts []ExtractOption) *extractOptions {
	options := &extractOptions{
		variant:       e.variant,
		concurrency:   e.cfg.Concurrency,
		failurePolicy: e.policy,
		numResults:    e.cfg.NumResults,
		agent:         e.agent,
	}
	for _, o := range opts {
		o(options)
	}
	if options.schema == nil {
		options.schema = e.schema
		// The bare variant asks for names alone.
		if options.variant == prompt.Bare && e.cfg.SchemaPath == "" {
			options.schema = schema.Unguided()
		}
	}
	return options
}

func (e *engine) run(ctx context.Context, content string, options *extractOptions) (*extraction.Run, error) {
	orch := extraction.New(options.schema, extraction.Config{
		Variant: options.variant,
		Resolver: extraction.ResolverConfig{
			NumResults:         options.numResults,
			MetadataPrefix:     e.cfg.MetadataPrefix,
			RetrievalThreshold: e.cfg.RetrievalThreshold,
		},
		Concurrency:   options.concurrency,
		FailurePolicy: options.failurePolicy,
	})

	// A nil *DocumentRetriever must not become a non-nil interface.
	var retriever extraction.Retriever
	if options.retriever != nil {
		retriever = options.retriever
	}
	return orch.Run(ctx, content, retriever, options.agent)
}

// Analyze runs a free-form analysis over an ingested document.
func (e *engine) Analyze(ctx context.Context, documentID int64, t analysis.Type, query string, opts ...ExtractOption) (*analysis.Result, error) {
	doc, err := e.readyDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	options := e.analyzeOptions(opts)
	options.retriever = e.retriever.ForDocument(documentID)
	slog.Info("analyze: document", "doc_id", documentID, "file", doc.Filename, "type", t)
	return e.analyze(ctx, doc.Content, t, query, options)
}

// AnalyzeText runs a free-form analysis over raw contract text.
func (e *engine) AnalyzeText(ctx context.Context, content string, t analysis.Type, query string, opts ...ExtractOption) (*analysis.Result, error) {
	options := e.analyzeOptions(opts)
	if strings.TrimSpace(content) == "" && options.retriever == nil {
		return nil, ErrNoContent
	}
	return e.analyze(ctx, content, t, query, options)
}

// analyzeOptions leaves numResults at zero unless set, so analyses read
// analysis.DefaultNumResults chunks rather than the per-field count.
func (e *engine) analyzeOptions(opts []ExtractOption) *extractOptions {
	options := &extractOptions{agent: e.agent}
	for _, o := range opts {
		o(options)
	}
	return options
}

func (e *engine) analyze(ctx context.Context, content string, t analysis.Type, query string, options *extractOptions) (*analysis.Result, error) {
	a := analysis.New(analysis.Config{
		NumResults:         options.numResults,
		RetrievalThreshold: e.cfg.RetrievalThreshold,
	})
	var retriever extraction.Retriever
	if options.retriever != nil {
		retriever = options.retriever
	}
	res, err := a.Analyze(ctx, analysis.Request{Type: t, Query: query, Content: content, Retriever: retriever}, options.agent)
	if errors.Is(err, analysis.ErrNoContext) {
		return nil, fmt.Errorf("%w: %w", ErrNoContent, err)
	}
	return res, err
}

// Document returns one document including its text.
func (e *engine) Document(ctx context.Context, documentID int64) (*Document, error) {
	d, err := e.store.GetDocument(ctx, documentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrDocumentNotFound, documentID)
	}
	if err != nil {
		return nil, err
	}
	doc := toDocument(*d)
	doc.Content = d.Content
	return &doc, nil
}

// Delete removes a document and all its associated data.
func (e *engine) Delete(ctx context.Context, documentID int64) error {
	err := e.store.DeleteDocument(ctx, documentID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrDocumentNotFound, documentID)
	}
	return err
}

// ListDocuments returns all ingested documents, newest first.
func (e *engine) ListDocuments(ctx context.Context) ([]Document, error) {
	docs, err := e.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]Document, len(docs))
	for i, d := range docs {
		result[i] = toDocument(d)
	}
	return result, nil
}

func toDocument(d store.Document) Document {
	doc := Document{
		ID:          d.ID,
		Path:        d.Path,
		Filename:    d.Filename,
		Format:      d.Format,
		ContentHash: d.ContentHash,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.Metadata != "" {
		_ = json.Unmarshal([]byte(d.Metadata), &doc.Metadata)
	}
	return doc
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine.
func (e *engine) Close() error {
	return e.store.Close()
}

// maxEmbedChars is the maximum character length for a single text sent to the
// embedding model.
const maxEmbedChars = 24000

// truncateForEmbed truncates text to maxEmbedChars on a word boundary.
func truncateForEmbed(text string) string {
	if len(text) <= maxEmbedChars {
		return text
	}
	cut := strings.LastIndex(text[:maxEmbedChars], " ")
	if cut <= 0 {
		cut = maxEmbedChars
	}
	return text[:cut]
}

const (
	embedBatchSize   = 32
	embedConcurrency = 4
)

// embedChunks generates embeddings for chunks in concurrent batches.
// A failed batch falls back to embedding its texts one by one so a single
// oversized text does not lose the whole batch.
func (e *engine) embedChunks(ctx context.Context, docID int64, chunks []store.Chunk, chunkIDs []int64) error {
	var failed atomic.Int64

	store1 := func(ctx context.Context, idx int, emb []float32) {
		if len(emb) == 0 {
			failed.Add(1)
			return
		}
		if err := e.store.InsertEmbedding(ctx, chunkIDs[idx], docID, emb); err != nil {
			slog.Warn("ingest: storing embedding failed", "chunk_id", chunkIDs[idx], "error", err)
			failed.Add(1)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, end-start)
			for j := start; j < end; j++ {
				prefix := ""
				if chunks[j].Heading != "" {
					prefix = chunks[j].Heading + ": "
				}
				texts[j-start] = truncateForEmbed(prefix + chunks[j].Content)
			}

			embeddings, err := e.embedLLM.Embed(gctx, texts)
			if err == nil && len(embeddings) == len(texts) {
				for j, emb := range embeddings {
					store1(gctx, start+j, emb)
				}
				return nil
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			slog.Warn("ingest: embedding batch failed, falling back to individual",
				"batch_start", start, "batch_end", end, "error", err)
			for j, text := range texts {
				single, serr := e.embedLLM.Embed(gctx, []string{text})
				if serr != nil || len(single) == 0 {
					slog.Warn("ingest: embedding single text failed", "chunk_id", chunkIDs[start+j], "error", serr)
					failed.Add(1)
					continue
				}
				store1(gctx, start+j, single[0])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if n := int(failed.Load()); n == len(chunks) {
		return fmt.Errorf("all %d chunks failed embedding", n)
	} else if n > 0 {
		slog.Warn("ingest: some embeddings failed", "failed", n, "total", len(chunks))
	}
	return nil
}

// fileHash computes the SHA-256 hash of a file's content.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
