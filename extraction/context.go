package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/brunobiangulo/goextract/prompt"
	"github.com/brunobiangulo/goextract/schema"
)

// Resolver defaults.
const (
	DefaultNumResults         = 2
	DefaultMetadataPrefix     = 3000
	DefaultRetrievalThreshold = 20000
)

// Source says where a Context's text came from.
type Source string

const (
	SourceFull      Source = "full"
	SourcePrefix    Source = "prefix"
	SourceRetrieval Source = "retrieval"
	SourceFallback  Source = "fallback"
)

// Context is the text handed to the agent for one field.
type Context struct {
	Text   string
	Source Source
	Query  string
}

// ResolverConfig tunes the context policy. Zero values take the defaults;
// a negative RetrievalThreshold disables the length gate.
type ResolverConfig struct {
	NumResults         int
	MetadataPrefix     int
	RetrievalThreshold int
}

// Resolver decides, per field, whether the agent sees the full document, its
// head, or a retrieval-narrowed excerpt.
type Resolver struct {
	retriever Retriever
	cfg       ResolverConfig
}

// NewResolver returns a resolver. retriever may be nil.
func NewResolver(retriever Retriever, cfg ResolverConfig) *Resolver {
	if cfg.NumResults <= 0 {
		cfg.NumResults = DefaultNumResults
	}
	if cfg.MetadataPrefix <= 0 {
		cfg.MetadataPrefix = DefaultMetadataPrefix
	}
	if cfg.RetrievalThreshold == 0 {
		cfg.RetrievalThreshold = DefaultRetrievalThreshold
	}
	return &Resolver{retriever: retriever, cfg: cfg}
}

// Resolve produces the context for f over document. An empty document means
// retrieval-only mode: every field is looked up through the retriever.
// Retriever errors are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, f schema.Field, document string) (Context, error) {
	if document == "" && r.retriever != nil {
		query := prompt.Query(f)
		text, err := r.retriever.GetContext(ctx, query, r.cfg.NumResults)
		if err != nil {
			return Context{}, err
		}
		return Context{Text: text, Source: SourceRetrieval, Query: query}, nil
	}

	if f.IsMetadata() {
		return Context{Text: headRunes(document, r.cfg.MetadataPrefix), Source: SourcePrefix}, nil
	}

	query, guided := prompt.RetrievalQuery(f)
	if r.retriever == nil || !guided || !r.longEnough(document) {
		return Context{Text: document, Source: SourceFull}, nil
	}

	text, err := r.retriever.GetContext(ctx, query, r.cfg.NumResults)
	if err != nil {
		return Context{}, err
	}
	if strings.TrimSpace(text) == "" {
		slog.Debug("extract: retrieval empty, using full document", "field", f.Name)
		return Context{Text: document, Source: SourceFallback, Query: query}, nil
	}
	return Context{Text: text, Source: SourceRetrieval, Query: query}, nil
}

func (r *Resolver) longEnough(document string) bool {
	if r.cfg.RetrievalThreshold < 0 {
		return true
	}
	return utf8.RuneCountInString(document) >= r.cfg.RetrievalThreshold
}

// headRunes returns the first n characters of s without splitting a rune.
func headRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func (c Context) String() string {
	return fmt.Sprintf("%s(%d chars)", c.Source, utf8.RuneCountInString(c.Text))
}
