package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brunobiangulo/goextract/extraction"
)

// DefaultNumResults is how many chunks a retrieval-backed analysis reads.
const DefaultNumResults = 5

// Config tunes an Analyzer. Zero values take the defaults; a negative
// RetrievalThreshold sends custom questions through retrieval whatever the
// document length.
type Config struct {
	NumResults         int
	RetrievalThreshold int
	Now                func() time.Time
}

// Request is one analysis. Content is the full contract text; it may be
// empty when Retriever is set.
type Request struct {
	Type      Type
	Query     string
	Content   string
	Retriever extraction.Retriever
}

// Result is the agent's answer plus what it was given.
type Result struct {
	Type         Type              `json:"type"`
	Label        string            `json:"label"`
	Scope        Scope             `json:"scope,omitempty"`
	Requirements *Requirement      `json:"requirements,omitempty"`
	Query        string            `json:"query,omitempty"`
	Source       extraction.Source `json:"context_source"`
	ContextChars int               `json:"context_chars"`
	Content      string            `json:"content"`
	Warnings     []string          `json:"warnings,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
}

// Analyzer runs analyses against an agent.
type Analyzer struct {
	cfg Config
}

// New returns an Analyzer.
func New(cfg Config) *Analyzer {
	if cfg.NumResults <= 0 {
		cfg.NumResults = DefaultNumResults
	}
	if cfg.RetrievalThreshold == 0 {
		cfg.RetrievalThreshold = extraction.DefaultRetrievalThreshold
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Analyzer{cfg: cfg}
}

// Analyze resolves the contract text for req, sends the instruction to agent
// and returns its answer. Agent and retriever errors are returned wrapped.
func (a *Analyzer) Analyze(ctx context.Context, req Request, agent extraction.Agent) (*Result, error) {
	k, ok := kinds[req.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, req.Type)
	}
	if req.Type.RequiresQuery() && strings.TrimSpace(req.Query) == "" {
		return nil, ErrQueryRequired
	}
	if agent == nil {
		return nil, extraction.ErrNoAgent
	}

	res := &Result{
		Type:      req.Type,
		Label:     k.label,
		Scope:     k.scope,
		Query:     strings.TrimSpace(req.Query),
		StartedAt: a.cfg.Now().UTC(),
	}

	text, source, err := a.resolve(ctx, req, k)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoContext
	}
	res.Source = source
	res.ContextChars = utf8.RuneCountInString(text)

	if k.scope != "" {
		r, _ := Requirements(k.scope)
		res.Requirements = &r
		if res.ContextChars < r.MinContextLength {
			msg := fmt.Sprintf("contract text is %d characters; a %s review expects at least %d",
				res.ContextChars, k.scope, r.MinContextLength)
			res.Warnings = append(res.Warnings, msg)
			slog.Warn("analysis: short context", "type", req.Type, "chars", res.ContextChars, "min", r.MinContextLength)
		}
	}

	instruction, err := Prompt(req.Type, req.Query, text)
	if err != nil {
		return nil, err
	}

	slog.Info("analysis: running", "type", req.Type, "source", source, "chars", res.ContextChars)
	resp, err := agent.Run(ctx, instruction)
	if err != nil {
		return nil, fmt.Errorf("analysis %s: %w", req.Type, err)
	}
	if resp != nil {
		res.Content = strings.TrimSpace(resp.Content)
	}
	res.FinishedAt = a.cfg.Now().UTC()
	slog.Info("analysis: done", "type", req.Type,
		"elapsed", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	return res, nil
}

// resolve picks the text the agent reads. Reviews read the whole contract.
// Custom questions over long contracts read the retrieved excerpt, falling
// back to the whole text when retrieval finds nothing. Without text every
// analysis goes through the retriever.
func (a *Analyzer) resolve(ctx context.Context, req Request, k kind) (string, extraction.Source, error) {
	content := req.Content
	if req.Retriever == nil {
		return content, extraction.SourceFull, nil
	}

	query := k.search
	if req.Type == Custom {
		query = req.Query
	}

	if strings.TrimSpace(content) == "" {
		text, err := req.Retriever.GetContext(ctx, query, a.cfg.NumResults)
		if err != nil {
			return "", "", fmt.Errorf("analysis %s: retrieval: %w", req.Type, err)
		}
		return text, extraction.SourceRetrieval, nil
	}

	if req.Type != Custom {
		return content, extraction.SourceFull, nil
	}
	if a.cfg.RetrievalThreshold > 0 && utf8.RuneCountInString(content) <= a.cfg.RetrievalThreshold {
		return content, extraction.SourceFull, nil
	}
	text, err := req.Retriever.GetContext(ctx, query, a.cfg.NumResults)
	if err != nil {
		return "", "", fmt.Errorf("analysis %s: retrieval: %w", req.Type, err)
	}
	if strings.TrimSpace(text) == "" {
		slog.Warn("analysis: retrieval empty, using full text", "type", req.Type)
		return content, extraction.SourceFallback, nil
	}
	return text, extraction.SourceRetrieval, nil
}
