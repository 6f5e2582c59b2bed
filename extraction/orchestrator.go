package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/goextract/prompt"
	"github.com/brunobiangulo/goextract/schema"
)

// ErrNoAgent is returned when Run is called without an agent.
var ErrNoAgent = errors.New("extraction: no agent configured")

// FailurePolicy decides what a failing field does to the rest of the run.
type FailurePolicy string

const (
	// Abort stops the run at the first agent or retriever error.
	Abort FailurePolicy = "abort"
	// Isolate records sentinel values for the failing field and continues.
	Isolate FailurePolicy = "isolate"
)

// ParseFailurePolicy maps a config string to a policy. Empty means Abort.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", Abort:
		return Abort, nil
	case Isolate:
		return Isolate, nil
	default:
		return "", fmt.Errorf("unknown failure policy: %s", s)
	}
}

// State is the lifecycle of a run.
type State string

const (
	NotStarted State = "not_started"
	Running    State = "running"
	Completed  State = "completed"
	Failed     State = "failed"
)

// FieldError wraps an upstream failure with the field it happened on.
type FieldError struct {
	Field string
	Stage string // "retrieval" or "agent"
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("extracting %q: %s: %v", e.Field, e.Stage, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Config controls an Orchestrator.
type Config struct {
	Variant       prompt.Variant
	Resolver      ResolverConfig
	Concurrency   int // <= 1 processes fields strictly one at a time
	FailurePolicy FailurePolicy
	Now           func() time.Time
}

// Orchestrator walks a schema and produces one Record per field.
type Orchestrator struct {
	schema *schema.Schema
	cfg    Config
}

// New returns an orchestrator over s.
func New(s *schema.Schema, cfg Config) *Orchestrator {
	if cfg.Variant == "" {
		cfg.Variant = prompt.Sectioned
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = Abort
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{schema: s, cfg: cfg}
}

// Schema returns the schema the orchestrator walks.
func (o *Orchestrator) Schema() *schema.Schema { return o.schema }

// Variant returns the prompt variant in use.
func (o *Orchestrator) Variant() prompt.Variant { return o.cfg.Variant }

// Run is one pass over the schema.
type Run struct {
	ID         string         `json:"id"`
	Schema     string         `json:"schema"`
	Variant    prompt.Variant `json:"variant"`
	State      State          `json:"state"`
	Isolated   int            `json:"isolated_failures,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    *Results       `json:"-"`
	Err        error          `json:"-"`
}

// Records is shorthand for r.Results.Records().
func (r *Run) Records() []Record { return r.Results.Records() }

// Run extracts every field of the schema from content. retriever may be nil;
// an empty content with a retriever runs in retrieval-only mode.
//
// The returned Run is never nil. When the run aborts, it is in the Failed
// state, holds the records produced so far, and the error is also returned.
func (o *Orchestrator) Run(ctx context.Context, content string, retriever Retriever, agent Agent) (*Run, error) {
	fields := o.schema.Fields()
	run := &Run{
		ID:      uuid.NewString(),
		Schema:  o.schema.Name(),
		Variant: o.cfg.Variant,
		State:   NotStarted,
		Results: NewResults(len(fields)),
	}
	if agent == nil {
		run.State = Failed
		run.Err = ErrNoAgent
		return run, ErrNoAgent
	}

	resolver := NewResolver(retriever, o.cfg.Resolver)
	run.State = Running
	run.StartedAt = o.cfg.Now().UTC()
	slog.Info("extract: run started",
		"run_id", run.ID, "schema", run.Schema, "fields", len(fields),
		"variant", o.cfg.Variant, "concurrency", o.cfg.Concurrency,
		"retrieval", retriever != nil, "content_chars", len(content))

	var isolated atomic.Int64
	var err error
	if o.cfg.Concurrency == 1 {
		err = o.runSequential(ctx, fields, content, resolver, agent, run.Results, &isolated)
	} else {
		err = o.runParallel(ctx, fields, content, resolver, agent, run.Results, &isolated)
	}

	run.Isolated = int(isolated.Load())
	run.FinishedAt = o.cfg.Now().UTC()
	elapsed := run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)
	if err != nil {
		run.State = Failed
		run.Err = err
		slog.Error("extract: run aborted",
			"run_id", run.ID, "completed_fields", run.Results.Len(),
			"fields", len(fields), "elapsed", elapsed, "error", err)
		return run, err
	}

	run.State = Completed
	slog.Info("extract: run complete",
		"run_id", run.ID, "fields", run.Results.Len(),
		"isolated_failures", run.Isolated, "elapsed", elapsed)
	return run, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, fields []schema.Field, content string,
	res *Resolver, agent Agent, out *Results, isolated *atomic.Int64) error {
	for _, f := range fields {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := o.field(ctx, res, agent, f, content)
		if err != nil {
			if !o.isolate(ctx, f, err) {
				return err
			}
			isolated.Add(1)
			rec = o.sentinel(f.Name)
		}
		out.Append(rec)
	}
	return nil
}

// runParallel fans fields out to at most Concurrency workers. Records are
// slotted by schema position and appended in order once all workers return.
func (o *Orchestrator) runParallel(ctx context.Context, fields []schema.Field, content string,
	res *Resolver, agent Agent, out *Results, isolated *atomic.Int64) error {
	slots := make([]*Record, len(fields))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for i, f := range fields {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := o.field(gctx, res, agent, f, content)
			if err != nil {
				if !o.isolate(gctx, f, err) {
					return err
				}
				isolated.Add(1)
				rec = o.sentinel(f.Name)
			}
			slots[i] = &rec
			return nil
		})
	}
	err := g.Wait()

	for _, rec := range slots {
		if rec != nil {
			out.Append(*rec)
		}
	}
	return err
}

// isolate reports whether err should be absorbed into a sentinel record.
// Cancellation of the run itself always aborts.
func (o *Orchestrator) isolate(ctx context.Context, f schema.Field, err error) bool {
	if o.cfg.FailurePolicy != Isolate || ctx.Err() != nil {
		return false
	}
	slog.Warn("extract: field failed, recording sentinel", "field", f.Name, "error", err)
	return true
}

func (o *Orchestrator) field(ctx context.Context, res *Resolver, agent Agent, f schema.Field, content string) (Record, error) {
	start := time.Now()
	c, err := res.Resolve(ctx, f, content)
	if err != nil {
		return Record{}, &FieldError{Field: f.Name, Stage: "retrieval", Err: err}
	}

	resp, err := agent.Run(ctx, prompt.Extraction(o.cfg.Variant, f, c.Text))
	if err != nil {
		return Record{}, &FieldError{Field: f.Name, Stage: "agent", Err: err}
	}
	var text string
	if resp != nil {
		text = resp.Content
	}

	rec := o.record(f.Name, text)
	slog.Debug("extract: field done",
		"field", f.Name, "context", c.String(), "found", rec.Found(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return rec, nil
}

func (o *Orchestrator) record(term, response string) Record {
	rec := Record{Term: term, Timestamp: o.cfg.Now().UTC()}
	if o.cfg.Variant == prompt.Bare {
		frag := ParseBare(response)
		rec.ExtractedValue = frag.Value
		rec.Confidence = frag.Confidence
		return rec
	}
	frag := ParseSectioned(response)
	rec.ExtractedValue = frag.Value
	rec.Section = &frag.Section
	return rec
}

func (o *Orchestrator) sentinel(term string) Record {
	if o.cfg.Variant == prompt.Bare {
		return o.record(term, NotSpecified)
	}
	return o.record(term, "")
}
