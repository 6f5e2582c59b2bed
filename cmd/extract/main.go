// Command extract ingests a contract, runs the field catalog over it and
// writes the results.
//
// Usage:
//
//	go run ./cmd/extract \
//	  --chat-provider groq --chat-model llama-3.3-70b-versatile \
//	  --format xlsx -o results.xlsx \
//	  ./contracts/msa.pdf
//
// Pass "-" instead of a file to read contract text from stdin. The summary
// is printed to stderr.
//
// With -analyze the catalog is skipped and one free-form analysis is written
// instead:
//
//	go run ./cmd/extract -analyze custom_analysis -query "Who can terminate?" ./contracts/msa.pdf
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunobiangulo/goextract"
	"github.com/brunobiangulo/goextract/analysis"
	"github.com/brunobiangulo/goextract/extraction"
	"github.com/brunobiangulo/goextract/prompt"
	"github.com/brunobiangulo/goextract/report"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to config file (JSON or TOML)")
		dbPath       = flag.String("db", "", "Path to SQLite database (overrides config)")
		schemaPath   = flag.String("schema", "", "Path to a JSON field catalog (default: built-in contract catalog)")
		chatProvider = flag.String("chat-provider", "", "Chat LLM provider (overrides config)")
		chatModel    = flag.String("chat-model", "", "Chat model name (overrides config)")
		noEmbed      = flag.Bool("no-embed", false, "Skip embeddings; retrieval uses full-text search only")
		variant      = flag.String("variant", "", "Prompt variant: sectioned or bare")
		concurrency  = flag.Int("concurrency", 0, "Fields processed at once (0 = config)")
		policy       = flag.String("failure-policy", "", "abort or isolate")
		format       = flag.String("format", "json", "Export format: json, csv, dataframe, xlsx")
		output       = flag.String("o", "", "Write the export to this file instead of stdout")
		force        = flag.Bool("force", false, "Re-parse the document even if unchanged")
		verbose      = flag.Bool("v", false, "Debug logging")
		analyzeType  = flag.String("analyze", "", "Run a free-form analysis instead of field extraction (contract_review, risk_assessment, parties, ...)")
		query        = flag.String("query", "", "Question for -analyze custom_analysis")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: extract [flags] <contract file | ->")
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := goextract.LoadConfigFile(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	cfg.ApplyEnv(os.Getenv)
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *schemaPath != "" {
		cfg.SchemaPath = *schemaPath
	}
	if *chatProvider != "" {
		cfg.Chat = goextract.LLMConfig{Provider: *chatProvider, Model: *chatModel}
		cfg.FillAPIKeys(os.Getenv)
	} else if *chatModel != "" {
		cfg.Chat.Model = *chatModel
	}
	if *noEmbed {
		cfg.Embedding = goextract.LLMConfig{}
	}

	// Validate export format before doing any work.
	exportFormat, err := report.ParseFormat(*format)
	if err != nil {
		log.Fatal(err)
	}

	var typ analysis.Type
	if *analyzeType != "" {
		typ, err = analysis.ParseType(*analyzeType)
		if err != nil {
			log.Fatal(err)
		}
		if typ.RequiresQuery() && *query == "" {
			log.Fatalf("-analyze %s needs -query", typ)
		}
	}

	var opts []goextract.ExtractOption
	if *variant != "" {
		v, err := prompt.ParseVariant(*variant)
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, goextract.WithVariant(v))
	}
	if *policy != "" {
		p, err := extraction.ParseFailurePolicy(*policy)
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, goextract.WithFailurePolicy(p))
	}
	if *concurrency > 0 {
		opts = append(opts, goextract.WithConcurrency(*concurrency))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := goextract.New(cfg)
	if err != nil {
		log.Fatalf("creating engine: %v", err)
	}
	defer engine.Close()

	if typ != "" {
		res, err := analyze(ctx, engine, flag.Arg(0), *force, typ, *query)
		if err != nil {
			engine.Close()
			log.Fatal(err)
		}
		if err := writeAnalysis(res, *output, os.Stdout, os.Stderr); err != nil {
			engine.Close()
			log.Fatal(err)
		}
		return
	}

	run, runErr := extract(ctx, engine, flag.Arg(0), *force, opts)
	if run == nil {
		engine.Close()
		log.Fatal(runErr)
	}

	agg := report.FromRun(run)
	if err := writeExport(agg, string(exportFormat), *output, os.Stdout); err != nil {
		engine.Close()
		log.Fatal(err)
	}
	writeSummary(os.Stderr, run, agg.Summary())

	if runErr != nil {
		engine.Close()
		log.Fatalf("run aborted after %d records: %v", run.Results.Len(), runErr)
	}
}

// extract ingests path and runs extraction over it. "-" reads raw text from
// stdin and skips ingestion.
func extract(ctx context.Context, engine goextract.Engine, path string, force bool, opts []goextract.ExtractOption) (*extraction.Run, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return engine.ExtractText(ctx, string(data), opts...)
	}

	var ingestOpts []goextract.IngestOption
	if force {
		ingestOpts = append(ingestOpts, goextract.WithForceReparse())
	}
	docID, err := engine.Ingest(ctx, path, ingestOpts...)
	if err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", path, err)
	}
	return engine.Extract(ctx, docID, opts...)
}

// analyze ingests path (or reads stdin for "-") and runs one analysis.
func analyze(ctx context.Context, engine goextract.Engine, path string, force bool, typ analysis.Type, query string) (*analysis.Result, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return engine.AnalyzeText(ctx, string(data), typ, query)
	}

	var ingestOpts []goextract.IngestOption
	if force {
		ingestOpts = append(ingestOpts, goextract.WithForceReparse())
	}
	docID, err := engine.Ingest(ctx, path, ingestOpts...)
	if err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", path, err)
	}
	return engine.Analyze(ctx, docID, typ, query)
}

// writeAnalysis writes the answer to output, or stdout when output is empty,
// and any warnings to stderr.
func writeAnalysis(res *analysis.Result, output string, stdout, stderr io.Writer) error {
	body := []byte(res.Content + "\n")
	if output == "" {
		if _, err := stdout.Write(body); err != nil {
			return err
		}
	} else if err := os.WriteFile(output, body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}
	fmt.Fprintf(stderr, "\n%s (%s context, %d chars)\n", res.Label, res.Source, res.ContextChars)
	return nil
}

// writeExport renders the records and writes them to output, or to stdout
// when output is empty.
func writeExport(agg *report.Aggregator, format, output string, stdout io.Writer) error {
	exp, err := agg.Export(format)
	if err != nil {
		return err
	}
	if output == "" {
		_, err := stdout.Write(exp.Body)
		return err
	}
	if err := os.WriteFile(output, exp.Body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	slog.Info("export written", "path", output, "format", exp.Format, "bytes", len(exp.Body))
	return nil
}

func writeSummary(w io.Writer, run *extraction.Run, s report.Summary) {
	fmt.Fprintf(w, "\nrun %s (%s, %s)\n", run.ID, run.Variant, run.State)
	fmt.Fprintf(w, "  terms found:     %d/%d (%s)\n", s.TermsFound, s.TotalTerms, s.CompletionRate)
	if s.SectionsFound != nil {
		fmt.Fprintf(w, "  sections found:  %d\n", *s.SectionsFound)
	}
	if s.ConfidenceLevels != nil {
		fmt.Fprintf(w, "  confidence:      high=%d low=%d\n",
			s.ConfidenceLevels[string(extraction.High)], s.ConfidenceLevels[string(extraction.Low)])
	}
	if run.Isolated > 0 {
		fmt.Fprintf(w, "  isolated errors: %d\n", run.Isolated)
	}
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(w, "  elapsed:         %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
}
