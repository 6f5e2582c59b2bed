package goextract

import "errors"

var (
	// ErrDocumentNotFound is returned when a document ID does not exist.
	ErrDocumentNotFound = errors.New("goextract: document not found")

	// ErrDocumentNotReady is returned when extracting from a document whose
	// ingestion has not finished or failed.
	ErrDocumentNotReady = errors.New("goextract: document not ready")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("goextract: unsupported document format")

	// ErrParsingFailed is returned when document parsing fails.
	ErrParsingFailed = errors.New("goextract: parsing failed")

	// ErrNoContent is returned when a document or text holds no extractable text.
	ErrNoContent = errors.New("goextract: no extractable text")

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = errors.New("goextract: embedding generation failed")

	// ErrLLMRequestFailed is returned when an LLM request fails.
	ErrLLMRequestFailed = errors.New("goextract: LLM request failed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("goextract: invalid configuration")
)
