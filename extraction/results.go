package extraction

import (
	"sync"
	"time"
)

// Sentinel values standing in for "absent". They are indistinguishable from
// a contract that genuinely lacks the field.
const (
	NotSpecified = "Not specified"
	NotFound     = "Not found"
)

// Confidence is the coarse confidence of a bare-variant record.
type Confidence string

const (
	High Confidence = "high"
	Low  Confidence = "low"
)

// Record is the outcome of extracting one field.
type Record struct {
	Term           string     `json:"term"`
	ExtractedValue string     `json:"extracted_value"`
	Section        *string    `json:"section,omitempty"`
	Confidence     Confidence `json:"confidence,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

// Found reports whether the record holds a value other than the sentinel.
func (r Record) Found() bool { return r.ExtractedValue != NotSpecified }

// SectionFound reports whether the record carries a clause reference.
func (r Record) SectionFound() bool { return r.Section != nil && *r.Section != NotFound }

// SectionText returns the section reference or "" when the variant has none.
func (r Record) SectionText() string {
	if r.Section == nil {
		return ""
	}
	return *r.Section
}

// Results is the append-only record list of one run. Safe for concurrent use.
type Results struct {
	mu      sync.RWMutex
	records []Record
}

// NewResults returns an empty store with room for n records.
func NewResults(n int) *Results {
	return &Results{records: make([]Record, 0, n)}
}

// Append adds a record at the end.
func (r *Results) Append(rec Record) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

// Len returns the number of records.
func (r *Results) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Records returns a snapshot of the records in insertion order.
func (r *Results) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}
