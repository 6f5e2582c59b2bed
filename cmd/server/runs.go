package main

import (
	"sync"

	"github.com/brunobiangulo/goextract/extraction"
)

// runRegistry keeps the most recent extraction runs so their results can be
// exported after the request that produced them. The oldest run is evicted
// once the limit is reached.
type runRegistry struct {
	mu    sync.RWMutex
	limit int
	order []string
	runs  map[string]*extraction.Run
}

func newRunRegistry(limit int) *runRegistry {
	if limit < 1 {
		limit = 1
	}
	return &runRegistry{limit: limit, runs: make(map[string]*extraction.Run)}
}

func (r *runRegistry) put(run *extraction.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		r.order = append(r.order, run.ID)
	}
	r.runs[run.ID] = run
	for len(r.order) > r.limit {
		delete(r.runs, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *runRegistry) get(id string) (*extraction.Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	return run, ok
}

func (r *runRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}
