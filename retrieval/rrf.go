package retrieval

import (
	"sort"

	"github.com/brunobiangulo/goextract/store"
)

const rrfK = 60 // RRF constant (standard value from literature)

// FusedResultInfo holds per-result method contribution metadata.
type FusedResultInfo struct {
	Methods []string `json:"methods"`
	VecRank int      `json:"vec_rank,omitempty"` // 1-based, 0 = not present
	FTSRank int      `json:"fts_rank,omitempty"` // 1-based, 0 = not present
}

// fuseRRF implements Reciprocal Rank Fusion to combine the vector and FTS
// result lists. Each list is ranked independently, then scores are combined
// using: score = sum(weight_i / (k + rank_i)). Ties keep document order.
// It also returns per-result method contribution info keyed by ChunkID.
func fuseRRF(
	vecResults, ftsResults []store.SearchResult,
	weightVec, weightFTS float64,
	maxResults int,
) ([]store.SearchResult, map[int64]FusedResultInfo) {
	type fusedEntry struct {
		result store.SearchResult
		score  float64
		info   FusedResultInfo
	}

	fused := make(map[int64]*fusedEntry)
	add := func(results []store.SearchResult, weight float64, method string, setRank func(*FusedResultInfo, int)) {
		for rank, r := range results {
			entry, ok := fused[r.ChunkID]
			if !ok {
				entry = &fusedEntry{result: r}
				fused[r.ChunkID] = entry
			}
			entry.score += weight / float64(rrfK+rank+1)
			entry.info.Methods = append(entry.info.Methods, method)
			setRank(&entry.info, rank+1)
		}
	}
	add(vecResults, weightVec, "vector", func(i *FusedResultInfo, r int) { i.VecRank = r })
	add(ftsResults, weightFTS, "fts", func(i *FusedResultInfo, r int) { i.FTSRank = r })

	entries := make([]*fusedEntry, 0, len(fused))
	for _, e := range fused {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].result.PositionInDoc < entries[j].result.PositionInDoc
	})

	if maxResults > 0 && len(entries) > maxResults {
		entries = entries[:maxResults]
	}

	results := make([]store.SearchResult, len(entries))
	infoMap := make(map[int64]FusedResultInfo, len(entries))
	for i, e := range entries {
		results[i] = e.result
		results[i].Score = e.score
		infoMap[e.result.ChunkID] = e.info
	}
	return results, infoMap
}
