package domain

import (
	"math"
	"sort"
)

// SearchOptions configures a nearest-neighbour query against the index.
type SearchOptions struct {
	// K is the maximum number of hits. Zero or negative returns no hits.
	K int

	// ExcludeDocumentID drops chunks of this document, avoiding self-matches.
	ExcludeDocumentID string

	// MinScore drops hits with a lower similarity.
	MinScore float64
}

// SearchHit is a single retrieval result.
type SearchHit struct {
	// Record is the matched embedding record.
	Record EmbeddingRecord

	// Score is the cosine similarity between query and record (-1..1).
	Score float64
}

// RetrievalStatus describes how historical context was obtained for a report.
type RetrievalStatus string

// Retrieval statuses.
const (
	// RetrievalOK means context retrieval ran (it may still return no hits).
	RetrievalOK RetrievalStatus = "ok"

	// RetrievalDegraded means the index or embedder failed and no context was used.
	RetrievalDegraded RetrievalStatus = "degraded"

	// RetrievalDisabled means no index is configured.
	RetrievalDisabled RetrievalStatus = "disabled"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length or zero magnitude score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// RankHits orders hits by descending score and applies opts.
// Hits must arrive in document insertion order, then chunk position;
// the sort is stable so that order breaks ties.
func RankHits(hits []SearchHit, opts SearchOptions) []SearchHit {
	if opts.K <= 0 {
		return []SearchHit{}
	}
	kept := make([]SearchHit, 0, len(hits))
	for _, h := range hits {
		if opts.ExcludeDocumentID != "" && h.Record.DocumentID == opts.ExcludeDocumentID {
			continue
		}
		if opts.MinScore != 0 && h.Score < opts.MinScore {
			continue
		}
		kept = append(kept, h)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	if len(kept) > opts.K {
		kept = kept[:opts.K]
	}
	return kept
}
