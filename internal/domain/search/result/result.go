// Package result holds ranked retrieval hits.
package result

// Result is a single ranked hit: an article ID and its cosine similarity to the query.
type Result struct {
	id    int64
	score float64
}

// New creates a search result.
func New(id int64, score float64) Result {
	return Result{id: id, score: score}
}

// ID returns the article identifier.
func (r Result) ID() int64 { return r.id }

// Score returns the similarity score in [-1, 1].
func (r Result) Score() float64 { return r.score }

// IDs extracts article identifiers in rank order.
func IDs(rs []Result) []int64 {
	ids := make([]int64, len(rs))
	for i, r := range rs {
		ids[i] = r.id
	}
	return ids
}
