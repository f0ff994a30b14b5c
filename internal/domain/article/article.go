// Package article defines the news article aggregate and the text the
// recommender embeds for it.
package article

// Article is a news article from the catalog. Identity is ID; the recommender
// treats an Article as immutable once handed over.
type Article struct {
	ID       int64  `json:"id"`
	Heading  string `json:"heading"`
	Content  string `json:"content"`
	Category string `json:"newsType"`
}

// New is the insert shape of an article, before storage assigns an ID.
type New struct {
	Heading  string
	Content  string
	Category string
}

// Scored is an article hydrated with its similarity to a query.
type Scored struct {
	Article
	Score float64 `json:"score"`
}
