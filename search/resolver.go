package search

import (
	"strings"

	"github.com/poiesic/gamerec/core"
)

// Resolver maps raw user input onto a corpus reference or a keyword.
type Resolver struct {
	titles []string
	exact  map[string]int
}

// NewResolver indexes the titles of entries. The first occurrence of a
// title wins if the corpus somehow holds duplicates.
func NewResolver(entries []core.CorpusEntry) *Resolver {
	r := &Resolver{
		titles: make([]string, len(entries)),
		exact:  make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		title := core.NormalizeTitle(e.Title)
		r.titles[i] = title
		if _, ok := r.exact[title]; !ok {
			r.exact[title] = i
		}
	}
	return r
}

// Resolve turns input into a query. An exact case-insensitive title
// match wins; otherwise the first title in corpus order that contains
// the input wins. Anything else, blank input included, becomes a
// keyword query carrying the raw text.
func (r *Resolver) Resolve(input string) core.Query {
	needle := core.NormalizeTitle(input)
	if needle == "" {
		return core.Query{Kind: core.QueryByKeyword, Index: -1, Text: input}
	}
	if i, ok := r.exact[needle]; ok {
		return core.Query{Kind: core.QueryByTitle, Index: i}
	}
	for i, title := range r.titles {
		if strings.Contains(title, needle) {
			return core.Query{Kind: core.QueryByTitle, Index: i}
		}
	}
	return core.Query{Kind: core.QueryByKeyword, Index: -1, Text: input}
}

// Lookup returns the index of an exactly matching title.
func (r *Resolver) Lookup(title string) (int, bool) {
	i, ok := r.exact[core.NormalizeTitle(title)]
	return i, ok
}
