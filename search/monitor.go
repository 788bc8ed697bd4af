package search

import (
	"github.com/poiesic/gamerec/core"
)

// SearchMonitor provides hooks to observe the ranking process.
// Implement this interface to track intermediate steps and results.
// Hooks for stages a query never reaches are not called.
type SearchMonitor interface {
	Start(query core.Query)
	AfterLexicalScoring(sims []float64)
	AfterSemanticScoring(sims []float64)
	AfterCandidateFilter(candidates []int)
	Ranked(ranked []core.Scored)
	Finish(rec core.Recommendation)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.Query)                {}
func (n *noopMonitor) AfterLexicalScoring(_ []float64)   {}
func (n *noopMonitor) AfterSemanticScoring(_ []float64)  {}
func (n *noopMonitor) AfterCandidateFilter(_ []int)      {}
func (n *noopMonitor) Ranked(_ []core.Scored)            {}
func (n *noopMonitor) Finish(_ core.Recommendation)      {}
