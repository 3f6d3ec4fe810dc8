// Package model defines the core domain models used throughout the application.
package model

import "sort"

// Candidate is one proposed database match for a customer row, produced by
// the external matching service.
type Candidate struct {
	Fields       map[string]string
	Rationale    string
	Source       string
	SuggestionID int
	RowIndex     int
	Rank         int
	Confidence   float64
}

// IsRecommended reports whether this candidate is the service's top pick
// for its row. Rank 0 is "recommended"; higher ranks are alternatives.
func (c Candidate) IsRecommended() bool {
	return c.Rank == 0
}

// CandidateGroup holds all candidates for a single customer row, ordered by
// rank ascending.
type CandidateGroup struct {
	Candidates []Candidate
	RowIndex   int
}

// Recommended returns the rank-0 candidate of the group, or nil when the
// group carries only alternatives.
func (g CandidateGroup) Recommended() *Candidate {
	for i := range g.Candidates {
		if g.Candidates[i].Rank == 0 {
			return &g.Candidates[i]
		}
	}
	return nil
}

// GroupByRow buckets candidates by row index and orders each bucket by rank
// ascending. Groups are returned ordered by row index.
func GroupByRow(candidates []Candidate) []CandidateGroup {
	byRow := make(map[int][]Candidate)
	for _, c := range candidates {
		byRow[c.RowIndex] = append(byRow[c.RowIndex], c)
	}

	groups := make([]CandidateGroup, 0, len(byRow))
	for row, cands := range byRow {
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].Rank < cands[j].Rank
		})
		groups = append(groups, CandidateGroup{RowIndex: row, Candidates: cands})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].RowIndex < groups[j].RowIndex
	})

	return groups
}
