// Package store implements the client-side suggestion merge store.
//
// The store is the authoritative local cache of per-row match candidates.
// It holds at most one active candidate group per row index: new data for a
// row always replaces the row's previous group wholesale, never appends to
// it. Two independent writers feed it — the manual analysis path merges
// incrementally, the queue poller replaces the whole cache from the
// service's snapshot — and whichever write lands last for a row wins.
package store

import (
	"sync"

	"github.com/matchflow/matchflow/internal/model"
)

// SuggestionStore caches match candidates keyed by customer row index.
// Safe for concurrent use.
type SuggestionStore struct {
	byRow map[int][]model.Candidate
	mu    sync.RWMutex
}

// New creates an empty suggestion store.
func New() *SuggestionStore {
	return &SuggestionStore{
		byRow: make(map[int][]model.Candidate),
	}
}

// MergeIncremental merges fresh candidates into the store row by row. For
// every row present in newCandidates the existing group is dropped and the
// new group inserted in its place; rows absent from newCandidates are left
// untouched.
func (s *SuggestionStore) MergeIncremental(newCandidates []model.Candidate) {
	if len(newCandidates) == 0 {
		return
	}

	incoming := make(map[int][]model.Candidate)
	for _, c := range newCandidates {
		incoming[c.RowIndex] = append(incoming[c.RowIndex], c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for row, group := range incoming {
		s.byRow[row] = group
	}
}

// ReplaceAll discards the store's contents and installs candidates as the
// new ground truth.
func (s *SuggestionStore) ReplaceAll(candidates []model.Candidate) {
	byRow := make(map[int][]model.Candidate)
	for _, c := range candidates {
		byRow[c.RowIndex] = append(byRow[c.RowIndex], c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byRow = byRow
}

// RemoveRow deletes all candidates for the given row.
func (s *SuggestionStore) RemoveRow(rowIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byRow, rowIndex)
}

// Clear empties the store.
func (s *SuggestionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byRow = make(map[int][]model.Candidate)
}

// Candidates returns the group for one row ordered by rank ascending, or
// nil when the row has no candidates.
func (s *SuggestionStore) Candidates(rowIndex int) []model.Candidate {
	s.mu.RLock()
	group, ok := s.byRow[rowIndex]
	s.mu.RUnlock()

	if !ok {
		return nil
	}

	groups := model.GroupByRow(group)
	return groups[0].Candidates
}

// Groups returns all candidate groups ordered by row index, each group's
// candidates ordered by rank ascending.
func (s *SuggestionStore) Groups() []model.CandidateGroup {
	s.mu.RLock()
	flat := s.flatten()
	s.mu.RUnlock()

	return model.GroupByRow(flat)
}

// All returns a flat copy of every cached candidate.
func (s *SuggestionStore) All() []model.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.flatten()
}

// Rows reports how many rows currently have a candidate group.
func (s *SuggestionStore) Rows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byRow)
}

// HasRow reports whether the store holds a group for the given row.
func (s *SuggestionStore) HasRow(rowIndex int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byRow[rowIndex]
	return ok
}

// flatten copies all groups into one slice. Callers must hold at least a
// read lock.
func (s *SuggestionStore) flatten() []model.Candidate {
	flat := make([]model.Candidate, 0, len(s.byRow))
	for _, group := range s.byRow {
		flat = append(flat, group...)
	}

	return flat
}
