package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchflow/matchflow/internal/model"
)

func candidate(row, rank int, product string) model.Candidate {
	return model.Candidate{
		SuggestionID: row*100 + rank,
		RowIndex:     row,
		Rank:         rank,
		Fields:       map[string]string{"product_name": product},
	}
}

func TestMergeIncrementalReplacesRowWholesale(t *testing.T) {
	s := New()
	s.MergeIncremental([]model.Candidate{
		candidate(5, 0, "old-a"),
		candidate(5, 1, "old-b"),
		candidate(6, 0, "other"),
	})

	s.MergeIncremental([]model.Candidate{
		candidate(5, 0, "new"),
	})

	group := s.Candidates(5)
	require.Len(t, group, 1, "a re-analyzed row keeps only its newest group")
	assert.Equal(t, "new", group[0].Fields["product_name"])

	assert.Len(t, s.Candidates(6), 1, "rows absent from the merge are untouched")
}

func TestMergeIncrementalEmptyInputIsNoOp(t *testing.T) {
	s := New()
	s.MergeIncremental([]model.Candidate{candidate(1, 0, "a")})

	s.MergeIncremental(nil)

	assert.Equal(t, 1, s.Rows())
}

func TestLastWriteWinsAcrossWriters(t *testing.T) {
	s := New()

	// Bulk snapshot first, then a fresh per-row analysis for row 5.
	s.ReplaceAll([]model.Candidate{
		candidate(5, 0, "snapshot"),
		candidate(7, 0, "keep"),
	})
	s.MergeIncremental([]model.Candidate{candidate(5, 0, "fresh")})

	assert.Equal(t, "fresh", s.Candidates(5)[0].Fields["product_name"])
	assert.Equal(t, "keep", s.Candidates(7)[0].Fields["product_name"])
}

func TestReplaceAllDropsStaleRows(t *testing.T) {
	s := New()
	s.MergeIncremental([]model.Candidate{
		candidate(1, 0, "stale"),
		candidate(2, 0, "stays"),
	})

	s.ReplaceAll([]model.Candidate{candidate(2, 0, "stays")})

	assert.False(t, s.HasRow(1))
	assert.True(t, s.HasRow(2))
}

func TestGroupsOrderedByRowAndRank(t *testing.T) {
	s := New()
	s.MergeIncremental([]model.Candidate{
		candidate(9, 1, "b"),
		candidate(3, 0, "a"),
		candidate(9, 0, "a"),
	})

	groups := s.Groups()
	require.Len(t, groups, 2)

	assert.Equal(t, 3, groups[0].RowIndex)
	assert.Equal(t, 9, groups[1].RowIndex)

	require.Len(t, groups[1].Candidates, 2)
	assert.Equal(t, 0, groups[1].Candidates[0].Rank)
	assert.Equal(t, 1, groups[1].Candidates[1].Rank)
}

func TestCandidatesSortedByRank(t *testing.T) {
	s := New()
	s.MergeIncremental([]model.Candidate{
		candidate(4, 2, "c"),
		candidate(4, 0, "a"),
		candidate(4, 1, "b"),
	})

	group := s.Candidates(4)
	require.Len(t, group, 3)
	for i, c := range group {
		assert.Equal(t, i, c.Rank)
	}

	assert.Nil(t, s.Candidates(99))
}

func TestRemoveRowAndClear(t *testing.T) {
	s := New()
	s.MergeIncremental([]model.Candidate{
		candidate(1, 0, "a"),
		candidate(2, 0, "b"),
	})

	s.RemoveRow(1)
	assert.False(t, s.HasRow(1))
	assert.Equal(t, 1, s.Rows())

	s.Clear()
	assert.Equal(t, 0, s.Rows())
	assert.Empty(t, s.All())
}

func TestConcurrentWritersDoNotCorrupt(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		row := i
		go func() {
			defer wg.Done()
			s.MergeIncremental([]model.Candidate{candidate(row, 0, "merge")})
		}()
		go func() {
			defer wg.Done()
			s.Candidates(row)
			s.Groups()
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, s.Rows())
}
