package cli

import (
	"fmt"
	"io"

	"github.com/matchflow/matchflow/internal/model"
)

// RenderGroups writes the grouped candidate view: one block per row,
// recommended candidate first, alternatives after it.
func RenderGroups(out io.Writer, groups []model.CandidateGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(out, SubtleStyle.Render("No suggestions cached."))
		return
	}

	for _, group := range groups {
		fmt.Fprintln(out, TitleStyle.Render(fmt.Sprintf("Row %d", group.RowIndex)))

		for _, candidate := range group.Candidates {
			name := CandidateName(candidate)
			label := "alternative"
			if candidate.IsRecommended() {
				name = RecommendedStyle.Render(name)
				label = "recommended"
			}

			fmt.Fprintf(out, "  %s  %s %s\n",
				name,
				SubtleStyle.Render(fmt.Sprintf("%.0f%%", candidate.Confidence*100)),
				SubtleStyle.Render(label))

			if candidate.Rationale != "" {
				fmt.Fprintf(out, "    %s\n", SubtleStyle.Render(candidate.Rationale))
			}
		}

		fmt.Fprintln(out)
	}
}

// RenderResults writes the backend match-result list.
func RenderResults(out io.Writer, results []model.MatchResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, SubtleStyle.Render("No match results."))
		return
	}

	for _, result := range results {
		fmt.Fprintf(out, "  row %-5d %-12s %s %s\n",
			result.CustomerRowIndex,
			result.Status,
			BoldStyle.Render(result.MatchedProduct),
			SubtleStyle.Render(fmt.Sprintf("%.0f%%", result.Confidence*100)))
	}
}

// CandidateName returns a display name for a candidate, preferring the
// product name fields the service populates.
func CandidateName(candidate model.Candidate) string {
	for _, key := range []string{"product_name", "name", "title"} {
		if v, ok := candidate.Fields[key]; ok && v != "" {
			return v
		}
	}
	return fmt.Sprintf("suggestion #%d", candidate.SuggestionID)
}
