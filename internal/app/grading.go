package app

import (
	"fmt"

	"quizdesk/internal/domain"
)

// GradeExactSet reports whether selected matches the correct choice ids exactly.
// A question with no correct choice can never be answered correctly.
func GradeExactSet(correct, selected map[string]struct{}) bool {
	if len(correct) == 0 || len(correct) != len(selected) {
		return false
	}
	for id := range correct {
		if _, ok := selected[id]; !ok {
			return false
		}
	}
	return true
}

func correctSet(choices []domain.Choice) map[string]struct{} {
	set := make(map[string]struct{})
	for _, c := range choices {
		if c.IsCorrect {
			set[c.ID] = struct{}{}
		}
	}
	return set
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func correctChoices(choices []domain.Choice) []domain.PublicChoice {
	out := make([]domain.PublicChoice, 0, len(choices))
	for _, c := range choices {
		if c.IsCorrect {
			out = append(out, domain.PublicChoice{ID: c.ID, Label: c.Label})
		}
	}
	return out
}

// ResultsPolicy decides which answered questions show up as missed in the post-quiz review.
type ResultsPolicy string

const (
	// ResultsAgainstCurrentChoices re-grades each recorded selection against the
	// choice correctness as it is now, so admin edits change past reviews.
	ResultsAgainstCurrentChoices ResultsPolicy = "current"
	// ResultsAsRecorded uses the verdict stored when the answer was graded.
	ResultsAsRecorded ResultsPolicy = "recorded"
)

// ParseResultsPolicy maps a config value to a policy; empty selects the default.
func ParseResultsPolicy(raw string) (ResultsPolicy, error) {
	switch ResultsPolicy(raw) {
	case "", ResultsAgainstCurrentChoices:
		return ResultsAgainstCurrentChoices, nil
	case ResultsAsRecorded:
		return ResultsAsRecorded, nil
	}
	return "", fmt.Errorf("unknown results policy %q", raw)
}

// missed reports whether a question counts as missed. Questions without any correct
// choice configured are never reported.
func (p ResultsPolicy) missed(selected map[string]struct{}, recordedCorrect bool, current []domain.Choice) bool {
	correct := correctSet(current)
	if len(correct) == 0 {
		return false
	}
	if p == ResultsAsRecorded {
		return !recordedCorrect
	}
	return !GradeExactSet(correct, selected)
}
