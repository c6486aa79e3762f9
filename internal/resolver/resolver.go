// Package resolver turns AI-observed candidate actions into concrete picks.
//
// Resolution is a pure filter over declarative keyword-combination tables so
// the disambiguation policy can be audited and extended without touching
// workflow control flow. Steps own the reaction to an empty result; the
// resolver itself never fails.
package resolver

import (
	"strings"

	"github.com/xkilldash9x/cartpilot/api/schemas"
)

// Resolve returns, in original order, every candidate whose case-folded
// description contains all keywords of at least one combination in sets.
// An empty result means "not found", never an error.
func Resolve(candidates []schemas.CandidateAction, sets [][]string) []schemas.CandidateAction {
	if len(candidates) == 0 || len(sets) == 0 {
		return nil
	}

	var matches []schemas.CandidateAction
	for _, c := range candidates {
		desc := strings.ToLower(c.Description)
		for _, set := range sets {
			if containsAll(desc, set) {
				matches = append(matches, c)
				break
			}
		}
	}
	return matches
}

func containsAll(desc string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	for _, kw := range keywords {
		if !strings.Contains(desc, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

// First is the default tie-break: the earliest match wins.
func First(matches []schemas.CandidateAction) (schemas.CandidateAction, bool) {
	if len(matches) == 0 {
		return schemas.CandidateAction{}, false
	}
	return matches[0], true
}

// PreferContaining tie-breaks toward the earliest match whose description
// also contains one of the secondary keywords, falling back to the first
// match. Used for cart indicators, where a badge mentioning an item count
// beats a bare icon. The preference is a heuristic: a description that
// happens to contain a digit for another reason is a false positive.
func PreferContaining(matches []schemas.CandidateAction, keywords ...string) (schemas.CandidateAction, bool) {
	if len(matches) == 0 {
		return schemas.CandidateAction{}, false
	}
	for _, m := range matches {
		desc := strings.ToLower(m.Description)
		for _, kw := range keywords {
			if strings.Contains(desc, strings.ToLower(kw)) {
				return m, true
			}
		}
	}
	return matches[0], true
}
