// internal/resolver/resolver_test.go
package resolver

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/cartpilot/api/schemas"
)

func action(desc string) schemas.CandidateAction {
	return schemas.CandidateAction{Description: desc, Selector: "#" + desc}
}

func TestResolve(t *testing.T) {
	testCases := []struct {
		name       string
		candidates []schemas.CandidateAction
		sets       [][]string
		wantDescs  []string
	}{
		{
			name: "search input worked example",
			candidates: []schemas.CandidateAction{
				action("search textbox for products"),
				action("cart icon"),
			},
			sets:      [][]string{{"search", "textbox"}, {"search", "input"}, {"search", "product"}},
			wantDescs: []string{"search textbox for products"},
		},
		{
			name: "every keyword of one set must match",
			candidates: []schemas.CandidateAction{
				action("search button"),
				action("input field for email"),
			},
			sets:      [][]string{{"search", "input"}},
			wantDescs: nil,
		},
		{
			name: "case folded matching",
			candidates: []schemas.CandidateAction{
				action("SEARCH Input Box"),
			},
			sets:      [][]string{{"search", "input"}},
			wantDescs: []string{"SEARCH Input Box"},
		},
		{
			name: "original order preserved across sets",
			candidates: []schemas.CandidateAction{
				action("remove item button for bread"),
				action("add to cart button"),
				action("remove item link for milk"),
			},
			sets:      [][]string{{"remove", "milk"}, {"remove"}},
			wantDescs: []string{"remove item button for bread", "remove item link for milk"},
		},
		{
			name:       "no candidates",
			candidates: nil,
			sets:       [][]string{{"search"}},
			wantDescs:  nil,
		},
		{
			name:       "no keyword sets",
			candidates: []schemas.CandidateAction{action("search input")},
			sets:       nil,
			wantDescs:  nil,
		},
		{
			name:       "empty set matches nothing",
			candidates: []schemas.CandidateAction{action("search input")},
			sets:       [][]string{{}},
			wantDescs:  nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.candidates, tc.sets)

			var descs []string
			for _, m := range got {
				descs = append(descs, m.Description)
			}
			assert.Equal(t, tc.wantDescs, descs)
		})
	}
}

func TestResolveDuplicateCandidateKeptOnce(t *testing.T) {
	// A candidate matching several sets must still appear exactly once, and
	// come back unmodified.
	candidates := []schemas.CandidateAction{action("search input textbox")}
	sets := [][]string{{"search", "input"}, {"search", "textbox"}}

	got := Resolve(candidates, sets)
	require.Len(t, got, 1)
	if diff := cmp.Diff(candidates, got); diff != "" {
		t.Errorf("resolved candidate mutated (-want +got):\n%s", diff)
	}
}

func TestFirst(t *testing.T) {
	_, ok := First(nil)
	assert.False(t, ok)

	matches := []schemas.CandidateAction{action("a"), action("b")}
	got, ok := First(matches)
	require.True(t, ok)
	assert.Equal(t, "a", got.Description)
}

func TestPreferContaining(t *testing.T) {
	matches := []schemas.CandidateAction{
		action("cart icon"),
		action("cart badge showing 3 items"),
	}

	got, ok := PreferContaining(matches, "1", "2", "3")
	require.True(t, ok)
	assert.Equal(t, "cart badge showing 3 items", got.Description)

	// No secondary keyword present: fall back to the first match.
	got, ok = PreferContaining(matches, "9")
	require.True(t, ok)
	assert.Equal(t, "cart icon", got.Description)

	_, ok = PreferContaining(nil, "cart")
	assert.False(t, ok)
}
