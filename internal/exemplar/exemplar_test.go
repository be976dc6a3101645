package exemplar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRelevantRequiresBothTableAndKeywordOverlap(t *testing.T) {
	got := Relevant("List all branches and their managers", []string{"branches", "employees"}, 2)
	require.Len(t, got, 1)
	require.Equal(t, Builtin[0].Question, got[0].Question)
}

func TestRelevantExcludesTableOverlapWithoutKeywordOverlap(t *testing.T) {
	got := Relevant("Show me something about widgets", []string{"branches", "employees"}, 2)
	require.Empty(t, got)
}

func TestRelevantCapsAtMax(t *testing.T) {
	got := Relevant("checking savings accounts branches managers", []string{"branches", "employees", "customers", "accounts"}, 1)
	require.Len(t, got, 1)
}

func TestRelevantRanksHigherOverlapFirst(t *testing.T) {
	got := Relevant("Find customers with checking and savings accounts, and branches with managers", []string{"branches", "employees", "customers", "accounts"}, 2)
	require.Len(t, got, 2)
	require.Equal(t, Builtin[1].Question, got[0].Question)
}
