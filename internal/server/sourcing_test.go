package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wallacegibbon/subcon/internal/config"
)

func TestGatherProfilePathsDedupesPreservingFirstOccurrence(t *testing.T) {
	pref := &config.Pref{
		Common: config.Common{
			DefaultURL: []string{"a.yaml", "b.yaml"},
			EnableInsert: true,
			InsertURL:    []string{"b.yaml", "c.yaml"},
		},
	}

	got := gatherProfilePaths(pref, true, "/base")
	require.Equal(t, []string{"/base/a.yaml", "/base/b.yaml", "/base/c.yaml"}, got)
}

func TestGatherProfilePathsPrependsInsertsWhenFlagged(t *testing.T) {
	pref := &config.Pref{
		Common: config.Common{
			DefaultURL:       []string{"a.yaml"},
			EnableInsert:     true,
			InsertURL:        []string{"c.yaml"},
			PrependInsertURL: true,
		},
	}

	got := gatherProfilePaths(pref, true, "/base")
	require.Equal(t, []string{"/base/c.yaml", "/base/a.yaml"}, got)
}

func TestGatherProfilePathsSkipsInsertsWithoutIncludeInsert(t *testing.T) {
	pref := &config.Pref{
		Common: config.Common{
			DefaultURL:   []string{"a.yaml"},
			EnableInsert: true,
			InsertURL:    []string{"c.yaml"},
		},
	}

	got := gatherProfilePaths(pref, false, "/base")
	require.Equal(t, []string{"/base/a.yaml"}, got)
}

func TestGatherProfilePathsSkipsInsertsWhenDisabledEvenWithToken(t *testing.T) {
	pref := &config.Pref{
		Common: config.Common{
			DefaultURL:   []string{"a.yaml"},
			EnableInsert: false,
			InsertURL:    []string{"c.yaml"},
		},
	}

	got := gatherProfilePaths(pref, true, "/base")
	require.Equal(t, []string{"/base/a.yaml"}, got)
}
