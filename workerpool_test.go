package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapPoolPreservesOrder(t *testing.T) {
	input := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	results := MapPool(4, input, func(v int) int { return v * v })

	require.Len(t, results, len(input))
	for i, v := range input {
		require.Equal(t, v*v, results[i])
	}
}

func TestMapPoolRecoversPanic(t *testing.T) {
	input := []int{1, 2, 3}
	results := MapPool(2, input, func(v int) int {
		if v == 2 {
			panic("boom")
		}
		return v
	})

	require.Equal(t, []int{1, 0, 3}, results)
}

func TestMapPoolEmptyInput(t *testing.T) {
	results := MapPool(4, []int{}, func(v int) int { return v })
	require.Empty(t, results)
}
