package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	from, limit := Calculate(1, 10)
	require.Equal(t, 0, from)
	require.Equal(t, 10, limit)

	from, limit = Calculate(3, 25)
	require.Equal(t, 50, from)
	require.Equal(t, 25, limit)
}

func TestCalculateDefaults(t *testing.T) {
	from, limit := Calculate(0, 0)
	require.Equal(t, 0, from)
	require.Equal(t, DefaultPageSize, limit)

	_, limit = Calculate(1, 101)
	require.Equal(t, DefaultPageSize, limit)

	from, _ = Calculate(-5, 10)
	require.Equal(t, 0, from)
}

func TestTotalPages(t *testing.T) {
	require.Equal(t, 3, TotalPages(25, 10))
	require.Equal(t, 1, TotalPages(10, 10))
	require.Equal(t, 0, TotalPages(0, 10))
	require.Equal(t, 0, TotalPages(25, 0))
}
