package search

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name          string
		totalCount    int
		totalPages    int
		pageCap       int
		expectedPages int
		expectedUpper int
		expectedCap   bool
	}{
		{name: "under cap", totalCount: 250, totalPages: 3, pageCap: 100, expectedPages: 3, expectedUpper: 250},
		{name: "over cap", totalCount: 50000, totalPages: 500, pageCap: 100, expectedPages: 100, expectedUpper: 10000, expectedCap: true},
		{name: "custom cap", totalCount: 1000, totalPages: 10, pageCap: 4, expectedPages: 4, expectedUpper: 400, expectedCap: true},
		{name: "no results", expectedPages: 0, expectedUpper: 0, pageCap: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newStubSource(tt.totalCount, tt.totalPages, 100)

			result, err := Estimate(context.Background(), src, testQuery, tt.pageCap)
			require.NoError(t, err)

			assert.Equal(t, tt.totalCount, result.TotalCount)
			assert.Equal(t, tt.expectedPages, result.PagesToFetch)
			assert.Equal(t, tt.expectedUpper, result.RecordsUpperBound)
			assert.Equal(t, tt.expectedCap, result.Capped)
			assert.Equal(t, []int{1}, src.calls)
		})
	}
}

func TestEstimate_Error(t *testing.T) {
	src := newStubSource(100, 1, 100)
	src.failures[1] = authError(1)

	result, err := Estimate(context.Background(), src, testQuery, 100)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrAuth)
	assert.Contains(t, err.Error(), "failed to fetch first page")
}

func TestEstimateResult_Display(t *testing.T) {
	result := &EstimateResult{
		Query:             testQuery.Redacted(),
		TotalCount:        50000,
		TotalPages:        500,
		PagesToFetch:      100,
		RecordsUpperBound: 10000,
		Capped:            true,
	}

	var buf bytes.Buffer
	result.Display(&buf)
	out := buf.String()

	assert.Contains(t, out, "Dry-Run Fetch Plan")
	assert.Contains(t, out, "Matching companies: 50000")
	assert.Contains(t, out, "Pages to fetch: 100 (capped)")
	assert.Contains(t, out, "Records (upper bound): 10000")
	assert.Contains(t, out, "api_token=***")
}
