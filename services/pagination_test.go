package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginateCoversEveryItemOnce(t *testing.T) {
	for n := 0; n <= 25; n++ {
		for size := 1; size <= 7; size++ {
			items := seq(n)
			first := Paginate(items, 1, size)
			wantPages := (n + size - 1) / size
			require.Equal(t, wantPages, first.TotalPages, "n=%d size=%d", n, size)

			var seen []int
			for page := 1; page <= first.TotalPages; page++ {
				p := Paginate(items, page, size)
				if page < first.TotalPages {
					require.Len(t, p.Items, size)
				} else {
					last := n % size
					if last == 0 {
						last = size
					}
					require.Len(t, p.Items, last)
				}
				seen = append(seen, p.Items...)
			}
			if n == 0 {
				assert.Empty(t, seen)
			} else {
				assert.Equal(t, items, seen)
			}
		}
	}
}

func TestPaginateOutOfRangeIsEmpty(t *testing.T) {
	items := seq(12)
	p := Paginate(items, 5, 10)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 2, p.TotalPages)
	assert.Equal(t, 12, p.TotalItems)

	assert.Empty(t, Paginate(items, 0, 10).Items)
	assert.Empty(t, Paginate(items, 1, 0).Items)
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 1, ClampPage(0, 3))
	assert.Equal(t, 1, ClampPage(-4, 3))
	assert.Equal(t, 2, ClampPage(2, 3))
	assert.Equal(t, 3, ClampPage(9, 3))
	assert.Equal(t, 1, ClampPage(5, 0))
}
