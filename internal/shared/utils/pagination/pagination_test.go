package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	page, limit := Normalize(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultLimit, limit)

	page, limit = Normalize(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, MaxLimit, limit)
}

func TestOffsetAndPages(t *testing.T) {
	assert.Equal(t, 20, Offset(3, 10))
	assert.Equal(t, 0, CalculateTotalPages(0, 10))
	assert.Equal(t, 3, CalculateTotalPages(21, 10))
	assert.Equal(t, 0, CalculateTotalPages(5, 0))
}
