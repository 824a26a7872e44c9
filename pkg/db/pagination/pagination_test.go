package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Pagination
		want Pagination
	}{
		{name: "defaults", in: Pagination{}, want: Pagination{Page: 1, Limit: 12}},
		{name: "over max", in: Pagination{Page: 2, Limit: 500}, want: Pagination{Page: 2, Limit: 12}},
		{name: "negative page", in: Pagination{Page: -3, Limit: 5}, want: Pagination{Page: 1, Limit: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize(12, 50))
		})
	}
}

func TestBuildPageInfo(t *testing.T) {
	p := Pagination{Page: 2, Limit: 10}
	info := BuildPageInfo(p, 25)

	assert.Equal(t, 3, info.TotalPages)
	assert.True(t, info.HasMore)
	assert.Equal(t, 10, p.Offset())

	last := BuildPageInfo(Pagination{Page: 3, Limit: 10}, 25)
	assert.False(t, last.HasMore)
}
