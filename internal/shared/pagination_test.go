package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 25)
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, 10, p.Offset())

	p = NewPagination(0, 0, 0)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Equal(t, 0, p.TotalPages)
}

func TestPageFromQuery(t *testing.T) {
	page, perPage := PageFromQuery(url.Values{"page": {"3"}, "per_page": {"50"}})
	require.Equal(t, 3, page)
	require.Equal(t, 50, perPage)

	page, perPage = PageFromQuery(url.Values{"page": {"x"}, "per_page": {"500"}})
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)
}
