package request

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/itemshare/item-share-backend/internal/pkg/apperror"
)

var (
	ErrInvalidFrom = apperror.New(http.StatusBadRequest, "from must be >= 0")
	ErrInvalidSize = apperror.New(http.StatusBadRequest, "size must be >= 1")
)

const DefaultPageSize = 20

// ListParams holds offset pagination for list endpoints: slice the result
// starting at From for Size elements.
type ListParams struct {
	From int
	Size int
}

// Validate checks pagination bounds. It must run before any query executes
// so that bad input fails fast rather than producing an empty page.
func (p ListParams) Validate() error {
	if p.From < 0 {
		return ErrInvalidFrom
	}
	if p.Size < 1 {
		return ErrInvalidSize
	}
	return nil
}

// ParseListParams reads "from" and "size" query parameters. Absent
// parameters fall back to defaults; present but malformed or out-of-range
// values are a client error.
func ParseListParams(c *gin.Context) (ListParams, error) {
	p := ListParams{From: 0, Size: DefaultPageSize}

	if v := c.Query("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, ErrInvalidFrom
		}
		p.From = n
	}
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, ErrInvalidSize
		}
		p.Size = n
	}

	return p, p.Validate()
}

// Slice applies the pagination window to a slice that is already in its
// final order. An offset past the end yields an empty slice.
func Slice[T any](items []T, p ListParams) []T {
	if p.From >= len(items) {
		return []T{}
	}
	end := p.From + p.Size
	if end > len(items) {
		end = len(items)
	}
	return items[p.From:end]
}
