package response

// PageResponse is the standard wrapper for list endpoints.
type PageResponse[T any] struct {
	Items []T `json:"items"`
	From  int `json:"from"`
	Size  int `json:"size"`
}

// NewPageResponse builds a page wrapper, normalizing nil to an empty slice
// so the JSON never contains null.
func NewPageResponse[T any](items []T, from, size int) PageResponse[T] {
	if items == nil {
		items = make([]T, 0)
	}
	return PageResponse[T]{
		Items: items,
		From:  from,
		Size:  size,
	}
}
