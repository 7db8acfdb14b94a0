// Package pagination reads optional limit/offset query parameters. Listing
// endpoints return everything unless a client asks for a page.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// MaxLimit caps explicit page sizes.
const MaxLimit = 500

// Params holds pagination parameters extracted from a request. A zero Limit
// means unbounded.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Bounded reports whether a page size was requested.
func (p Params) Bounded() bool {
	return p.Limit > 0
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Bounded() && p.Offset+p.Limit < total
}

// Window applies p to a slice already held in memory.
func Window[T any](items []T, p Params) []T {
	if p.Offset >= len(items) {
		return items[:0]
	}
	items = items[p.Offset:]
	if p.Bounded() && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}
