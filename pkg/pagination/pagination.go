// Package pagination reads limit/offset query parameters and shapes paged
// list responses.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is one requested page.
type Params struct {
	Limit  int
	Offset int
}

// New clamps limit to [1, MaxLimit] (0 or less means DefaultLimit) and
// offset to >= 0.
func New(limit, offset int) Params {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

// FromContext reads ?limit= and ?offset=. Values that do not parse fall back
// to the defaults.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return New(limit, offset)
}

// Key renders the page as a stable cache key fragment.
func (p Params) Key() string {
	return fmt.Sprintf("%d:%d", p.Limit, p.Offset)
}

// Links points at neighbouring pages. Empty fields are omitted.
type Links struct {
	Self string `json:"self"`
	Next string `json:"next,omitempty"`
	Prev string `json:"prev,omitempty"`
}

// Response is the envelope of a paged list.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
	Links   *Links      `json:"links,omitempty"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.Offset+p.Limit < total,
	}
}

// WithLinks fills Links from the request URL u, keeping its other query
// parameters.
func (r *Response) WithLinks(u *url.URL) *Response {
	page := func(offset int) string {
		q := u.Query()
		q.Set("limit", strconv.Itoa(r.Limit))
		q.Set("offset", strconv.Itoa(offset))
		return u.Path + "?" + q.Encode()
	}

	links := &Links{Self: page(r.Offset)}
	if r.HasMore {
		links.Next = page(r.Offset + r.Limit)
	}
	if r.Offset > 0 {
		links.Prev = page(max(r.Offset-r.Limit, 0))
	}
	r.Links = links
	return r
}
