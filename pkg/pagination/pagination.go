package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// AdminMaxPageSize caps page sizes on the admin listing endpoints.
	AdminMaxPageSize = 10
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Page     int
	PageSize int
}

// FromContext reads page and pageSize query parameters, applying
// DefaultPageSize and MaxPageSize.
func FromContext(c echo.Context) Params {
	return FromContextWithMax(c, MaxPageSize)
}

// FromContextWithMax is FromContext with a caller-supplied page size cap.
func FromContextWithMax(c echo.Context, max int) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	size, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if size <= 0 {
		size, _ = strconv.Atoi(c.QueryParam("limit"))
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > max {
		size = max
	}

	return Params{Page: page, PageSize: size}
}

// Limit is the SQL LIMIT for the page.
func (p Params) Limit() int { return p.PageSize }

// Offset is the SQL OFFSET for the page.
func (p Params) Offset() int { return (p.Page - 1) * p.PageSize }

// Response wraps a paginated API response.
type Response struct {
	Data        interface{} `json:"data"`
	CurrentPage int         `json:"currentPage"`
	PageSize    int         `json:"pageSize"`
	TotalPages  int         `json:"totalPages"`
	TotalItems  int         `json:"totalItems"`
	HasMore     bool        `json:"hasMore"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Data:        data,
		CurrentPage: p.Page,
		PageSize:    p.PageSize,
		TotalPages:  TotalPages(total, p.PageSize),
		TotalItems:  total,
		HasMore:     p.Offset()+p.PageSize < total,
	}
}

// TotalPages returns the number of pages needed to hold total items.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
