package helpers

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"

	"eventticketing/internal/domain"
)

// Event listing defaults and limits.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInvalidPrice is returned when the price filter is not a finite number.
var ErrInvalidPrice = errors.New("price must be a number")

// EventListQuery is the parsed query string of GET /events.
type EventListQuery struct {
	Filter domain.EventFilter
	Page   domain.PaginationParams
}

// ParseEventListQuery reads title, price, page and page_size from q.
// A malformed price is rejected because silently dropping a filter would
// widen the result. Malformed page values fall back to the defaults;
// page_size=0 returns every match.
func ParseEventListQuery(q url.Values) (EventListQuery, error) {
	out := EventListQuery{
		Filter: domain.EventFilter{Title: strings.TrimSpace(q.Get("title"))},
		Page: domain.PaginationParams{
			Page:     intParam(q, "page", DefaultPage, 1),
			PageSize: min(intParam(q, "page_size", DefaultPageSize, 0), MaxPageSize),
		},
	}
	if s := strings.TrimSpace(q.Get("price")); s != "" {
		price, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			return EventListQuery{}, ErrInvalidPrice
		}
		out.Filter.Price = &price
	}
	return out, nil
}

// intParam returns q[key] as an int, or def when it is absent, malformed or below floor.
func intParam(q url.Values, key string, def, floor int) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil || v < floor {
		return def
	}
	return v
}

// PaginationMeta describes where a page of events sits in the full listing.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationMeta describes the page p of a listing with total matches.
// An unpaged listing (PageSize 0) is a single page, or none when empty.
func NewPaginationMeta(p domain.PaginationParams, total int) PaginationMeta {
	totalPages := min(total, 1)
	if p.PageSize > 0 {
		totalPages = (total + p.PageSize - 1) / p.PageSize
	}
	return PaginationMeta{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
