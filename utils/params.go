package utils

import (
	"net/http"
	"strconv"
)

// MaxPage bounds ?page so that skip stays far from int64 overflow.
const MaxPage = 1_000_000

// ParsePagination reads ?page and ?limit and returns skip/limit for a Find.
// limit is clamped to max and page to MaxPage.
func ParsePagination(r *http.Request, defLimit, max int64) (skip, limit int64) {
	q := r.URL.Query()

	page, _ := strconv.ParseInt(q.Get("page"), 10, 64)
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}

	limit, _ = strconv.ParseInt(q.Get("limit"), 10, 64)
	if limit < 1 {
		limit = defLimit
	}
	if limit > max {
		limit = max
	}
	return (page - 1) * limit, limit
}
